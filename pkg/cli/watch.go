package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/utils/logging"
)

// watchDebounce collapses the burst of events an editor save produces
const watchDebounce = 500 * time.Millisecond

// watchFiles calls onChange after any of paths is written, created or
// renamed, until ctx is done. Parent directories are watched so files
// replaced by rename keep being tracked.
func watchFiles(ctx context.Context, paths []string, onChange func(ctx context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return goerr.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	targets := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return goerr.Wrap(err, "failed to resolve path", goerr.V("path", p))
		}
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return goerr.Wrap(err, "failed to watch directory", goerr.V("dir", dir))
		}
	}

	logger := logging.From(ctx)
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, tracked := targets[filepath.Clean(event.Name)]; !tracked {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("corpus file changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "error", err)

		case <-timer.C:
			logger.Info("corpus changed, rebuilding index")
			onChange(ctx)
		}
	}
}
