package retrieval

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/m-mizutani/resumerag/pkg/utils/logging"
)

var errNoMirror = goerr.New("chunk repository is not configured")

// Sync writes every indexed chunk with its embedding to the chunk repository
func (uc *UseCase) Sync(ctx context.Context) (int, error) {
	if uc.mirror == nil {
		return 0, errNoMirror
	}
	idx := uc.current()
	if !idx.Ready() {
		return 0, goerr.Wrap(model.ErrIndexNotReady, "sync before initialize")
	}

	chunks := idx.Chunks()
	if err := uc.mirror.PutChunks(ctx, chunks); err != nil {
		return 0, goerr.Wrap(err, "failed to mirror chunks", goerr.V("count", len(chunks)))
	}

	logging.From(ctx).Info("chunks mirrored", "count", len(chunks))
	return len(chunks), nil
}

// SearchMirror embeds query and runs a nearest neighbor search on the chunk
// repository instead of the in-process index.
func (uc *UseCase) SearchMirror(ctx context.Context, query string, limit int) ([]*model.DocumentChunk, error) {
	if uc.mirror == nil {
		return nil, errNoMirror
	}
	if limit <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "limit must be positive", goerr.V("limit", limit))
	}

	vec, err := uc.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	chunks, err := uc.mirror.SearchChunks(ctx, vec, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search chunk repository", goerr.V("limit", limit))
	}
	return chunks, nil
}
