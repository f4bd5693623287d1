package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/adapter"
	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/m-mizutani/resumerag/pkg/usecase/conversation"
	"github.com/m-mizutani/resumerag/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const chatHelp = `Commands:
  /history  show the conversation so far
  /export   save the transcript
  /reset    start over
  /exit     quit`

func chatCommand() *cli.Command {
	var (
		cfg          config
		sessionID    string
		exportBucket string
		exportPrefix string
		historyFile  string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "session-id",
			Aliases:     []string{"s"},
			Usage:       "Resume or name a persisted session",
			Sources:     cli.EnvVars("RESUMERAG_SESSION_ID"),
			Destination: &sessionID,
		},
		&cli.StringFlag{
			Name:        "export-bucket",
			Usage:       "Cloud Storage bucket for /export, local file when omitted",
			Sources:     cli.EnvVars("RESUMERAG_EXPORT_BUCKET"),
			Destination: &exportBucket,
		},
		&cli.StringFlag{
			Name:        "export-prefix",
			Usage:       "Object prefix in the export bucket",
			Value:       "transcripts",
			Sources:     cli.EnvVars("RESUMERAG_EXPORT_PREFIX"),
			Destination: &exportPrefix,
		},
		&cli.StringFlag{
			Name:        "history-file",
			Usage:       "Readline history file",
			Value:       filepath.Join(os.TempDir(), ".resumerag_history"),
			Destination: &historyFile,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, repositoryFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, ragFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive conversation about the resume",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			w := c.Root().Writer

			uc, err := cfg.newRetrieval(ctx)
			if err != nil {
				return err
			}

			opts, err := cfg.sessionOptions(ctx)
			if err != nil {
				return err
			}

			repo, closeRepo, err := cfg.newSessionRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			if repo != nil {
				opts = append(opts, conversation.WithRepository(repo))
			}
			if sessionID != "" {
				opts = append(opts, conversation.WithSessionID(model.SessionID(sessionID)))
				if repo != nil {
					stored, err := repo.GetSession(ctx, model.SessionID(sessionID))
					switch {
					case err == nil:
						opts = append(opts, conversation.WithHistory(stored))
					case !errors.Is(err, model.ErrSessionNotFound):
						return goerr.Wrap(err, "failed to load session", goerr.V("session_id", sessionID))
					}
				}
			}

			var storage adapter.Storage
			if exportBucket != "" {
				storage, err = adapter.NewStorage(ctx, exportBucket, exportPrefix)
				if err != nil {
					return err
				}
			}

			session := conversation.New(uc, opts...)

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				HistoryFile:     historyFile,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdout:          w,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			history := session.History()
			if len(history) == 1 {
				printReply(w, history[0])
			} else {
				fmt.Fprintf(w, "Resumed session %s with %d messages\n\n", session.ID(), len(history))
			}
			fmt.Fprintf(w, "Session %s. Type /help for commands.\n", session.ID())

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				line = strings.TrimSpace(line)
				switch line {
				case "":
					continue
				case "/exit", "/quit", "exit":
					return nil
				case "/help":
					fmt.Fprintln(w, chatHelp)
					continue
				case "/history":
					fmt.Fprintf(w, "%s\n\n", session.Export())
					continue
				case "/reset":
					if err := session.Reset(ctx); err != nil {
						return err
					}
					printReply(w, session.History()[0])
					continue
				case "/export":
					name, err := exportTranscript(ctx, storage, session)
					if err != nil {
						logging.From(ctx).Error("failed to export transcript", "error", err)
						fmt.Fprintf(w, "Export failed: %v\n", err)
						continue
					}
					fmt.Fprintf(w, "Transcript saved to %s\n", name)
					continue
				}

				reply, err := ask(ctx, c.Root().ErrWriter, session, line)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						fmt.Fprintln(w, "(cancelled)")
						continue
					}
					return err
				}
				printReply(w, reply)
			}

			return nil
		},
	}
}

// ask submits query with a spinner while the session awaits the answer.
// Ctrl-C cancels only the in-flight query.
func ask(ctx context.Context, errWriter io.Writer, session *conversation.Session, query string) (*model.Message, error) {
	queryCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(errWriter))
	spin.Suffix = " thinking..."
	spin.Start()
	defer spin.Stop()

	return session.Submit(queryCtx, query)
}

func exportTranscript(ctx context.Context, storage adapter.Storage, session *conversation.Session) (string, error) {
	name := conversation.ExportFilename(time.Now())
	transcript := session.Export()

	if storage == nil {
		if err := os.WriteFile(name, []byte(transcript), 0644); err != nil {
			return "", goerr.Wrap(err, "failed to write transcript", goerr.V("path", name))
		}
		return name, nil
	}

	wc, err := storage.Put(ctx, name)
	if err != nil {
		return "", err
	}
	if _, err := io.WriteString(wc, transcript); err != nil {
		wc.Close()
		return "", goerr.Wrap(err, "failed to upload transcript", goerr.V("key", name))
	}
	if err := wc.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to commit transcript", goerr.V("key", name))
	}
	return name, nil
}
