package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/m-mizutani/resumerag/pkg/usecase/conversation"
	"github.com/urfave/cli/v3"
)

func historyCommand() *cli.Command {
	var (
		cfg       config
		sessionID string
		offset    int64
		limit     int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "session-id",
			Aliases:     []string{"s"},
			Usage:       "Print the transcript of this session instead of listing",
			Destination: &sessionID,
		},
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Number of sessions to skip",
			Destination: &offset,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of sessions to list",
			Value:       20,
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, repositoryFlags(&cfg)...)

	return &cli.Command{
		Name:  "history",
		Usage: "List persisted conversations",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			w := c.Root().Writer

			repo, closeRepo, err := cfg.newSessionRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()
			if repo == nil {
				return goerr.New("sqlite or project is required")
			}

			if sessionID != "" {
				session, err := repo.GetSession(ctx, model.SessionID(sessionID))
				if err != nil {
					return goerr.Wrap(err, "failed to get session")
				}
				fmt.Fprintf(w, "%s\n", conversation.Format(session.Messages))
				return nil
			}

			sessions, err := repo.ListSessions(ctx, int(offset), int(limit))
			if err != nil {
				return goerr.Wrap(err, "failed to list sessions")
			}
			if len(sessions) == 0 {
				fmt.Fprintf(w, "No conversations found\n")
				return nil
			}

			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d messages\n",
					s.ID,
					s.Title,
					s.CreatedAt.Format("2006-01-02 15:04:05"),
					s.UpdatedAt.Format("2006-01-02 15:04:05"),
					len(s.Messages),
				)
			}
			return nil
		},
	}
}
