package cli

import (
	"context"

	"github.com/m-mizutani/resumerag/pkg/repository"
	"github.com/m-mizutani/resumerag/pkg/service/mcp"
	"github.com/m-mizutani/resumerag/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var (
		cfg   config
		addr  string
		watch bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "http",
			Usage:       "Serve streamable HTTP on this address instead of stdio",
			Sources:     cli.EnvVars("RESUMERAG_MCP_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "watch",
			Usage:       "Rebuild the index when a corpus file changes",
			Destination: &watch,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, repositoryFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, ragFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Run as an MCP server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

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
			if repo == nil {
				repo = repository.NewMemory()
			}

			server := mcp.New(uc,
				mcp.WithSessionOptions(opts...),
				mcp.WithRepository(repo),
			)

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			if watch && len(cfg.corpusFiles) > 0 {
				go func() {
					err := watchFiles(ctx, cfg.corpusFiles, func(ctx context.Context) {
						if err := cfg.initialize(ctx, uc); err != nil {
							logging.From(ctx).Error("failed to rebuild index", "error", err)
						}
					})
					if err != nil {
						logging.From(ctx).Error("corpus watcher stopped", "error", err)
					}
				}()
			}

			if addr != "" {
				return server.RunHTTP(ctx, addr)
			}
			return server.Run(ctx)
		},
	}
}
