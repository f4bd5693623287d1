package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/m-mizutani/resumerag/pkg/usecase/retrieval"
	"github.com/urfave/cli/v3"
)

func similarCommand() *cli.Command {
	var (
		cfg   config
		limit int64
		local bool
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of chunks to display",
			Value:       5,
			Destination: &limit,
		},
		&cli.BoolFlag{
			Name:        "local",
			Usage:       "Search the in-process index instead of the Firestore chunk mirror",
			Destination: &local,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, repositoryFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, ragFlags(&cfg)...)

	return &cli.Command{
		Name:      "similar",
		Usage:     "Find the chunks most similar to a query",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			query := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				return goerr.New("query is required")
			}

			var chunks []*model.DocumentChunk
			if local {
				uc, err := cfg.newRetrieval(ctx)
				if err != nil {
					return err
				}
				chunks, err = uc.Retrieve(ctx, query, int(limit))
				if err != nil {
					return err
				}
			} else {
				repo, err := cfg.newFirestore(ctx)
				if err != nil {
					return err
				}
				defer closer(ctx, repo.Close)()

				embedder, err := cfg.newEmbedder(ctx)
				if err != nil {
					return err
				}
				uc := retrieval.New(embedder,
					retrieval.WithRetry(cfg.newRetryPolicy()),
					retrieval.WithChunkRepository(repo))
				chunks, err = uc.SearchMirror(ctx, query, int(limit))
				if err != nil {
					return err
				}
			}

			w := c.Root().Writer
			if len(chunks) == 0 {
				fmt.Fprintf(w, "No chunks found\n")
				return nil
			}
			for i, chunk := range chunks {
				relevance := 0.0
				if chunk.Metadata.Relevance != nil {
					relevance = *chunk.Metadata.Relevance
				}
				fmt.Fprintf(w, "%d. [%.3f] %s (%s)\n   %s\n",
					i+1, relevance, chunk.ID, chunk.Metadata.Section, truncate(chunk.Content, 100))
			}
			return nil
		},
	}
}
