package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/resumerag/pkg/usecase/retrieval"
	"github.com/urfave/cli/v3"
)

func syncCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, repositoryFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, ragFlags(&cfg)...)

	return &cli.Command{
		Name:  "sync",
		Usage: "Index the corpus and write chunks with embeddings to the Firestore mirror",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			repo, err := cfg.newFirestore(ctx)
			if err != nil {
				return err
			}
			defer closer(ctx, repo.Close)()

			uc, err := cfg.newRetrieval(ctx, retrieval.WithChunkRepository(repo))
			if err != nil {
				return err
			}

			n, err := uc.Sync(ctx)
			if err != nil {
				return err
			}

			stats := uc.Stats()
			fmt.Fprintf(c.Root().Writer, "Synced %d chunks from %d documents (%s, dimension %d)\n",
				n, stats.Documents, stats.Embedder, stats.Dimension)
			return nil
		},
	}
}
