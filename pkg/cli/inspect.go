package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/urfave/cli/v3"
)

func inspectCommand() *cli.Command {
	var (
		cfg        config
		showChunks bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "chunks",
			Usage:       "List every chunk",
			Destination: &showChunks,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, ragFlags(&cfg)...)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Build the index and print document, chunk and section statistics",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			w := c.Root().Writer

			uc, err := cfg.newRetrieval(ctx)
			if err != nil {
				return err
			}

			stats := uc.Stats()
			fmt.Fprintf(w, "Embedder:  %s (dimension %d)\n", stats.Embedder, stats.Dimension)
			fmt.Fprintf(w, "Documents: %d\n", stats.Documents)
			fmt.Fprintf(w, "Chunks:    %d\n", stats.Chunks)
			fmt.Fprintf(w, "Sections:\n")
			for _, s := range model.Sections {
				fmt.Fprintf(w, "  %-10s %d\n", s, stats.Sections[s])
			}

			fmt.Fprintf(w, "\n")
			for _, doc := range uc.Documents() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d chars\n", doc.ID, doc.Type, doc.Name, len([]rune(doc.Content)))
			}

			if showChunks {
				fmt.Fprintf(w, "\n")
				for _, chunk := range uc.Chunks() {
					fmt.Fprintf(w, "%s\t%s\tpage %d\t%s\n",
						chunk.ID,
						chunk.Metadata.Section,
						chunk.Metadata.Page,
						truncate(chunk.Content, 60))
				}
			}
			return nil
		},
	}
}
