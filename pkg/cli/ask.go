package cli

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/usecase/conversation"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var (
		cfg        config
		jsonOutput bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print the reply as JSON",
			Destination: &jsonOutput,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, ragFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a single question and exit",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			question := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(question) == "" {
				return goerr.New("question is required")
			}

			uc, err := cfg.newRetrieval(ctx)
			if err != nil {
				return err
			}
			opts, err := cfg.sessionOptions(ctx)
			if err != nil {
				return err
			}

			reply, err := conversation.New(uc, opts...).Submit(ctx, question)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(c.Root().Writer)
				enc.SetIndent("", "  ")
				if err := enc.Encode(reply); err != nil {
					return goerr.Wrap(err, "failed to encode reply")
				}
				return nil
			}

			printReply(c.Root().Writer, reply)
			return nil
		},
	}
}
