package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "resumerag",
		Usage: "Answer questions about a resume with retrieval-augmented generation",
		Commands: []*cli.Command{
			chatCommand(),
			askCommand(),
			mcpCommand(),
			inspectCommand(),
			historyCommand(),
			similarCommand(),
			syncCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
