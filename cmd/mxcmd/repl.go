// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"mxcmd/internal/console"
)

func newREPLCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Read and run lines interactively (the default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd.Context(), app)
		},
	}
}

// runREPL reads lines from stdin until end of input or "exit". The prompt
// is shown only when stdin is a terminal.
func runREPL(ctx context.Context, app *App) error {
	s, err := app.load(ctx)
	if err != nil {
		return err
	}
	it, err := app.newInterpreter(ctx, s, nil, app.stdout)
	if err != nil {
		return err
	}
	defer it.Close()

	code, err := console.NewREPL(it, app.stdin, app.stdout,
		console.WithPrompt(s.cfg.Prompt),
		console.WithInteractive(app.isTerminal(app.stdin)),
		console.WithREPLLogger(s.logger),
	).Run(ctx)
	if err != nil {
		return err
	}
	return exitStatus(code)
}
