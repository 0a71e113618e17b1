// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mxcmd/internal/interp"
	"mxcmd/internal/issue"
	"mxcmd/internal/watch"
)

type runFlagValues struct {
	command     string
	watch       bool
	clearScreen bool
}

func newRunCommand(app *App) *cobra.Command {
	var flags runFlagValues
	cmd := &cobra.Command{
		Use:   "run [FILE] [ARG...]",
		Short: "Run a script file or a command line",
		Long: `Run a script file, or with -c a command line given as text.

Arguments after the script are available to it through "argv".
With --watch the script runs again, with a fresh interpreter, whenever a
file in its directory changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case flags.command != "" && flags.watch:
				return errors.New("--watch needs a script file, not -c")
			case flags.command != "":
				return runText(cmd.Context(), app, flags.command, args)
			case len(args) == 0:
				return errors.New("run needs a script file or -c TEXT")
			case flags.watch:
				return runWatch(cmd.Context(), app, args[0], args[1:], flags.clearScreen)
			default:
				return runFile(cmd.Context(), app, args[0], args[1:])
			}
		},
	}
	cmd.Flags().StringVarP(&flags.command, "command", "c", "", "run TEXT instead of a file")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "re-run the script when files change")
	cmd.Flags().BoolVar(&flags.clearScreen, "clear", false, "clear the screen before every re-run (with --watch)")
	return cmd
}

func runFile(ctx context.Context, app *App, path string, argv []string) error {
	s, err := app.load(ctx)
	if err != nil {
		return err
	}
	it, err := app.newInterpreter(ctx, s, argv, app.stdout)
	if err != nil {
		return err
	}
	defer it.Close()

	code, err := it.RunFile(ctx, path, app.stdin, app.stdout)
	if err != nil && !errors.Is(err, interp.ErrExited) {
		return err
	}
	return exitStatus(code)
}

func runText(ctx context.Context, app *App, text string, argv []string) error {
	s, err := app.load(ctx)
	if err != nil {
		return err
	}
	it, err := app.newInterpreter(ctx, s, argv, app.stdout)
	if err != nil {
		return err
	}
	defer it.Close()

	code, err := it.RunString(ctx, text, app.stdin, app.stdout)
	if err != nil && !errors.Is(err, interp.ErrExited) {
		return issue.NewErrorContext().
			WithOperation("run command line").
			WithIssue(issue.Classify(err)).
			Wrap(err).
			BuildError()
	}
	return exitStatus(code)
}

func runWatch(ctx context.Context, app *App, path string, argv []string, clearScreen bool) error {
	s, err := app.load(ctx)
	if err != nil {
		return err
	}

	runner := &watch.ScriptRunner{
		Path: path,
		New: func(ctx context.Context) (*interp.Interpreter, error) {
			return app.newInterpreter(ctx, s, argv, app.stdout)
		},
		Out:    app.stdout,
		Logger: s.logger,
	}
	fmt.Fprintf(app.stderr, "%s watching %s (Ctrl+C to stop)\n", CmdStyle.Render("→"), path)

	err = watch.Script(ctx, runner, watch.Config{
		Ignore:      s.cfg.Watch.Ignore,
		Debounce:    s.cfg.Watch.Debounce,
		ClearScreen: clearScreen,
		Stdout:      app.stdout,
	})
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("watch script").
			WithResource(path).
			WithIssue(issue.WatchFailedId).
			Wrap(err).
			BuildError()
	}
	return nil
}
