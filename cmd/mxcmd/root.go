// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the mxcmd command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app. Without a subcommand
// it starts the REPL.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "mxcmd",
		Short: "A small command language with pipelines, redirection and variables",
		Long: TitleStyle.Render("mxcmd") + SubtitleStyle.Render(" - a small command language") + `

mxcmd runs scripts of commands joined by pipes (|) and sequences (;), with
file redirection (<, >, >>), %{name} variable interpolation and $(...)
command substitution. Commands resolve in order: typed builtins, simple
builtins and extern plugins, then user-defined commands.

` + SubtitleStyle.Render("Examples:") + `
  mxcmd                          Start the REPL
  mxcmd run build.mx             Run a script
  mxcmd run -c 'ls | grep .go'   Run a one-liner
  mxcmd run --watch build.mx     Re-run a script whenever its directory changes
  mxcmd parse 'a | b > out'      Show how a line parses
  mxcmd serve                    Serve the REPL over SSH`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd.Context(), app)
		},
	}

	root.PersistentFlags().BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable debug logging and detailed errors")
	root.PersistentFlags().StringVar(&app.flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/mxcmd/config.cue)")

	root.SetIn(app.stdin)
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	root.AddCommand(
		newRunCommand(app),
		newREPLCommand(app),
		newParseCommand(app),
		newServeCommand(app),
		newConfigCommand(app),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// Execute runs the CLI and exits the process with the resulting status.
func Execute() {
	app := NewApp(Dependencies{})
	err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			var exitErr *ExitError
			if errors.As(err, &exitErr) && exitErr.Err == nil {
				return
			}
			app.renderError(w, err)
		}),
	)
	if err == nil {
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code.Process())
	}
	os.Exit(1)
}
