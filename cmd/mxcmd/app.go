// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"mxcmd/internal/config"
	"mxcmd/internal/console"
	"mxcmd/internal/interp"
	"mxcmd/internal/issue"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, string, error)
	}

	// App is the composition root of the CLI. Every cobra handler receives
	// it and reads configuration and streams through it.
	App struct {
		Config ConfigProvider
		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
		flags  rootFlagValues
	}

	// Dependencies are the injection points for NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config ConfigProvider
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	rootFlagValues struct {
		verbose    bool
		configPath string
	}

	// session is the loaded configuration plus the logger built from it,
	// shared by every interpreter a command creates.
	session struct {
		cfg     *config.Config
		cfgPath string
		logger  *log.Logger
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return &App{Config: deps.Config, stdin: deps.Stdin, stdout: deps.Stdout, stderr: deps.Stderr}
}

// load reads the configuration named by --config (or the default search
// path) and builds the logger from it. --verbose wins over log_level.
func (a *App) load(ctx context.Context) (*session, error) {
	cfg, path, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return nil, configLoadError(err, a.flags.configPath)
	}

	level := cfg.LogLevel.Level()
	if a.flags.verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: config.AppName, Level: level})
	if path != "" {
		logger.Debug("loaded config", "path", path)
	}
	return &session{cfg: cfg, cfgPath: path, logger: logger}, nil
}

// newInterpreter builds an interpreter configured from s. Startup script
// output goes to out.
func (a *App) newInterpreter(ctx context.Context, s *session, argv []string, out io.Writer) (*interp.Interpreter, error) {
	it, err := interp.New(
		interp.WithLogger(s.logger),
		interp.WithArgv(argv),
		interp.WithDumpFile(s.cfg.DumpFile),
		interp.WithHelpStyle(a.glamourStyle()),
	)
	if err != nil {
		return nil, err
	}
	if err := it.Configure(ctx, s.cfg, out); err != nil {
		_ = it.Close()
		return nil, err
	}
	return it, nil
}

// glamourStyle picks the markdown style for "help": plain text unless
// stdout is a terminal.
func (a *App) glamourStyle() string {
	if a.isTerminal(a.stdout) {
		return "dark"
	}
	return "notty"
}

func (a *App) isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && console.IsTerminal(f)
}

// renderError writes err for the user. Actionable errors get their
// suggestions and, in verbose mode, the issue guide.
func (a *App) renderError(w io.Writer, err error) {
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.flags.verbose))

	var ae *issue.ActionableError
	if !a.flags.verbose || !errors.As(err, &ae) || ae.Issue == 0 {
		return
	}
	guide := issue.Get(ae.Issue)
	if guide == nil {
		return
	}
	rendered, renderErr := guide.Render(a.glamourStyle())
	if renderErr != nil {
		return
	}
	fmt.Fprint(w, rendered)
}

// formatErrorForDisplay uses ActionableError.Format when possible. Verbose
// mode shows the full error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
