// SPDX-License-Identifier: MPL-2.0

package interp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"mxcmd/internal/builtins"
	"mxcmd/internal/config"
	"mxcmd/internal/engine"
	"mxcmd/internal/issue"
	"mxcmd/internal/parser"
	"mxcmd/internal/vars"
	"mxcmd/pkg/types"
)

// ErrExited is returned by runs attempted after "exit".
var ErrExited = errors.New("interpreter has exited")

type (
	// Option configures an Interpreter.
	Option func(*options)

	options struct {
		logger    *log.Logger
		loader    engine.LibraryLoader
		argv      []string
		helpStyle string
		dumpFile  string
	}

	// Interpreter runs scripts against one store and registry.
	Interpreter struct {
		mu       sync.Mutex
		store    *vars.Store
		reg      *engine.Registry
		exec     *engine.Executor
		logger   *log.Logger
		stop     context.CancelCauseFunc
		exited   bool
		exitCode types.ExitCode
	}

	// exitRequest is the cancellation cause installed by "exit".
	exitRequest struct {
		code types.ExitCode
	}
)

func (e *exitRequest) Error() string { return fmt.Sprintf("exit %d", e.code) }

// WithLogger sets the logger shared by the registry and the builtins.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLibraryLoader replaces the Go plugin loader used by "extern".
func WithLibraryLoader(l engine.LibraryLoader) Option {
	return func(o *options) { o.loader = l }
}

// WithArgv sets the arguments exposed through "argv".
func WithArgv(argv []string) Option {
	return func(o *options) { o.argv = argv }
}

// WithHelpStyle sets the glamour style used by "help".
func WithHelpStyle(style string) Option {
	return func(o *options) { o.helpStyle = style }
}

// WithDumpFile sets the file "dump" writes when no file is named.
func WithDumpFile(path string) Option {
	return func(o *options) { o.dumpFile = path }
}

// New returns an interpreter with every builtin registered.
func New(opts ...Option) (*Interpreter, error) {
	o := options{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(&o)
	}

	it := &Interpreter{store: vars.NewStore(), logger: o.logger}
	regOpts := []engine.RegistryOption{engine.WithLogger(o.logger)}
	if o.loader != nil {
		regOpts = append(regOpts, engine.WithLibraryLoader(o.loader))
	}
	it.reg = engine.NewRegistry(it.store, regOpts...)
	it.exec = engine.NewExecutor(it.reg)

	err := builtins.Register(it.reg, builtins.Options{
		OnExit:    it.requestExit,
		Argv:      o.argv,
		HelpStyle: o.helpStyle,
		DumpFile:  o.dumpFile,
	})
	if err != nil {
		return nil, fmt.Errorf("register builtins: %w", err)
	}
	return it, nil
}

// requestExit runs on the goroutine holding mu, from inside a run.
func (it *Interpreter) requestExit(code types.ExitCode) {
	it.exited = true
	it.exitCode = code
	if it.stop != nil {
		it.stop(&exitRequest{code: code})
	}
}

// Configure applies cfg: variables are stored raw, externs are loaded and
// startup scripts run in order. Startup output goes to out.
func (it *Interpreter) Configure(ctx context.Context, cfg *config.Config, out io.Writer) error {
	it.mu.Lock()
	for _, v := range cfg.Variables {
		it.store.Set(v.Name, v.Value)
	}
	var errs []error
	for _, e := range cfg.Externs {
		if err := it.reg.RegisterExternCommand(e.Name.String(), e.Library, e.Symbol); err != nil {
			errs = append(errs, issue.NewErrorContext().
				WithOperation("load extern command").
				WithResource(e.Library).
				WithIssue(issue.ExternLoadFailedId).
				Wrap(err).
				Build())
		}
	}
	it.mu.Unlock()
	if err := errors.Join(errs...); err != nil {
		return err
	}

	for _, script := range cfg.Startup {
		code, err := it.RunFile(ctx, script, nil, out)
		if err != nil {
			return err
		}
		if it.Exited() {
			return nil
		}
		if !code.IsSuccess() {
			it.logger.Warn("startup script failed", "script", script, "status", code)
		}
	}
	return nil
}

// RunString parses and runs src. Command failures are reported through the
// status; the error is set for parse failures and aborted runs. A nil in
// reads as empty input.
func (it *Interpreter) RunString(ctx context.Context, src string, in io.Reader, out io.Writer) (types.ExitCode, error) {
	root, err := parser.ParseString(src)
	if err != nil {
		return types.ExitFailure, err
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if it.exited {
		return it.exitCode, ErrExited
	}
	if in == nil {
		in = eofReader{}
	}

	ctx, cancel := context.WithCancelCause(ctx)
	it.stop = cancel
	defer func() {
		it.stop = nil
		cancel(nil)
	}()

	code, err := it.exec.Execute(ctx, root, in, out)
	var exit *exitRequest
	if errors.As(context.Cause(ctx), &exit) {
		it.logger.Debug("exit requested", "status", exit.code)
		return exit.code, nil
	}
	return code, err
}

// RunFile runs the script at path. The error is an *issue.ActionableError
// naming the file.
func (it *Interpreter) RunFile(ctx context.Context, path string, in io.Reader, out io.Writer) (types.ExitCode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ExitFailure, issue.NewErrorContext().
			WithOperation("run script").
			WithResource(path).
			WithIssue(issue.ScriptNotFoundId).
			Wrap(err).
			BuildError()
	}

	it.logger.Debug("run script", "file", path)
	code, err := it.RunString(ctx, string(data), in, out)
	if err != nil && !errors.Is(err, ErrExited) {
		return code, issue.NewErrorContext().
			WithOperation("run script").
			WithResource(path).
			WithIssue(issue.Classify(err)).
			Wrap(err).
			BuildError()
	}
	return code, err
}

// Expand interpolates %{name} references in s.
func (it *Interpreter) Expand(s string) (string, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.store.Interpolate(s)
}

// Names lists every callable command.
func (it *Interpreter) Names() []string {
	return it.reg.Names()
}

// LastStatus returns the status of the last command run.
func (it *Interpreter) LastStatus() types.ExitCode {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.exec.LastStatus()
}

// Exited reports whether "exit" has run.
func (it *Interpreter) Exited() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.exited
}

// ExitCode returns the status passed to "exit".
func (it *Interpreter) ExitCode() types.ExitCode {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.exitCode
}

// Variables returns a copy of the raw variable table.
func (it *Interpreter) Variables() map[string]string {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.store.Map()
}

// Close releases loaded extern libraries.
func (it *Interpreter) Close() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.reg.Close()
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
