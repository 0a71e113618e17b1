// SPDX-License-Identifier: MPL-2.0

package builtins

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"mxcmd/internal/ast"
	"mxcmd/internal/engine"
	"mxcmd/pkg/types"
)

type (
	// Command is implemented by every builtin.
	Command interface {
		Name() string
		Summary() string
		Usage() string
		SupportedFlags() []FlagInfo
	}

	// SimpleCommand receives resolved arguments.
	SimpleCommand interface {
		Command
		Run(ctx context.Context, args []string, in io.Reader, out io.Writer) error
	}

	// TypedCommand receives raw arguments.
	TypedCommand interface {
		Command
		RunTyped(ctx context.Context, args []ast.Argument, in io.Reader, out io.Writer) error
	}

	// FlagInfo describes a flag accepted by a builtin.
	FlagInfo struct {
		Name        string
		Description string
		TakesValue  bool
	}

	// Options configures the builtin set.
	Options struct {
		// OnExit is called by "exit". When nil, exit only sets the status.
		OnExit func(code types.ExitCode)
		// Argv is exposed to scripts through "argv".
		Argv []string
		// HelpStyle is the glamour style used by "help". Defaults to "notty".
		HelpStyle string
		// DumpFile is written by "dump" when no file is named.
		DumpFile string
	}

	// ExitStatus is returned by a builtin to end with Code and no message.
	ExitStatus struct {
		Code types.ExitCode
	}

	// base carries the descriptive fields shared by every builtin.
	base struct {
		name    string
		summary string
		usage   string
		flags   []FlagInfo
	}
)

// errUsage is returned when arguments do not fit the usage line.
var errUsage = errors.New("usage")

// Error implements the error interface.
func (e *ExitStatus) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

func (b *base) Name() string               { return b.name }
func (b *base) Summary() string            { return b.summary }
func (b *base) Usage() string              { return b.usage }
func (b *base) SupportedFlags() []FlagInfo { return b.flags }

// usageError reports a malformed call with the usage line.
func (b *base) usageError() error {
	return fmt.Errorf("%w: %s", errUsage, b.usage)
}

// newFlagSet returns a silent flag set for b. Unknown flags are left to the
// caller to report.
func (b *base) newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet(b.name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// All returns every builtin configured with opts.
func All(opts Options) []Command {
	if opts.HelpStyle == "" {
		opts.HelpStyle = "notty"
	}
	help := newHelpCommand(opts.HelpStyle)
	all := []Command{
		// text
		newEchoCommand(), newPrintCommand(), newPrintfCommand(),
		newCatCommand(), newGrepCommand(), newSedCommand(), newSortCommand(),
		newHeadCommand(), newTailCommand(), newWcCommand(), newUniqCommand(),
		newTrCommand(), newCutCommand(), newSeqCommand(), newTeeCommand(),
		// strings
		newAtCommand(), newLenCommand(), newIndexCommand(), newStrlenCommand(),
		newStrfindCommand(false), newStrfindCommand(true), newStrtokCommand(),
		newTestCommand(),
		// files
		newPwdCommand(), newCdCommand(), newLsCommand("ls"), newLsCommand("list"),
		newMkdirCommand(), newRmCommand(), newTouchCommand(), newCpCommand(),
		newMvCommand(), newFindCommand(), newBasenameCommand(), newDirnameCommand(),
		// variables
		newSetCommand(), newGetCommand(), newUnsetCommand(), newClearCommand(),
		newVarsCommand(), newSearchCommand(), newDumpCommand(opts.DumpFile),
		newExportCommand(), newImportCommand(),
		// language
		newDefineCommand(), newUndefineCommand(), newSourceCommand(), newExternCommand(),
		newCommandsCommand(), help, newExitCommand(opts.OnExit),
		newStatusCommand("true", types.ExitSuccess), newStatusCommand("false", types.ExitFailure),
		newArgvCommand(opts.Argv),
		// embedded tools
		newShCommand("sh"), newShCommand("exec"), newAwkCommand(),
	}

	help.builtins = make(map[string]Command, len(all))
	for _, c := range all {
		help.builtins[c.Name()] = c
	}
	return all
}

// Register adds every builtin to reg.
func Register(reg *engine.Registry, opts Options) error {
	for _, c := range All(opts) {
		if err := register(reg, c); err != nil {
			return err
		}
	}
	return nil
}

func register(reg *engine.Registry, c Command) error {
	meta := []engine.Option{engine.WithSummary(c.Summary()), engine.WithUsage(c.Usage())}
	switch c := c.(type) {
	case TypedCommand:
		return reg.RegisterTypedCommand(c.Name(), func(ctx context.Context, args []ast.Argument, in io.Reader, out io.Writer) types.ExitCode {
			return status(c.Name(), out, c.RunTyped(ctx, args, in, out))
		}, meta...)
	case SimpleCommand:
		return reg.RegisterCommand(c.Name(), func(ctx context.Context, args []string, in io.Reader, out io.Writer) types.ExitCode {
			return status(c.Name(), out, c.Run(ctx, args, in, out))
		}, meta...)
	default:
		return fmt.Errorf("builtin %s implements neither Run nor RunTyped", c.Name())
	}
}

// status converts a builtin result into an exit status, writing any error
// message to out.
func status(name string, out io.Writer, err error) types.ExitCode {
	if err == nil {
		return types.ExitSuccess
	}
	var st *ExitStatus
	if errors.As(err, &st) {
		return st.Code
	}
	fmt.Fprintf(out, "%s: %v\n", name, err)
	return types.ExitFailure
}

// handlerContext returns the engine handler context or an error when the
// builtin is invoked outside an executor.
func handlerContext(ctx context.Context) (*engine.HandlerContext, error) {
	hc := engine.GetHandlerContext(ctx)
	if hc == nil {
		return nil, errors.New("not running inside an executor")
	}
	return hc, nil
}
