// SPDX-License-Identifier: MPL-2.0

package builtins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/benhoyt/goawk/interp"
	awkparser "github.com/benhoyt/goawk/parser"
	"mvdan.cc/sh/v3/expand"
	shinterp "mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"mxcmd/internal/vars"
	"mxcmd/pkg/types"
)

type (
	// shCommand runs its arguments, joined by spaces, as a POSIX shell
	// script in process. Interpreter variables are visible to the script
	// as environment variables.
	shCommand struct{ base }

	awkCommand struct{ base }
)

func newShCommand(name string) *shCommand {
	return &shCommand{base{
		name:    name,
		summary: "run a POSIX shell script",
		usage:   name + " SCRIPT...",
	}}
}

// Run executes the shell script. Its exit status becomes the command status.
func (c *shCommand) Run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return c.usageError()
	}
	script := strings.Join(args, " ")

	prog, err := syntax.NewParser().Parse(strings.NewReader(script), c.name)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	env := os.Environ()
	if hc, hcErr := handlerContext(ctx); hcErr == nil {
		env = append(env, environ(hc.Store)...)
	}

	runner, err := shinterp.New(
		shinterp.Env(expand.ListEnviron(env...)),
		shinterp.StdIO(in, out, out),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus shinterp.ExitStatus
		if errors.As(err, &exitStatus) {
			return &ExitStatus{Code: types.ExitCode(exitStatus)}
		}
		return err
	}
	return nil
}

// environ renders every variable that is a valid environment name as
// NAME=expanded-value. Variables that fail to expand are skipped.
func environ(store *vars.Store) []string {
	var env []string
	for _, name := range store.Names() {
		if !syntax.ValidName(name) {
			continue
		}
		v, err := store.Get(name)
		if err != nil {
			continue
		}
		env = append(env, name+"="+v)
	}
	return env
}

func newAwkCommand() *awkCommand {
	return &awkCommand{base{
		name:    "awk",
		summary: "run an AWK program",
		usage:   "awk [-F SEP] [-v NAME=VALUE]... PROGRAM [FILE...]",
		flags: []FlagInfo{
			{Name: "F", Description: "field separator", TakesValue: true},
			{Name: "v", Description: "assign a variable before the program starts", TakesValue: true},
		},
	}}
}

// Run executes the awk command. Interpreter variables are available to the
// program through ENVIRON.
func (c *awkCommand) Run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := c.newFlagSet()
	sep := fs.String("F", "", "field separator")
	var assigns assignList
	fs.Var(&assigns, "v", "assignment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return c.usageError()
	}

	prog, err := awkparser.ParseProgram([]byte(fs.Arg(0)), nil)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	config := &interp.Config{
		Stdin:   in,
		Output:  out,
		Error:   out,
		Argv0:   c.name,
		Args:    fs.Args()[1:],
		Environ: os.Environ(),
	}
	if hc, hcErr := handlerContext(ctx); hcErr == nil {
		config.Environ = append(config.Environ, environ(hc.Store)...)
	}
	if *sep != "" {
		config.Vars = append(config.Vars, "FS", *sep)
	}
	for _, a := range assigns {
		name, value, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("invalid assignment: %s", a)
		}
		config.Vars = append(config.Vars, name, value)
	}

	status, err := interp.ExecProgram(prog, config)
	if err != nil {
		return err
	}
	if status != 0 {
		return &ExitStatus{Code: types.ExitCode(status)}
	}
	return nil
}

// assignList collects repeated -v flags.
type assignList []string

func (a *assignList) String() string { return strings.Join(*a, ",") }

func (a *assignList) Set(v string) error {
	*a = append(*a, v)
	return nil
}
