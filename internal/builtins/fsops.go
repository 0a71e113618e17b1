// SPDX-License-Identifier: MPL-2.0

package builtins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type (
	pwdCommand      struct{ base }
	cdCommand       struct{ base }
	basenameCommand struct{ base }
	dirnameCommand  struct{ base }
)

var errMissingOperand = errors.New("missing operand")

// eachOperand runs fn for every operand, reporting failures as
// "<cmd>: <err>" lines. The status is 1 when any operand failed.
func eachOperand(name string, out io.Writer, operands []string, fn func(string) error) error {
	failed := false
	for _, op := range operands {
		if err := fn(op); err != nil {
			fmt.Fprintf(out, "%s: %v\n", name, err)
			failed = true
		}
	}
	if failed {
		return &ExitStatus{Code: 1}
	}
	return nil
}

func newPwdCommand() *pwdCommand {
	return &pwdCommand{base{name: "pwd", summary: "print the working directory", usage: "pwd"}}
}

// Run executes the pwd command.
func (c *pwdCommand) Run(_ context.Context, _ []string, _ io.Reader, out io.Writer) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, dir)
	return err
}

func newCdCommand() *cdCommand {
	return &cdCommand{base{name: "cd", summary: "change the working directory", usage: "cd DIR"}}
}

// Run executes the cd command. The working directory is process wide.
func (c *cdCommand) Run(_ context.Context, args []string, _ io.Reader, _ io.Writer) error {
	if len(args) != 1 {
		return errors.New("expected exactly one argument")
	}
	return os.Chdir(args[0])
}

func newBasenameCommand() *basenameCommand {
	return &basenameCommand{base{name: "basename", summary: "strip directory and suffix from a path", usage: "basename PATH [SUFFIX]"}}
}

// Run executes the basename command.
func (c *basenameCommand) Run(_ context.Context, args []string, _ io.Reader, out io.Writer) error {
	if len(args) == 0 || len(args) > 2 {
		return c.usageError()
	}
	name := filepath.Base(args[0])
	if len(args) == 2 && name != args[1] {
		name = strings.TrimSuffix(name, args[1])
	}
	_, err := fmt.Fprintln(out, name)
	return err
}

func newDirnameCommand() *dirnameCommand {
	return &dirnameCommand{base{name: "dirname", summary: "strip the last element from a path", usage: "dirname PATH..."}}
}

// Run executes the dirname command.
func (c *dirnameCommand) Run(_ context.Context, args []string, _ io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return errMissingOperand
	}
	for _, p := range args {
		fmt.Fprintln(out, filepath.Dir(p))
	}
	return nil
}
