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

	"github.com/u-root/u-root/pkg/core"
	"github.com/u-root/u-root/pkg/core/cat"
	"github.com/u-root/u-root/pkg/core/cp"
	ufind "github.com/u-root/u-root/pkg/core/find"
	"github.com/u-root/u-root/pkg/core/ls"
	"github.com/u-root/u-root/pkg/core/mkdir"
	"github.com/u-root/u-root/pkg/core/mv"
	"github.com/u-root/u-root/pkg/core/rm"
	"github.com/u-root/u-root/pkg/core/touch"
)

type (
	// baseWrapper runs a u-root pkg/core command as a builtin.
	baseWrapper struct {
		base
		newCore func() core.Command
	}

	// cpCommand refuses to copy a file onto itself before delegating.
	cpCommand struct{ baseWrapper }
)

// configureCommand points cmd at the builtin's streams and the process
// working directory. Diagnostics share the output stream.
func configureCommand(cmd core.Command, in io.Reader, out io.Writer) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	cmd.SetIO(in, out, out)
	cmd.SetWorkingDir(dir)
	cmd.SetLookupEnv(os.LookupEnv)
	return nil
}

// wrapError strips a leading "<name>: " that would be repeated when the
// status is reported.
func wrapError(name string, err error) error {
	if err == nil {
		return nil
	}
	if msg, ok := strings.CutPrefix(err.Error(), name+": "); ok {
		return errors.New(msg)
	}
	return err
}

// Run executes the wrapped command.
func (w *baseWrapper) Run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	cmd := w.newCore()
	if err := configureCommand(cmd, in, out); err != nil {
		return err
	}
	return wrapError(w.name, cmd.RunContext(ctx, args...))
}

func newCatCommand() *baseWrapper {
	return &baseWrapper{
		base: base{
			name:    "cat",
			summary: "concatenate files to output",
			usage:   "cat [FILE...]",
			flags:   []FlagInfo{{Name: "u", Description: "unbuffered output (ignored)"}},
		},
		newCore: cat.New,
	}
}

func newLsCommand(name string) *baseWrapper {
	return &baseWrapper{
		base: base{
			name:    name,
			summary: "list directory entries",
			usage:   name + " [-a] [-l] [-R] [-h] [-Q] [PATH...]",
			flags: []FlagInfo{
				{Name: "l", Description: "long listing format"},
				{Name: "a", Description: "include entries starting with '.'"},
				{Name: "R", Description: "list subdirectories recursively"},
				{Name: "h", Description: "human-readable sizes"},
				{Name: "Q", Description: "quote names"},
			},
		},
		newCore: ls.New,
	}
}

func newMkdirCommand() *baseWrapper {
	return &baseWrapper{
		base: base{
			name:    "mkdir",
			summary: "create directories",
			usage:   "mkdir [-p] [-m MODE] DIR...",
			flags: []FlagInfo{
				{Name: "p", Description: "create parents as needed"},
				{Name: "m", Description: "set file mode", TakesValue: true},
			},
		},
		newCore: mkdir.New,
	}
}

func newRmCommand() *baseWrapper {
	return &baseWrapper{
		base: base{
			name:    "rm",
			summary: "remove files or directories",
			usage:   "rm [-r] [-f] PATH...",
			flags: []FlagInfo{
				{Name: "r", Description: "remove directories and their contents"},
				{Name: "R", Description: "same as -r"},
				{Name: "f", Description: "ignore missing files"},
			},
		},
		newCore: rm.New,
	}
}

func newTouchCommand() *baseWrapper {
	return &baseWrapper{
		base: base{
			name:    "touch",
			summary: "create files or update their times",
			usage:   "touch [-c] [-a] [-m] [-t TIME] [-r FILE] FILE...",
			flags: []FlagInfo{
				{Name: "c", Description: "do not create missing files"},
				{Name: "a", Description: "change only the access time"},
				{Name: "m", Description: "change only the modification time"},
				{Name: "t", Description: "use TIME instead of now", TakesValue: true},
				{Name: "r", Description: "use the times of FILE", TakesValue: true},
			},
		},
		newCore: touch.New,
	}
}

func newMvCommand() *baseWrapper {
	return &baseWrapper{
		base: base{
			name:    "mv",
			summary: "move or rename files",
			usage:   "mv [-f] [-n] SOURCE... DEST",
			flags: []FlagInfo{
				{Name: "f", Description: "overwrite without asking"},
				{Name: "n", Description: "do not overwrite existing files"},
			},
		},
		newCore: mv.New,
	}
}

func newFindCommand() *baseWrapper {
	return &baseWrapper{
		base: base{
			name:    "find",
			summary: "find files by name, type or mode",
			usage:   "find [DIR...] [-name PATTERN] [-type f|d|l] [-mode MODE] [-l]",
			flags: []FlagInfo{
				{Name: "name", Description: "match file name pattern", TakesValue: true},
				{Name: "type", Description: "match file type (f, d, l)", TakesValue: true},
				{Name: "mode", Description: "match file mode", TakesValue: true},
				{Name: "l", Description: "long listing format"},
			},
		},
		newCore: ufind.New,
	}
}

func newCpCommand() *cpCommand {
	return &cpCommand{baseWrapper{
		base: base{
			name:    "cp",
			summary: "copy files",
			usage:   "cp [-r] [-f] [-n] [-P] SOURCE... DEST",
			flags: []FlagInfo{
				{Name: "r", Description: "copy directories recursively"},
				{Name: "R", Description: "same as -r"},
				{Name: "f", Description: "overwrite without asking"},
				{Name: "n", Description: "do not overwrite existing files"},
				{Name: "P", Description: "do not follow symlinks"},
			},
		},
		newCore: cp.New,
	}}
}

// Run executes the cp command. Copying a file onto itself would truncate it,
// so that case fails before any file is opened for writing.
func (c *cpCommand) Run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	var operands []string
	for _, a := range args {
		if !strings.HasPrefix(a, "-") || a == "-" {
			operands = append(operands, a)
		}
	}
	if len(operands) >= 2 {
		dest := operands[len(operands)-1]
		for _, src := range operands[:len(operands)-1] {
			if sameFile(src, intoDir(src, dest)) {
				return fmt.Errorf("'%s' and '%s' are the same file", src, dest)
			}
		}
	}
	return c.baseWrapper.Run(ctx, args, in, out)
}

// intoDir returns dest/base(src) when dest is an existing directory.
func intoDir(src, dest string) string {
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return filepath.Join(dest, filepath.Base(src))
	}
	return dest
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
