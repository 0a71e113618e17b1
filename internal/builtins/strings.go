// SPDX-License-Identifier: MPL-2.0

package builtins

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"mxcmd/internal/ast"
)

type (
	// atCommand prints one line of a newline separated list.
	atCommand struct{ base }

	// lenCommand counts list items: lines when the value spans lines,
	// otherwise words.
	lenCommand struct{ base }

	indexCommand  struct{ base }
	strlenCommand struct{ base }

	strfindCommand struct {
		base
		reverse bool
	}

	strtokCommand struct{ base }

	// testCommand evaluates a condition into its exit status.
	testCommand struct{ base }
)

func newAtCommand() *atCommand {
	return &atCommand{base{name: "at", summary: "print the item at an index of a list", usage: "at LIST INDEX"}}
}

// Run executes the at command. An index outside the list prints nothing.
func (c *atCommand) Run(_ context.Context, args []string, _ io.Reader, out io.Writer) error {
	if len(args) != 2 {
		return c.usageError()
	}
	index, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	items := splitLines(args[0])
	if index >= 0 && index < len(items) {
		_, err = io.WriteString(out, items[index])
	}
	return err
}

func newLenCommand() *lenCommand {
	return &lenCommand{base{name: "len", summary: "count the items of a list", usage: "len LIST"}}
}

// Run executes the len command.
func (c *lenCommand) Run(_ context.Context, args []string, _ io.Reader, out io.Writer) error {
	if len(args) != 1 {
		return c.usageError()
	}
	n := 0
	if strings.Contains(args[0], "\n") {
		for _, line := range splitLines(args[0]) {
			if line != "" {
				n++
			}
		}
	} else {
		n = len(strings.Fields(args[0]))
	}
	_, err := fmt.Fprint(out, n)
	return err
}

func newIndexCommand() *indexCommand {
	return &indexCommand{base{name: "index", summary: "print a substring", usage: "index STRING START LENGTH"}}
}

// Run executes the index command. A start outside the string yields status 1
// and no output; a length past the end is clamped.
func (c *indexCommand) Run(_ context.Context, args []string, _ io.Reader, out io.Writer) error {
	if len(args) != 3 {
		return c.usageError()
	}
	start, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	length, err := parseIndex(args[2])
	if err != nil {
		return err
	}
	s := args[0]
	if start < 0 || start >= len(s) {
		return &ExitStatus{Code: 1}
	}
	end := len(s)
	if length >= 0 && start+length < end {
		end = start + length
	}
	_, err = io.WriteString(out, s[start:end])
	return err
}

func newStrlenCommand() *strlenCommand {
	return &strlenCommand{base{name: "strlen", summary: "print the length of a string in bytes", usage: "strlen STRING"}}
}

// Run executes the strlen command.
func (c *strlenCommand) Run(_ context.Context, args []string, _ io.Reader, out io.Writer) error {
	if len(args) != 1 {
		return c.usageError()
	}
	_, err := fmt.Fprint(out, len(args[0]))
	return err
}

func newStrfindCommand(reverse bool) *strfindCommand {
	if reverse {
		return &strfindCommand{
			base:    base{name: "strfindr", summary: "find the last occurrence at or before START", usage: "strfindr START STRING SEARCH"},
			reverse: true,
		}
	}
	return &strfindCommand{
		base: base{name: "strfind", summary: "find the first occurrence at or after START", usage: "strfind START STRING SEARCH"},
	}
}

// Run executes strfind or strfindr. The result is a byte offset or -1.
func (c *strfindCommand) Run(_ context.Context, args []string, _ io.Reader, out io.Writer) error {
	if len(args) != 3 {
		return c.usageError()
	}
	start, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, find(args[1], args[2], start, c.reverse))
	return err
}

// find mirrors string::find and string::rfind with a start position.
func find(s, sub string, start int, reverse bool) int {
	if !reverse {
		if start < 0 || start > len(s) {
			return -1
		}
		i := strings.Index(s[start:], sub)
		if i < 0 {
			return -1
		}
		return start + i
	}
	limit := len(s)
	if start >= 0 && start+len(sub) < limit {
		limit = start + len(sub)
	}
	return strings.LastIndex(s[:limit], sub)
}

func newStrtokCommand() *strtokCommand {
	return &strtokCommand{base{name: "strtok", summary: "split a string on a separator, one piece per line", usage: "strtok STRING SEPARATOR"}}
}

// Run executes the strtok command. An empty separator splits into bytes.
func (c *strtokCommand) Run(_ context.Context, args []string, _ io.Reader, out io.Writer) error {
	if len(args) != 2 {
		return c.usageError()
	}
	s, sep := args[0], args[1]
	var b strings.Builder
	if sep == "" {
		for i := range len(s) {
			b.WriteByte(s[i])
			b.WriteByte('\n')
		}
	} else {
		pieces := strings.Split(s, sep)
		// a trailing separator does not produce an empty last piece
		if pieces[len(pieces)-1] == "" {
			pieces = pieces[:len(pieces)-1]
		}
		for _, p := range pieces {
			b.WriteString(p)
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(out, b.String())
	return err
}

func newTestCommand() *testCommand {
	return &testCommand{base{
		name:    "test",
		summary: "evaluate a condition",
		usage:   "test [--z|--n|--e|--f|--d] VALUE | test LEFT (=|!=|--eq|--ne|--gt|--ge|--lt|--le) RIGHT",
	}}
}

// RunTyped executes the test command. Operators are taken from the raw
// argument text so a variable holding "=" is still an operand.
func (c *testCommand) RunTyped(ctx context.Context, args []ast.Argument, _ io.Reader, out io.Writer) error {
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}
	resolve := func(i int) (string, error) { return hc.Resolve(ctx, args[i]) }

	switch len(args) {
	case 0:
		return &ExitStatus{Code: 1}
	case 1:
		v, err := resolve(0)
		if err != nil {
			return err
		}
		return truth(v != "")
	case 2:
		v, err := resolve(1)
		if err != nil {
			return err
		}
		return testUnary(args[0].Value, v)
	}

	left, err := resolve(0)
	if err != nil {
		return err
	}
	right, err := resolve(2)
	if err != nil {
		return err
	}
	op := args[1].Value
	switch op {
	case "=", "==":
		return truth(left == right)
	case "!=":
		return truth(left != right)
	case "--eq", "--ne", "--gt", "--ge", "--lt", "--le", "-eq", "-ne", "-gt", "-ge", "-lt", "-le":
		l, lerr := strconv.ParseFloat(strings.TrimSpace(left), 64)
		r, rerr := strconv.ParseFloat(strings.TrimSpace(right), 64)
		if lerr != nil || rerr != nil {
			fmt.Fprintln(out, "test: integer expression expected")
			return &ExitStatus{Code: 2}
		}
		return truth(compare(strings.TrimLeft(op, "-"), l, r))
	default:
		fmt.Fprintf(out, "test: unknown operator: %s\n", op)
		return &ExitStatus{Code: 2}
	}
}

func testUnary(op, v string) error {
	switch strings.TrimLeft(op, "-") {
	case "z":
		return truth(v == "")
	case "n":
		return truth(v != "")
	case "e":
		_, err := os.Stat(v)
		return truth(err == nil)
	case "f":
		info, err := os.Stat(v)
		return truth(err == nil && info.Mode().IsRegular())
	case "d":
		info, err := os.Stat(v)
		return truth(err == nil && info.IsDir())
	default:
		return &ExitStatus{Code: 1}
	}
}

func compare(op string, l, r float64) bool {
	switch op {
	case "eq":
		return l == r
	case "ne":
		return l != r
	case "gt":
		return l > r
	case "ge":
		return l >= r
	case "lt":
		return l < r
	default:
		return l <= r
	}
}

// truth maps a condition to status 0 or 1.
func truth(ok bool) error {
	if ok {
		return nil
	}
	return &ExitStatus{Code: 1}
}

func parseIndex(s string) (int, error) {
	n, ok := leadingInt(s)
	if !ok {
		return 0, fmt.Errorf("invalid number: %q", s)
	}
	return int(n), nil
}

// splitLines splits on newlines the way getline does: a trailing newline
// does not start another item.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
