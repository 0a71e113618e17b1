// SPDX-License-Identifier: MPL-2.0

package builtins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

type (
	// echoCommand writes its arguments separated by spaces.
	echoCommand struct{ base }

	// printCommand writes each argument on its own line.
	printCommand struct{ base }

	// printfCommand formats its arguments.
	printfCommand struct{ base }

	teeCommand struct{ base }

	seqCommand struct{ base }
)

func newEchoCommand() *echoCommand {
	return &echoCommand{base{name: "echo", summary: "write arguments to output", usage: "echo [ARG...]"}}
}

// Run executes the echo command.
func (c *echoCommand) Run(_ context.Context, args []string, _ io.Reader, out io.Writer) error {
	_, err := io.WriteString(out, strings.Join(args, " ")+"\n")
	return err
}

func newPrintCommand() *printCommand {
	return &printCommand{base{
		name:    "print",
		summary: "write each argument on its own line",
		usage:   "print [--i] VALUE...",
		flags: []FlagInfo{
			{Name: "i", Description: "print the next value as an integer"},
			{Name: "f", Description: "print the next value verbatim"},
		},
	}}
}

// Run executes the print command. The --i and --f markers may appear
// between values and apply to the next one only.
func (c *printCommand) Run(_ context.Context, args []string, _ io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("missing value")
	}

	failed := false
	asInt := false
	for _, arg := range args {
		switch arg {
		case "--i", "-i":
			asInt = true
			continue
		case "--f", "-f":
			asInt = false
			continue
		}
		if !asInt {
			fmt.Fprintln(out, arg)
			continue
		}
		asInt = false
		n, ok := leadingInt(arg)
		if !ok {
			fmt.Fprintf(out, "print: can't convert '%s' to integer\n", arg)
			failed = true
			continue
		}
		fmt.Fprintln(out, n)
	}
	if failed {
		return &ExitStatus{Code: 1}
	}
	return nil
}

func newPrintfCommand() *printfCommand {
	return &printfCommand{base{
		name:    "printf",
		summary: "format and print arguments",
		usage:   "printf FORMAT [ARG...]",
	}}
}

// Run executes the printf command. Supported verbs are d i f s x X o c and
// %%; width, precision and the - + flags are honored. Arguments that do not
// convert print as zero.
func (c *printfCommand) Run(_ context.Context, args []string, _ io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return c.usageError()
	}
	_, err := io.WriteString(out, formatPrintf(unescapeString(args[0]), args[1:]))
	return err
}

// formatPrintf expands format with args. Missing arguments leave their verb
// out of the output.
func formatPrintf(format string, args []string) string {
	var b strings.Builder
	next := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(format) {
			b.WriteByte('%')
			break
		}

		j := i + 1
		for j < len(format) && strings.IndexByte("0123456789.-+", format[j]) >= 0 {
			j++
		}
		if j >= len(format) {
			b.WriteString(format[i:])
			break
		}
		spec, verb := format[i+1:j], format[j]
		i = j

		if verb == '%' {
			b.WriteByte('%')
			continue
		}
		if strings.IndexByte("difsxXoc", verb) < 0 {
			b.WriteByte('%')
			b.WriteByte(verb)
			continue
		}
		if next >= len(args) {
			continue
		}
		arg := args[next]
		next++

		switch verb {
		case 'd', 'i':
			n, _ := leadingInt(arg)
			fmt.Fprintf(&b, "%"+spec+"d", n)
		case 'f':
			f, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
			if err != nil {
				f = 0
			}
			fmt.Fprintf(&b, "%"+spec+"f", f)
		case 's':
			fmt.Fprintf(&b, "%"+spec+"s", arg)
		case 'x', 'X', 'o':
			n, _ := leadingInt(arg)
			fmt.Fprintf(&b, "%"+spec+string(verb), uint64(max(n, 0)))
		case 'c':
			if arg != "" {
				b.WriteByte(arg[0])
			}
		}
	}
	return b.String()
}

// leadingInt parses the integer prefix of s the way stoi does: leading
// blanks are skipped and trailing garbage is ignored.
func leadingInt(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t\n")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// unescapeString resolves backslash escapes in printf formats.
func unescapeString(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'v':
			b.WriteByte('\v')
		case 'f':
			b.WriteByte('\f')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case '0':
			b.WriteByte(0)
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func newTeeCommand() *teeCommand {
	return &teeCommand{base{
		name:    "tee",
		summary: "copy input to output and files",
		usage:   "tee [-a] FILE...",
		flags:   []FlagInfo{{Name: "a", Description: "append to files"}},
	}}
}

// Run executes the tee command.
func (c *teeCommand) Run(_ context.Context, args []string, in io.Reader, out io.Writer) (err error) {
	fs := c.newFlagSet()
	appendMode := fs.Bool("a", false, "append")
	_ = fs.Parse(args) //nolint:errcheck // unknown flags are ignored

	openFlags := os.O_CREATE | os.O_WRONLY
	if *appendMode {
		openFlags |= os.O_APPEND
	} else {
		openFlags |= os.O_TRUNC
	}

	writers := []io.Writer{out}
	var files []*os.File
	defer func() {
		for _, f := range files {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}
	}()

	for _, name := range fs.Args() {
		f, openErr := os.OpenFile(name, openFlags, 0o644)
		if openErr != nil {
			return openErr
		}
		files = append(files, f)
		writers = append(writers, f)
	}

	_, err = io.Copy(io.MultiWriter(writers...), in)
	return err
}

func newSeqCommand() *seqCommand {
	return &seqCommand{base{
		name:    "seq",
		summary: "print a sequence of numbers",
		usage:   "seq [-s SEP] [FIRST [INCREMENT]] LAST",
		flags:   []FlagInfo{{Name: "s", Description: "separator", TakesValue: true}},
	}}
}

// Run executes the seq command.
func (c *seqCommand) Run(ctx context.Context, args []string, _ io.Reader, out io.Writer) error {
	fs := c.newFlagSet()
	separator := fs.String("s", "\n", "separator")
	_ = fs.Parse(args) //nolint:errcheck // unknown flags are ignored

	first, increment := 1.0, 1.0
	var last float64
	nums := make([]float64, 0, 3)
	for _, a := range fs.Args() {
		n, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %s", a)
		}
		nums = append(nums, n)
	}
	switch len(nums) {
	case 1:
		last = nums[0]
	case 2:
		first, last = nums[0], nums[1]
	case 3:
		first, increment, last = nums[0], nums[1], nums[2]
	default:
		return c.usageError()
	}
	if increment == 0 {
		return errors.New("increment must not be zero")
	}

	count := 0
	for n := first; (increment > 0 && n <= last+1e-9) || (increment < 0 && n >= last-1e-9); n += increment {
		if err := ctx.Err(); err != nil {
			return err
		}
		if count > 0 {
			io.WriteString(out, *separator)
		}
		io.WriteString(out, formatNumber(math.Round(n*1e9)/1e9))
		count++
	}
	if count > 0 {
		fmt.Fprintln(out)
	}
	return nil
}

// formatNumber prints integral values without a fraction.
func formatNumber(n float64) string {
	if n == math.Trunc(n) && !math.IsInf(n, 0) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
