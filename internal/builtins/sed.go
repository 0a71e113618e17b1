// SPDX-License-Identifier: MPL-2.0

package builtins

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

type (
	sedCommand struct{ base }

	// substitution is one parsed s/PATTERN/REPLACEMENT/[g] expression.
	substitution struct {
		re          *regexp.Regexp
		replacement string
		global      bool
	}
)

var errNoExpression = errors.New("expected substitution expression (s/pattern/replacement/[g])")

func newSedCommand() *sedCommand {
	return &sedCommand{base{
		name:    "sed",
		summary: "apply substitutions to each line",
		usage:   "sed [-n] [-i] s/PATTERN/REPLACEMENT/[g]... [FILE]",
		flags: []FlagInfo{
			{Name: "n", Description: "suppress output"},
			{Name: "i", Description: "edit FILE in place"},
		},
	}}
}

// Run executes the sed command. Several expressions apply in order.
// Replacements may refer to groups as \1 or $1 and to the whole match as &.
func (c *sedCommand) Run(_ context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := c.newFlagSet()
	quiet := fs.Bool("n", false, "quiet")
	inPlace := fs.Bool("i", false, "in place")
	_ = fs.Parse(args) //nolint:errcheck // unknown flags are ignored

	var (
		subs     []substitution
		filename string
	)
	for _, a := range fs.Args() {
		if len(a) > 1 && a[0] == 's' && !isWordByte(a[1]) {
			s, err := parseSubstitution(a)
			if err != nil {
				return err
			}
			subs = append(subs, s)
			continue
		}
		filename = a
	}
	if len(subs) == 0 {
		return errNoExpression
	}
	if *inPlace && filename == "" {
		return errors.New("-i requires a file")
	}

	src := in
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		src = bytes.NewReader(data)
	}

	var buf bytes.Buffer
	err := eachLine(src, func(line string) bool {
		for _, s := range subs {
			line = s.apply(line)
		}
		if !*quiet {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
		return true
	})
	if err != nil {
		return err
	}

	if *inPlace {
		return os.WriteFile(filename, buf.Bytes(), 0o644)
	}
	_, err = out.Write(buf.Bytes())
	return err
}

// parseSubstitution splits an expression on the delimiter that follows the
// leading 's'.
func parseSubstitution(expr string) (substitution, error) {
	delim := expr[1:2]
	parts := strings.SplitN(expr[2:], delim, 3)
	if len(parts) != 3 {
		return substitution{}, fmt.Errorf("invalid substitution format: %s", expr)
	}
	re, err := regexp.Compile(parts[0])
	if err != nil {
		return substitution{}, fmt.Errorf("error in regular expression: %w", err)
	}
	return substitution{
		re:          re,
		replacement: goTemplate(parts[1]),
		global:      strings.Contains(parts[2], "g"),
	}, nil
}

func (s substitution) apply(line string) string {
	if s.global {
		return s.re.ReplaceAllString(line, s.replacement)
	}
	loc := s.re.FindStringSubmatchIndex(line)
	if loc == nil {
		return line
	}
	dst := s.re.ExpandString(nil, s.replacement, line, loc)
	return line[:loc[0]] + string(dst) + line[loc[1]:]
}

// goTemplate rewrites sed replacement syntax into regexp.Expand syntax.
func goTemplate(repl string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		switch {
		case c == '\\' && i+1 < len(repl) && repl[i+1] >= '0' && repl[i+1] <= '9':
			fmt.Fprintf(&b, "${%c}", repl[i+1])
			i++
		case c == '\\' && i+1 < len(repl):
			b.WriteByte(repl[i+1])
			i++
		case c == '&':
			b.WriteString("${0}")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
