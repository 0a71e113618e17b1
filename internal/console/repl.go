// SPDX-License-Identifier: MPL-2.0

package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"mxcmd/internal/interp"
	"mxcmd/pkg/types"
)

// maxLineSize bounds a single input line.
const maxLineSize = 1024 * 1024

type (
	// REPLOption configures a REPL.
	REPLOption func(*REPL)

	// lineSource yields input lines and shows the prompt before each one.
	lineSource interface {
		ReadLine() (string, error)
		SetPrompt(prompt string)
	}

	// scanSource reads lines from a plain reader, writing the prompt itself
	// when show is set.
	scanSource struct {
		sc     *bufio.Scanner
		out    io.Writer
		prompt string
		show   bool
	}

	// REPL reads one line at a time and runs it. Commands read empty input;
	// the REPL's own input is reserved for lines.
	REPL struct {
		it     *interp.Interpreter
		src    lineSource
		out    io.Writer
		prompt string
		logger *log.Logger

		in          io.Reader
		interactive bool
		terminal    io.ReadWriter
	}
)

func (s *scanSource) SetPrompt(prompt string) { s.prompt = prompt }

func (s *scanSource) ReadLine() (string, error) {
	if s.show {
		fmt.Fprint(s.out, s.prompt)
	}
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.sc.Text(), nil
}

// WithPrompt sets the prompt template. It is expanded against the
// interpreter's variables before every line, so "%{user}> " follows set.
func WithPrompt(prompt string) REPLOption {
	return func(r *REPL) { r.prompt = prompt }
}

// WithInteractive makes the REPL print the prompt. Without it input is read
// silently, as when a script is piped in.
func WithInteractive(interactive bool) REPLOption {
	return func(r *REPL) { r.interactive = interactive }
}

// WithTerminal reads lines through a virtual terminal on rw, which echoes
// input and handles basic editing keys. SSH sessions with a PTY use this;
// command output is then written through the terminal as well.
func WithTerminal(rw io.ReadWriter) REPLOption {
	return func(r *REPL) { r.terminal = rw }
}

// WithREPLLogger sets the logger.
func WithREPLLogger(l *log.Logger) REPLOption {
	return func(r *REPL) { r.logger = l }
}

// NewREPL returns a REPL running lines from in against it.
func NewREPL(it *interp.Interpreter, in io.Reader, out io.Writer, opts ...REPLOption) *REPL {
	r := &REPL{it: it, in: in, out: out, prompt: "> ", logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(r)
	}

	if r.terminal != nil {
		t := term.NewTerminal(r.terminal, r.prompt)
		r.src = t
		r.out = t
		return r
	}
	sc := bufio.NewScanner(r.in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	r.src = &scanSource{sc: sc, out: r.out, show: r.interactive}
	return r
}

// Run reads and runs lines until input ends, exit runs or ctx is canceled.
// The result is the exit status, or the last command's status at end of
// input. Parse errors and aborted lines are printed and the loop goes on.
func (r *REPL) Run(ctx context.Context) (types.ExitCode, error) {
	for {
		if err := ctx.Err(); err != nil {
			return r.it.LastStatus(), err
		}
		r.src.SetPrompt(r.expandPrompt())

		line, err := r.src.ReadLine()
		if errors.Is(err, io.EOF) {
			if r.interactive || r.terminal != nil {
				fmt.Fprintln(r.out)
			}
			return r.it.LastStatus(), nil
		}
		if err != nil {
			return types.ExitFailure, fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		_, err = r.it.RunString(ctx, line, nil, r.out)
		switch {
		case r.it.Exited():
			return r.it.ExitCode(), nil
		case err != nil && ctx.Err() != nil:
			return r.it.LastStatus(), ctx.Err()
		case err != nil:
			r.logger.Debug("line failed", "line", line, "err", err)
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
	}
}

func (r *REPL) expandPrompt() string {
	p, err := r.it.Expand(r.prompt)
	if err != nil {
		r.logger.Debug("prompt expansion failed", "err", err)
		return r.prompt
	}
	return p
}

// IsTerminal reports whether f is a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
