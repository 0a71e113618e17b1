// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"mxcmd/internal/ast"
	"mxcmd/pkg/types"
)

// Executor runs trees against a Registry. It remembers the status of the
// last command it ran. An Executor is not safe for concurrent use.
type Executor struct {
	reg        *Registry
	lastStatus types.ExitCode
}

// NewExecutor returns an executor dispatching through reg.
func NewExecutor(reg *Registry) *Executor {
	return &Executor{reg: reg}
}

// Registry returns the registry the executor dispatches through.
func (e *Executor) Registry() *Registry { return e.reg }

// LastStatus returns the status of the most recently completed command.
func (e *Executor) LastStatus() types.ExitCode { return e.lastStatus }

// Execute runs root reading in and writing out. Command failures are
// reported through the status; the error is reserved for failures that
// abort the run: unopenable redirection files, circular variable
// references and context cancellation.
func (e *Executor) Execute(ctx context.Context, root ast.Node, in io.Reader, out io.Writer) (types.ExitCode, error) {
	return e.run(e.bind(ctx), root, in, out)
}

// bind installs the handler context for e in ctx.
func (e *Executor) bind(ctx context.Context) context.Context {
	return WithHandlerContext(ctx, &HandlerContext{
		Store:    e.reg.store,
		Registry: e.reg,
		Executor: e,
		Logger:   e.reg.logger,
	})
}

func (e *Executor) run(ctx context.Context, n ast.Node, in io.Reader, out io.Writer) (types.ExitCode, error) {
	if err := ctx.Err(); err != nil {
		return types.ExitFailure, err
	}

	switch n := n.(type) {
	case *ast.Command:
		code, err := e.reg.dispatch(ctx, e, n.Name, n.Args, in, out)
		if err != nil {
			return types.ExitFailure, fmt.Errorf("%s: %w", n.Name, err)
		}
		e.lastStatus = code
		return code, nil
	case *ast.Pipeline:
		return e.runPipeline(ctx, n, in, out)
	case *ast.Sequence:
		code := types.ExitSuccess
		for _, item := range n.Items {
			var err error
			code, err = e.run(ctx, item, in, out)
			if err != nil {
				return code, err
			}
		}
		return code, nil
	case *ast.Redirection:
		return e.runRedirection(ctx, n, in, out)
	case *ast.LogicalAnd:
		code, err := e.run(ctx, n.Left, in, out)
		if err != nil || code != types.ExitSuccess {
			return code, err
		}
		return e.run(ctx, n.Right, in, out)
	case *ast.Assignment:
		value, err := e.reg.store.Interpolate(n.Value)
		if err != nil {
			return types.ExitFailure, fmt.Errorf("%s: %w", n.Name, err)
		}
		e.reg.store.Set(n.Name, value)
		e.lastStatus = types.ExitSuccess
		return types.ExitSuccess, nil
	default:
		return types.ExitFailure, fmt.Errorf("unsupported node %T", n)
	}
}

// runPipeline drains each stage into a buffer that becomes the whole input
// of the next stage.
func (e *Executor) runPipeline(ctx context.Context, p *ast.Pipeline, in io.Reader, out io.Writer) (types.ExitCode, error) {
	code := types.ExitSuccess
	input := in
	for i, stage := range p.Stages {
		if i == len(p.Stages)-1 {
			return e.run(ctx, stage, input, out)
		}
		var buf bytes.Buffer
		var err error
		code, err = e.run(ctx, stage, input, &buf)
		if err != nil {
			return code, err
		}
		input = &buf
	}
	return code, nil
}

func (e *Executor) runRedirection(ctx context.Context, r *ast.Redirection, in io.Reader, out io.Writer) (code types.ExitCode, err error) {
	name, err := e.reg.store.Interpolate(r.File)
	if err != nil {
		return types.ExitFailure, err
	}

	var f *os.File
	switch r.Mode {
	case ast.Input:
		f, err = os.Open(name)
	case ast.Output:
		f, err = os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	case ast.Append:
		f, err = os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	default:
		return types.ExitFailure, fmt.Errorf("unsupported redirection mode %s", r.Mode)
	}
	if err != nil {
		return types.ExitFailure, &RedirectionError{File: name, Mode: r.Mode, Err: err}
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = &RedirectionError{File: name, Mode: r.Mode, Opened: true, Err: closeErr}
		}
	}()

	e.reg.logger.Debug("redirect", "mode", r.Mode, "file", name)
	if r.Mode == ast.Input {
		return e.run(ctx, r.Inner, f, out)
	}
	return e.run(ctx, r.Inner, in, f)
}

// Resolve turns a raw argument into a string. Literals have %{name}
// references interpolated, variables expand to their value (or "" when
// unset), and substitutions run in a fresh executor with empty input and
// have trailing newlines removed.
func (e *Executor) Resolve(ctx context.Context, arg ast.Argument) (string, error) {
	switch arg.Kind {
	case ast.Variable:
		return e.reg.store.Resolve(arg.Value)
	case ast.CommandSubst:
		return e.Capture(ctx, arg.Subst)
	default:
		return e.reg.store.Interpolate(arg.Value)
	}
}

// ResolveAll resolves args in order, stopping at the first failure.
func (e *Executor) ResolveAll(ctx context.Context, args []ast.Argument) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		v, err := e.Resolve(ctx, a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Capture runs n in a fresh executor with empty input and returns its
// output without trailing CR/LF characters.
func (e *Executor) Capture(ctx context.Context, n ast.Node) (string, error) {
	if n == nil {
		return "", ErrEmptySubstitution
	}
	var buf bytes.Buffer
	child := NewExecutor(e.reg)
	if _, err := child.Execute(ctx, n, strings.NewReader(""), &buf); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\r\n"), nil
}

// executorFor returns the executor running ctx when it dispatches through
// reg, or a new one.
func executorFor(ctx context.Context, reg *Registry) *Executor {
	if hc := GetHandlerContext(ctx); hc != nil && hc.Executor != nil && hc.Registry == reg {
		return hc.Executor
	}
	return NewExecutor(reg)
}
