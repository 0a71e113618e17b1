// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"io"

	"mxcmd/internal/ast"
	"mxcmd/internal/vars"
	"mxcmd/pkg/types"
)

// UserCommand is a command defined at run time from a stored tree.
type UserCommand struct {
	Name   string
	Params []string
	Body   ast.Node

	entry Entry
}

// runUserDefined binds the first min(len(args), len(params)) parameters as
// variables to their resolved arguments, runs the body in a fresh executor over a clone of the registry
// and restores every bound parameter afterwards. Parameters without a
// matching argument keep whatever value they had.
func (r *Registry) runUserDefined(ctx context.Context, e *Executor, uc *UserCommand, args []ast.Argument, in io.Reader, out io.Writer) types.ExitCode {
	store := r.store
	k := min(len(args), len(uc.Params))

	saved := make([]vars.Binding, 0, k)
	defer func() { store.Restore(saved) }()

	for i := range k {
		param := uc.Params[i]
		saved = append(saved, store.Snapshot(param)...)

		value, err := e.Resolve(ctx, args[i])
		if err != nil {
			fmt.Fprintf(out, "%s: error setting parameter '%s': %v\n", uc.Name, param, err)
			return types.ExitFailure
		}
		store.Set(param, value)
	}

	body := NewExecutor(r.Clone())
	code, err := body.Execute(ctx, uc.Body, in, out)
	if err != nil {
		// A canceled context is reported by whoever canceled it.
		if ctx.Err() == nil {
			fmt.Fprintf(out, "%s: execution failed: %v\n", uc.Name, err)
		}
		return types.ExitFailure
	}
	return code
}
