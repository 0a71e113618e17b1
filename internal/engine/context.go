// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"

	"github.com/charmbracelet/log"

	"mxcmd/internal/ast"
	"mxcmd/internal/vars"
)

type (
	// HandlerContext gives command handlers access to the interpreter that
	// is running them. The executor installs one in the context before every
	// dispatch.
	HandlerContext struct {
		// Store is the variable store shared by every command.
		Store *vars.Store
		// Registry is the registry the command was resolved in.
		Registry *Registry
		// Executor is the executor running the current tree.
		Executor *Executor
		// Logger is the engine logger.
		Logger *log.Logger
	}

	handlerContextKey struct{}
)

// WithHandlerContext stores hc in ctx.
func WithHandlerContext(ctx context.Context, hc *HandlerContext) context.Context {
	return context.WithValue(ctx, handlerContextKey{}, hc)
}

// GetHandlerContext returns the HandlerContext stored in ctx, or nil when
// the command is not being run by an Executor.
func GetHandlerContext(ctx context.Context) *HandlerContext {
	hc, _ := ctx.Value(handlerContextKey{}).(*HandlerContext)
	return hc
}

// Resolve turns a raw argument into its string value.
func (hc *HandlerContext) Resolve(ctx context.Context, arg ast.Argument) (string, error) {
	return hc.Executor.Resolve(ctx, arg)
}

// ResolveAll resolves every argument in order.
func (hc *HandlerContext) ResolveAll(ctx context.Context, args []ast.Argument) ([]string, error) {
	return hc.Executor.ResolveAll(ctx, args)
}
