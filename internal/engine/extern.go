// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"plugin"
	"slices"
	"sync"

	"mxcmd/pkg/types"
)

type (
	// ExternFunc is the signature an extern library must export under the
	// symbol named at registration.
	ExternFunc = func(args []string, in io.Reader, out io.Writer) int

	// Library is an opened shared library.
	Library interface {
		Lookup(symbol string) (any, error)
		Close() error
	}

	// LibraryLoader opens shared libraries by path.
	LibraryLoader interface {
		Load(path string) (Library, error)
	}

	// PluginLoader loads Go plugins built with -buildmode=plugin.
	PluginLoader struct{}

	// ExternInfo describes a loaded extern command.
	ExternInfo struct {
		Name    string
		Library string
		Symbol  string
	}

	pluginLibrary struct {
		p *plugin.Plugin
	}

	externCommand struct {
		info ExternInfo
	}

	// libraryCache keeps each library open once, shared by a registry and
	// its clones.
	libraryCache struct {
		mu     sync.Mutex
		byPath map[string]Library
		order  []string
	}
)

// Load implements LibraryLoader.
func (PluginLoader) Load(path string) (Library, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return pluginLibrary{p: p}, nil
}

func (l pluginLibrary) Lookup(symbol string) (any, error) {
	return l.p.Lookup(symbol)
}

// Close is a no-op: the Go runtime cannot unload plugins.
func (pluginLibrary) Close() error { return nil }

func newLibraryCache() *libraryCache {
	return &libraryCache{byPath: make(map[string]Library)}
}

func (c *libraryCache) open(loader LibraryLoader, path string) (Library, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if lib, ok := c.byPath[path]; ok {
		return lib, nil
	}
	lib, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	c.byPath[path] = lib
	c.order = append(c.order, path)
	return lib, nil
}

func (c *libraryCache) closeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, path := range slices.Backward(c.order) {
		if err := c.byPath[path].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
	}
	clear(c.byPath)
	c.order = nil
	return errors.Join(errs...)
}

// RegisterExternCommand loads library, looks up symbol and registers it as
// the simple command name. Every failure is reported here; a registered
// extern command never fails to dispatch.
func (r *Registry) RegisterExternCommand(name, library, symbol string) error {
	if err := types.CommandName(name).Validate(); err != nil {
		return &RegistrationError{Name: name, Library: library, Symbol: symbol, Err: err}
	}

	lib, err := r.libs.open(r.loader, library)
	if err != nil {
		return &RegistrationError{Name: name, Library: library, Symbol: symbol, Err: fmt.Errorf("%w: %w", ErrLibraryLoad, err)}
	}
	sym, err := lib.Lookup(symbol)
	if err != nil {
		return &RegistrationError{Name: name, Library: library, Symbol: symbol, Err: fmt.Errorf("%w: %w", ErrSymbolNotFound, err)}
	}
	fn, ok := asExternFunc(sym)
	if !ok {
		return &RegistrationError{
			Name: name, Library: library, Symbol: symbol,
			Err: fmt.Errorf("%w: %T", ErrSymbolSignature, sym),
		}
	}

	info := ExternInfo{Name: name, Library: library, Symbol: symbol}
	entry := Entry{Name: name, Tier: TierExtern, Summary: fmt.Sprintf("%s from %s", symbol, library)}
	handler := func(_ context.Context, args []string, in io.Reader, out io.Writer) types.ExitCode {
		return types.ExitCode(fn(args, in, out))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.simple[name] = simpleCommand{entry: entry, fn: handler}
	r.externs[name] = &externCommand{info: info}
	r.logger.Debug("extern registered", "command", name, "library", library, "symbol", symbol)
	return nil
}

// Externs lists the extern commands currently registered, sorted by name.
func (r *Registry) Externs() []ExternInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ExternInfo, 0, len(r.externs))
	for _, e := range r.externs {
		out = append(out, e.info)
	}
	slices.SortFunc(out, func(a, b ExternInfo) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// Close releases every library loaded through r. It is a no-op on clones.
func (r *Registry) Close() error {
	if !r.owner {
		return nil
	}
	return r.libs.closeAll()
}

// asExternFunc accepts an exported function or an exported variable
// holding one.
func asExternFunc(sym any) (ExternFunc, bool) {
	switch fn := sym.(type) {
	case func([]string, io.Reader, io.Writer) int:
		return fn, true
	case *func([]string, io.Reader, io.Writer) int:
		if fn == nil || *fn == nil {
			return nil, false
		}
		return *fn, true
	default:
		return nil, false
	}
}
