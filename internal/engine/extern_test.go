// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"mxcmd/internal/ast"
	"mxcmd/internal/vars"
)

type (
	fakeLibrary struct {
		symbols map[string]any
		closed  *int
	}

	fakeLoader struct {
		libs   map[string]fakeLibrary
		loads  int
		closed int
	}
)

func (l fakeLibrary) Lookup(symbol string) (any, error) {
	s, ok := l.symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not present", symbol)
	}
	return s, nil
}

func (l fakeLibrary) Close() error {
	*l.closed++
	return nil
}

func (f *fakeLoader) Load(path string) (Library, error) {
	lib, ok := f.libs[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	f.loads++
	lib.closed = &f.closed
	return lib, nil
}

func newFakeLoader() *fakeLoader {
	reverse := func(args []string, _ io.Reader, out io.Writer) int {
		for i := len(args) - 1; i >= 0; i-- {
			fmt.Fprintln(out, args[i])
		}
		return 7
	}
	varFn := func(_ []string, in io.Reader, out io.Writer) int {
		data, _ := io.ReadAll(in)
		fmt.Fprint(out, strings.ToUpper(string(data)))
		return 0
	}
	return &fakeLoader{libs: map[string]fakeLibrary{
		"libtext.so": {symbols: map[string]any{
			"Reverse": reverse,
			"Shout":   &varFn,
			"Version": "1.0",
		}},
	}}
}

func TestRegisterExternCommand(t *testing.T) {
	t.Parallel()

	loader := newFakeLoader()
	r := NewRegistry(vars.NewStore(), WithLibraryLoader(loader))
	if err := r.RegisterExternCommand("rev", "libtext.so", "Reverse"); err != nil {
		t.Fatalf("RegisterExternCommand() error: %v", err)
	}
	if err := r.RegisterExternCommand("shout", "libtext.so", "Shout"); err != nil {
		t.Fatalf("RegisterExternCommand(var symbol) error: %v", err)
	}
	if loader.loads != 1 {
		t.Errorf("library loaded %d times, want 1", loader.loads)
	}

	out, code, err := run(t, r, cmd("rev", ast.Lit("a"), ast.Lit("b")))
	if err != nil {
		t.Fatal(err)
	}
	if out != "b\na\n" || code != 7 {
		t.Errorf("rev = %q (status %d)", out, code)
	}

	e, ok := r.Lookup("shout")
	if !ok || e.Tier != TierExtern {
		t.Errorf("Lookup(shout) = %+v, %v", e, ok)
	}
	if got := r.Externs(); len(got) != 2 || got[0].Name != "rev" || got[1].Symbol != "Shout" {
		t.Errorf("Externs() = %+v", got)
	}

	if err := r.Clone().Close(); err != nil || loader.closed != 0 {
		t.Errorf("closing a clone released libraries (err %v, closed %d)", err, loader.closed)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if loader.closed != 1 {
		t.Errorf("Close() released %d libraries, want 1", loader.closed)
	}
}

func TestRegisterExternCommandFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		library string
		symbol  string
		wantErr error
	}{
		{name: "missing library", library: "libnope.so", symbol: "Reverse", wantErr: ErrLibraryLoad},
		{name: "missing symbol", library: "libtext.so", symbol: "Nope", wantErr: ErrSymbolNotFound},
		{name: "wrong signature", library: "libtext.so", symbol: "Version", wantErr: ErrSymbolSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewRegistry(vars.NewStore(), WithLibraryLoader(newFakeLoader()))
			err := r.RegisterExternCommand("x", tt.library, tt.symbol)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			var regErr *RegistrationError
			if !errors.As(err, &regErr) || regErr.Library != tt.library {
				t.Errorf("error = %#v, want *RegistrationError for %s", err, tt.library)
			}
			if _, ok := r.Lookup("x"); ok {
				t.Error("failed registration left an entry behind")
			}
		})
	}
}

func TestSimpleRegistrationReplacesExtern(t *testing.T) {
	t.Parallel()

	r := NewRegistry(vars.NewStore(), WithLibraryLoader(newFakeLoader()))
	if err := r.RegisterExternCommand("rev", "libtext.so", "Reverse"); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterCommand("rev", nil); err != nil {
		t.Fatal(err)
	}
	if len(r.Externs()) != 0 {
		t.Error("replaced extern still listed")
	}
}
