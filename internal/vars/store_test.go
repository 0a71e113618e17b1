// SPDX-License-Identifier: MPL-2.0

package vars

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		vars  map[string]string
		input string
		want  string
	}{
		{name: "no references", input: "plain text", want: "plain text"},
		{name: "single", vars: map[string]string{"x": "1"}, input: "a%{x}b", want: "a1b"},
		{name: "nested", vars: map[string]string{"X": "1", "Y": "%{X}2"}, input: "%{Y}", want: "12"},
		{name: "missing is empty", input: "[%{nope}]", want: "[]"},
		{name: "repeated name is not a cycle", vars: map[string]string{"a": "x"}, input: "%{a}%{a}", want: "xx"},
		{name: "unterminated reference copied through", vars: map[string]string{"a": "x"}, input: "%{a}%{b", want: "x%{b"},
		{name: "diamond", vars: map[string]string{"a": "%{b}%{c}", "b": "%{d}", "c": "%{d}", "d": "z"}, input: "%{a}", want: "zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewStore()
			for k, v := range tt.vars {
				s.Set(k, v)
			}
			got, err := s.Interpolate(tt.input)
			if err != nil {
				t.Fatalf("Interpolate(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Interpolate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandCircular(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Set("A", "%{B}")
	s.Set("B", "%{A}")
	s.Set("self", "x%{self}")

	for _, input := range []string{"%{A}", "%{self}"} {
		_, err := s.Interpolate(input)
		if !errors.Is(err, ErrCircularReference) {
			t.Errorf("Interpolate(%q) error = %v, want ErrCircularReference", input, err)
		}
	}

	_, err := s.Get("A")
	var circ *CircularReferenceError
	if !errors.As(err, &circ) {
		t.Fatalf("Get(A) error = %v, want *CircularReferenceError", err)
	}
	if circ.Name != "A" {
		t.Errorf("circular name = %q, want A", circ.Name)
	}
}

func TestGetStrictAndResolvePermissive(t *testing.T) {
	t.Parallel()

	s := NewStore()
	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	v, err := s.Resolve("missing")
	if err != nil || v != "" {
		t.Errorf("Resolve(missing) = %q, %v; want empty, nil", v, err)
	}

	s.Set("greeting", "hi %{who}")
	s.Set("who", "there")
	if v, _ := s.Get("greeting"); v != "hi there" {
		t.Errorf("Get(greeting) = %q, want %q", v, "hi there")
	}
	if raw, _ := s.Lookup("greeting"); raw != "hi %{who}" {
		t.Errorf("Lookup(greeting) = %q, want raw value", raw)
	}
}

func TestUnsetAndClear(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Set("a", "1")
	s.Set("b", "2")

	if err := s.Unset("a"); err != nil {
		t.Fatalf("Unset(a) error: %v", err)
	}
	if err := s.Unset("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Unset(a) error = %v, want ErrNotFound", err)
	}
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", s.Len())
	}
}

func TestSnapshotRestore(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Set("p", "outer")

	saved := s.Snapshot("p", "q")
	s.Set("p", "inner")
	s.Set("q", "new")
	s.Restore(saved)

	if v, _ := s.Lookup("p"); v != "outer" {
		t.Errorf("p = %q after restore, want outer", v)
	}
	if s.Has("q") {
		t.Error("q should be unset after restore")
	}
}

func TestSnapshotRestoreDuplicateNames(t *testing.T) {
	t.Parallel()

	s := NewStore()
	first := s.Snapshot("p")
	s.Set("p", "bound")
	second := s.Snapshot("p")
	s.Set("p", "rebound")

	s.Restore(append(first, second...))
	if s.Has("p") {
		t.Error("p should be back to unset")
	}
}

func TestInProgressIsImmutable(t *testing.T) {
	t.Parallel()

	base := InProgress{}.With("a")
	left := base.With("b")
	right := base.With("c")

	if !left.Contains("a") || !left.Contains("b") || left.Contains("c") {
		t.Error("left branch has wrong members")
	}
	if right.Contains("b") {
		t.Error("right branch sees sibling name")
	}
	if (InProgress{}).Contains("a") {
		t.Error("zero value should be empty")
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	s := NewStore()
	var empty bytes.Buffer
	if err := s.List(&empty); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(empty.String(), "(no variables defined)") {
		t.Errorf("empty List() = %q", empty.String())
	}

	s.Set("alpha", "1")
	s.Set("apple", "%{alpha}2")
	s.Set("beta", "b")

	var buf bytes.Buffer
	if err := s.List(&buf); err != nil {
		t.Fatal(err)
	}
	want := "  --- A ---\n" +
		"      0: alpha = \"1\"\n" +
		"      1: apple = \"12\"\n" +
		"\n" +
		"  --- B ---\n" +
		"      2: beta  = \"b\"\n"
	if buf.String() != want {
		t.Errorf("List() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Set("host", "example.org")
	s.Set("url", "https://%{host}/")
	s.Set("port", "8080")

	var buf bytes.Buffer
	if err := s.Search(&buf, `host`); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "url: https://example.org/\n"; got != want {
		t.Errorf("Search(host) = %q, want %q", got, want)
	}

	if err := s.Search(&buf, "("); err == nil {
		t.Error("Search with invalid pattern should fail")
	}
}

func TestDump(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Set("b", "%{a}")
	s.Set("a", "line1\nline2")

	path := filepath.Join(t.TempDir(), "vars.txt")
	if err := s.Dump(path); err != nil {
		t.Fatalf("Dump() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), "a: line1\\nline2\nb: %{a}\n"; got != want {
		t.Errorf("dump = %q, want %q", got, want)
	}

	if err := s.Dump(filepath.Join(t.TempDir(), "missing", "vars.txt")); err == nil {
		t.Error("Dump into a missing directory should fail")
	}
}

func TestExportImport(t *testing.T) {
	t.Parallel()

	for _, ext := range []string{".toml", ".yaml", ".yml"} {
		t.Run(ext, func(t *testing.T) {
			t.Parallel()

			src := NewStore()
			src.Set("name", "mx")
			src.Set("ref", "%{name}!")

			path := filepath.Join(t.TempDir(), "vars"+ext)
			if err := src.Export(path); err != nil {
				t.Fatalf("Export() error: %v", err)
			}

			dst := NewStore()
			dst.Set("kept", "yes")
			n, err := dst.Import(path)
			if err != nil {
				t.Fatalf("Import() error: %v", err)
			}
			if n != 2 {
				t.Errorf("Import() = %d, want 2", n)
			}
			if v, _ := dst.Get("ref"); v != "mx!" {
				t.Errorf("ref = %q, want mx!", v)
			}
			if !dst.Has("kept") {
				t.Error("Import dropped an existing variable")
			}
		})
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	t.Parallel()

	s := NewStore()
	err := s.Export(filepath.Join(t.TempDir(), "vars.json"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Export(.json) error = %v, want ErrUnsupportedFormat", err)
	}
}
