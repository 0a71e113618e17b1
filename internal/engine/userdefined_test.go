// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"strings"
	"testing"

	"mxcmd/internal/ast"
	"mxcmd/pkg/types"
)

func TestUserDefinedBindsAndRestores(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	store := r.Store()
	store.Set("who", "outer")
	store.Set("src", "from-var")

	body := cmd("echo", ast.Lit("hello"), ast.Var("who"))
	if err := r.RegisterUserDefinedCommand("greet", []string{"who"}, body); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		arg  ast.Argument
		want string
	}{
		{name: "literal", arg: ast.Lit("world"), want: "hello world\n"},
		{name: "variable", arg: ast.Var("src"), want: "hello from-var\n"},
		{name: "unset variable binds empty", arg: ast.Var("nope"), want: "hello \n"},
		{name: "substitution", arg: ast.Subst(cmd("echo", ast.Lit("sub"))), want: "hello sub\n"},
		{name: "literal interpolated before binding", arg: ast.Lit("%{who}!"), want: "hello outer!\n"},
	}

	for _, tt := range tests {
		out, code, err := run(t, r, cmd("greet", tt.arg))
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if out != tt.want || code != types.ExitSuccess {
			t.Errorf("%s: output = %q (status %d), want %q", tt.name, out, code, tt.want)
		}
		if v, _ := store.Lookup("who"); v != "outer" {
			t.Errorf("%s: who = %q after call, want restored outer", tt.name, v)
		}
	}
}

func TestUserDefinedRestoresUnsetParameters(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	if err := r.RegisterUserDefinedCommand("f", []string{"p", "q"}, cmd("echo", ast.Var("p"), ast.Var("q"))); err != nil {
		t.Fatal(err)
	}
	r.Store().Set("q", "untouched")

	// Only p gets an argument; q keeps its value inside and after the call.
	out, _, err := run(t, r, cmd("f", ast.Lit("1")))
	if err != nil {
		t.Fatal(err)
	}
	if out != "1 untouched\n" {
		t.Errorf("output = %q", out)
	}
	if r.Store().Has("p") {
		t.Error("p should be unset again after the call")
	}
	if v, _ := r.Store().Lookup("q"); v != "untouched" {
		t.Errorf("q = %q, want untouched", v)
	}
}

func TestUserDefinedBindingFailure(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	r.Store().Set("A", "%{B}")
	r.Store().Set("B", "%{A}")
	r.Store().Set("p", "before")
	if err := r.RegisterUserDefinedCommand("f", []string{"p", "q"}, cmd("echo", ast.Lit("body ran"))); err != nil {
		t.Fatal(err)
	}

	out, code, err := run(t, r, cmd("f", ast.Lit("ok"), ast.Var("A")))
	if err != nil {
		t.Fatalf("binding failure should not be an error: %v", err)
	}
	if code != types.ExitFailure {
		t.Errorf("status = %d, want 1", code)
	}
	if strings.Contains(out, "body ran") {
		t.Error("body ran despite binding failure")
	}
	if !strings.HasPrefix(out, "f: error setting parameter 'q': circular reference") {
		t.Errorf("output = %q", out)
	}
	if v, _ := r.Store().Lookup("p"); v != "before" {
		t.Errorf("p = %q, want restored before", v)
	}
	if r.Store().Has("q") {
		t.Error("q should stay unset")
	}
}

func TestUserDefinedBodyErrorIsReported(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	body := &ast.Redirection{Inner: cmd("cat"), Mode: ast.Input, File: t.TempDir() + "/missing"}
	if err := r.RegisterUserDefinedCommand("bad", nil, body); err != nil {
		t.Fatal(err)
	}

	out, code, err := run(t, r, cmd("bad"))
	if err != nil {
		t.Fatalf("body failure should not escape the call: %v", err)
	}
	if code != types.ExitFailure || !strings.HasPrefix(out, "bad: execution failed:") {
		t.Errorf("status %d, output %q", code, out)
	}
}

func TestUserDefinedRecursionSeesOtherDefinitions(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	if err := r.RegisterUserDefinedCommand("inner", []string{"x"}, cmd("echo", ast.Lit("inner"), ast.Var("x"))); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterUserDefinedCommand("outer", []string{"x"}, cmd("inner", ast.Var("x"))); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, r, cmd("outer", ast.Lit("v")))
	if err != nil {
		t.Fatal(err)
	}
	if out != "inner v\n" {
		t.Errorf("output = %q", out)
	}
}

func TestUserDefinedStatusIsBodyStatus(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	if err := r.RegisterUserDefinedCommand("f", nil, &ast.Sequence{Items: []ast.Node{cmd("echo"), cmd("fail")}}); err != nil {
		t.Fatal(err)
	}
	if _, code, _ := run(t, r, cmd("f")); code != 3 {
		t.Errorf("status = %d, want 3", code)
	}
}

func TestUserDefinedRestoresAfterBodyAssignment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params []string
		args   []ast.Argument
		want   string
	}{
		{name: "bound parameter", params: []string{"p"}, args: []ast.Argument{ast.Lit("x")}, want: "outer"},
		{name: "parameter without argument", params: []string{"p"}, want: "changed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newTestRegistry(t)
			store := r.Store()
			store.Set("p", "outer")
			if err := r.RegisterUserDefinedCommand("f", tt.params, cmd("set", ast.Lit("p"), ast.Lit("changed"))); err != nil {
				t.Fatal(err)
			}

			if _, _, err := run(t, r, cmd("f", tt.args...)); err != nil {
				t.Fatal(err)
			}
			if v, _ := store.Lookup("p"); v != tt.want {
				t.Errorf("p = %q after call, want %q", v, tt.want)
			}
		})
	}
}
