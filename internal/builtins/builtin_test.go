// SPDX-License-Identifier: MPL-2.0

package builtins

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"mxcmd/internal/engine"
	"mxcmd/internal/parser"
	"mxcmd/internal/vars"
	"mxcmd/pkg/types"
)

func newTestRegistry(t *testing.T, opts Options, regOpts ...engine.RegistryOption) *engine.Registry {
	t.Helper()

	reg := engine.NewRegistry(vars.NewStore(), regOpts...)
	if err := Register(reg, opts); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

// runScript parses and executes src, failing the test on parse or runtime
// errors.
func runScript(t *testing.T, reg *engine.Registry, src string) (string, types.ExitCode) {
	t.Helper()
	return runScriptInput(t, reg, src, "")
}

func runScriptInput(t *testing.T, reg *engine.Registry, src, input string) (string, types.ExitCode) {
	t.Helper()

	root, err := parser.ParseString(src)
	if err != nil {
		t.Fatalf("ParseString(%q) error: %v", src, err)
	}
	var out bytes.Buffer
	code, err := engine.NewExecutor(reg).Execute(context.Background(), root, strings.NewReader(input), &out)
	if err != nil {
		t.Fatalf("Execute(%q) error: %v", src, err)
	}
	return out.String(), code
}

func TestAllNamesAreUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for _, c := range All(Options{}) {
		if seen[c.Name()] {
			t.Errorf("duplicate builtin %q", c.Name())
		}
		seen[c.Name()] = true
		if c.Summary() == "" || c.Usage() == "" {
			t.Errorf("builtin %q lacks summary or usage", c.Name())
		}
		_, simple := c.(SimpleCommand)
		_, typed := c.(TypedCommand)
		if simple == typed {
			t.Errorf("builtin %q must implement exactly one of Run and RunTyped", c.Name())
		}
	}
}

func TestRegisterTiers(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, Options{})
	tests := []struct {
		name string
		tier engine.Tier
	}{
		{"echo", engine.TierSimple},
		{"set", engine.TierTyped},
		{"define", engine.TierTyped},
		{"test", engine.TierTyped},
		{"sh", engine.TierSimple},
	}
	for _, tt := range tests {
		e, ok := reg.Lookup(tt.name)
		if !ok {
			t.Errorf("%s not registered", tt.name)
			continue
		}
		if e.Tier != tt.tier {
			t.Errorf("%s tier = %s, want %s", tt.name, e.Tier, tt.tier)
		}
		if e.Usage == "" {
			t.Errorf("%s registered without usage", tt.name)
		}
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		want    types.ExitCode
		wantOut string
	}{
		{name: "nil", err: nil, want: 0},
		{name: "exit status", err: &ExitStatus{Code: 4}, want: 4},
		{name: "wrapped exit status", err: errors.Join(errors.New("x"), &ExitStatus{Code: 2}), want: 2},
		{name: "plain error", err: errors.New("boom"), want: 1, wantOut: "cmd: boom\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			if got := status("cmd", &out, tt.err); got != tt.want {
				t.Errorf("status() = %d, want %d", got, tt.want)
			}
			if out.String() != tt.wantOut {
				t.Errorf("output = %q, want %q", out.String(), tt.wantOut)
			}
		})
	}
}

func TestUsageErrorReportsUsageLine(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, Options{})
	out, code := runScript(t, reg, "strlen")
	if code != types.ExitFailure {
		t.Errorf("status = %d", code)
	}
	if out != "strlen: usage: strlen STRING\n" {
		t.Errorf("output = %q", out)
	}
}
