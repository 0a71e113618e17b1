// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestExitCodeValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		value     ExitCode
		wantValid bool
	}{
		{name: "zero is valid", value: 0, wantValid: true},
		{name: "255 is valid", value: 255, wantValid: true},
		{name: "negative is invalid", value: -1, wantValid: false},
		{name: "256 is invalid", value: 256, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.value.Validate()
			if (err == nil) != tt.wantValid {
				t.Fatalf("ExitCode(%d).Validate() error = %v, wantValid %v", tt.value, err, tt.wantValid)
			}
			if !tt.wantValid && !errors.Is(err, ErrInvalidExitCode) {
				t.Errorf("error does not wrap ErrInvalidExitCode: %v", err)
			}
		})
	}
}

func TestExitCodeProcess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code ExitCode
		want int
	}{
		{0, 0},
		{1, 1},
		{255, 255},
		{256, 0},
		{-1, 255},
	}

	for _, tt := range tests {
		if got := tt.code.Process(); got != tt.want {
			t.Errorf("ExitCode(%d).Process() = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestExitCodeFromBool(t *testing.T) {
	t.Parallel()

	if ExitCodeFromBool(true) != ExitSuccess {
		t.Error("ExitCodeFromBool(true) should be ExitSuccess")
	}
	if ExitCodeFromBool(false) != ExitFailure {
		t.Error("ExitCodeFromBool(false) should be ExitFailure")
	}
}

func TestCommandNameValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		value     CommandName
		wantValid bool
	}{
		{name: "simple word", value: "echo", wantValid: true},
		{name: "dashes and dots", value: "my-cmd.v2", wantValid: true},
		{name: "empty", value: "", wantValid: false},
		{name: "whitespace", value: "two words", wantValid: false},
		{name: "pipe", value: "a|b", wantValid: false},
		{name: "redirect", value: "out>", wantValid: false},
		{name: "variable sigil", value: "$x", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.value.Validate()
			if (err == nil) != tt.wantValid {
				t.Fatalf("CommandName(%q).Validate() error = %v, wantValid %v", tt.value, err, tt.wantValid)
			}
			if !tt.wantValid && !errors.Is(err, ErrInvalidCommandName) {
				t.Errorf("error does not wrap ErrInvalidCommandName: %v", err)
			}
		})
	}
}

func TestListenPortValidate(t *testing.T) {
	t.Parallel()

	for _, p := range []ListenPort{0, 22, 65535} {
		if err := p.Validate(); err != nil {
			t.Errorf("ListenPort(%d).Validate() = %v, want nil", p, err)
		}
	}
	for _, p := range []ListenPort{-1, 65536} {
		if err := p.Validate(); !errors.Is(err, ErrInvalidListenPort) {
			t.Errorf("ListenPort(%d).Validate() = %v, want ErrInvalidListenPort", p, err)
		}
	}
}

func TestListenPortAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		port ListenPort
		want string
	}{
		{host: "127.0.0.1", port: 2222, want: "127.0.0.1:2222"},
		{host: "::1", port: 22, want: "[::1]:22"},
		{host: "", port: 0, want: ":0"},
	}
	for _, tt := range tests {
		if got := tt.port.Addr(tt.host); got != tt.want {
			t.Errorf("ListenPort(%d).Addr(%q) = %q, want %q", tt.port, tt.host, got, tt.want)
		}
	}
}
