// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"

	"mxcmd/internal/ast"
)

var (
	// ErrLibraryLoad is returned when an extern library cannot be opened.
	ErrLibraryLoad = errors.New("cannot load library")
	// ErrSymbolNotFound is returned when an extern library lacks the symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrSymbolSignature is returned when an extern symbol is not a command
	// function.
	ErrSymbolSignature = errors.New("symbol has wrong signature")
	// ErrRedirection is the sentinel wrapped by RedirectionError.
	ErrRedirection = errors.New("redirection failed")
	// ErrEmptySubstitution is returned for a substitution argument without a tree.
	ErrEmptySubstitution = errors.New("command substitution has no body")
)

type (
	// RegistrationError is returned when a command cannot be registered.
	RegistrationError struct {
		Name    string
		Library string
		Symbol  string
		Err     error
	}

	// RedirectionError is returned when the file of a redirection cannot
	// be opened or closed. The wrapped command did not run if Opened is false.
	RedirectionError struct {
		File   string
		Mode   ast.RedirectMode
		Opened bool
		Err    error
	}
)

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	if e.Library != "" {
		return fmt.Sprintf("register %s from %s (%s): %v", e.Name, e.Library, e.Symbol, e.Err)
	}
	return fmt.Sprintf("register %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RegistrationError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *RedirectionError) Error() string {
	verb := "open"
	if e.Opened {
		verb = "close"
	}
	return fmt.Sprintf("%v: %s %s for %s: %v", ErrRedirection, verb, e.File, e.Mode, e.Err)
}

// Unwrap returns both ErrRedirection and the underlying cause so callers can
// match either with errors.Is.
func (e *RedirectionError) Unwrap() []error { return []error{ErrRedirection, e.Err} }
