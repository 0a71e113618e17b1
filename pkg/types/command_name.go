// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// reservedNameChars are the characters the scanner treats as operators;
// a command registered under a name containing them could never be called.
const reservedNameChars = "|;<>()\"'#%$"

// ErrInvalidCommandName is the sentinel error wrapped by InvalidCommandNameError.
var ErrInvalidCommandName = errors.New("invalid command name")

type (
	// CommandName is the name a command is registered and invoked under.
	CommandName string

	// InvalidCommandNameError is returned when a CommandName is empty or
	// contains whitespace or operator characters.
	InvalidCommandNameError struct {
		Value  CommandName
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidCommandNameError) Error() string {
	return fmt.Sprintf("invalid command name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidCommandName for errors.Is() compatibility.
func (e *InvalidCommandNameError) Unwrap() error { return ErrInvalidCommandName }

// Validate reports whether the name can be produced by the scanner as a
// single bare word.
func (n CommandName) Validate() error {
	if n == "" {
		return &InvalidCommandNameError{Value: n, Reason: "must not be empty"}
	}
	if strings.IndexFunc(string(n), unicode.IsSpace) >= 0 {
		return &InvalidCommandNameError{Value: n, Reason: "must not contain whitespace"}
	}
	if i := strings.IndexAny(string(n), reservedNameChars); i >= 0 {
		return &InvalidCommandNameError{Value: n, Reason: fmt.Sprintf("must not contain %q", n[i])}
	}
	return nil
}

// String returns the name as a plain string.
func (n CommandName) String() string { return string(n) }
