// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// ExitSuccess is returned by commands that completed normally.
	ExitSuccess ExitCode = 0
	// ExitFailure is the generic failure status used by the engine itself,
	// e.g. for unresolved command names.
	ExitFailure ExitCode = 1
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is the integer status produced by every command, pipeline and
	// sequence. Zero means success.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode cannot be handed to
	// the operating system (outside 0-255).
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is for programmatic detection.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside the valid range (0-255).
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == ExitSuccess }

// Process folds the status into the 0-255 range a process can exit with.
// Negative and oversized statuses wrap the way POSIX shells report them.
func (c ExitCode) Process() int {
	return int(uint8(c)) //nolint:gosec // wrap-around is intended
}

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

// ExitCodeFromBool maps a predicate result to a status: true is success.
func ExitCodeFromBool(ok bool) ExitCode {
	if ok {
		return ExitSuccess
	}
	return ExitFailure
}
