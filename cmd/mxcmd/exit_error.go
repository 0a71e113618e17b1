// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"mxcmd/pkg/types"
)

// ExitError carries a script's non-zero status out of a RunE handler so that
// Execute can pass it to os.Exit. With a nil Err nothing is printed.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitStatus turns a script status into a RunE result.
func exitStatus(code types.ExitCode) error {
	if code.IsSuccess() {
		return nil
	}
	return &ExitError{Code: code}
}
