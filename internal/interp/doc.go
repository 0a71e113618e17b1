// SPDX-License-Identifier: MPL-2.0

// Package interp wires a variable store, a command registry with the
// builtin set and an executor into one Interpreter.
//
// An Interpreter serializes every run behind a mutex, so hosts that accept
// input from several goroutines (the watcher, the SSH console) can share
// it. Running "exit" stops the current run and marks the interpreter as
// exited; hosts check Exited to end their loop.
package interp
