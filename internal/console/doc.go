// SPDX-License-Identifier: MPL-2.0

// Package console hosts interactive interpreter sessions: a line-oriented
// REPL over any reader and an SSH server that gives every session its own
// interpreter.
package console
