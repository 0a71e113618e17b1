// SPDX-License-Identifier: MPL-2.0

// Package builtins provides the command set every interpreter starts with.
//
// Commands are small types implementing either Run (resolved string
// arguments, registered as simple commands) or RunTyped (raw arguments,
// registered as typed commands). A returned error is written to the
// command's output as "<name>: <error>" and turns into status 1; return an
// *ExitStatus to report a different status without a message.
//
// Groups:
//
//   - text: echo, print, printf, cat, grep, sed, sort, head, tail, wc, uniq,
//     tr, cut, seq, tee
//   - strings: at, len, index, strlen, strfind, strfindr, strtok, test
//   - files: pwd, cd, ls, list, mkdir, rm, touch, cp, mv, find, basename,
//     dirname
//   - variables: set, get, unset, clear, vars, search, dump, export, import
//   - language: define, undefine, source, extern, commands, help, exit,
//     true, false, argv
//   - embedded tools: sh (alias exec), awk
package builtins
