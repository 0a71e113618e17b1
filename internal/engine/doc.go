// SPDX-License-Identifier: MPL-2.0

// Package engine executes parsed command trees.
//
// A Registry resolves command names in four tiers, searched in this order:
//
//   - typed commands receive their arguments unresolved and decide for
//     themselves how to treat variables and substitutions;
//   - simple commands receive resolved strings (extern commands loaded from
//     shared libraries live in this tier);
//   - user-defined commands are stored trees with named parameters.
//
// A name found in none of them writes "Command not found: <name>" to the
// command's output and yields status 1. It is not an error.
//
// An Executor walks a tree against a Registry. Pipelines are run stage by
// stage: each stage's complete output becomes the next stage's input before
// the next stage starts. Sequences run every item regardless of status.
package engine
