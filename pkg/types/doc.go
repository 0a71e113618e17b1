// SPDX-License-Identifier: MPL-2.0

// Package types holds small validated value types shared by the engine,
// the host CLI and the console server.
package types
