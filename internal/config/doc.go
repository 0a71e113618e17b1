// SPDX-License-Identifier: MPL-2.0

// Package config handles mxcmd configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/mxcmd/config.cue (or the XDG equivalent on
// Linux, ~/Library/Application Support/mxcmd/config.cue on macOS, %APPDATA%\mxcmd\config.cue
// on Windows), falling back to ./config.cue and then to built-in defaults. The file sets
// the REPL prompt, log level, startup scripts, extern commands, initial variables, the
// default dump file, the SSH console listener and the watcher debounce.
//
// Files are validated against an embedded CUE schema (config_schema.cue) before they are
// merged into Viper, so type errors are reported with their CUE path.
package config
