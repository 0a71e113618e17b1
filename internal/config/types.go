// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"mxcmd/pkg/types"
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	// DefaultPrompt is shown by the console when no prompt is configured.
	DefaultPrompt = "> "
	// DefaultDumpFile is written by "dump" when no file is named.
	DefaultDumpFile = "variables.txt"
	// DefaultConsolePort is the SSH console port.
	DefaultConsolePort types.ListenPort = 2222
	// DefaultDebounce is how long the watcher waits for changes to settle.
	DefaultDebounce = 250 * time.Millisecond
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidExternEntry is the sentinel error wrapped by InvalidExternEntryError.
	ErrInvalidExternEntry = errors.New("invalid extern entry")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level the CLI logger prints.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// ExternEntry names a command loaded from a Go plugin at startup.
	ExternEntry struct {
		// Library is the plugin path.
		Library string `json:"library" mapstructure:"library"`
		// Symbol is the exported function or variable.
		Symbol string `json:"symbol" mapstructure:"symbol"`
		// Name is the command name it is registered under.
		Name types.CommandName `json:"name" mapstructure:"name"`
	}

	// InvalidExternEntryError collects the field errors of one ExternEntry.
	InvalidExternEntryError struct {
		Entry       ExternEntry
		FieldErrors []error
	}

	// VariableEntry is an initial variable binding. Names are kept in a list
	// rather than a map because Viper folds map keys to lower case.
	VariableEntry struct {
		Name  string `json:"name" mapstructure:"name"`
		Value string `json:"value" mapstructure:"value"`
	}

	// ConsoleConfig configures the SSH console server.
	ConsoleConfig struct {
		Host        string           `json:"host" mapstructure:"host"`
		Port        types.ListenPort `json:"port" mapstructure:"port"`
		HostKeyPath string           `json:"host_key_path" mapstructure:"host_key_path"`
		// Token is the session password. Empty disables authentication.
		Token string `json:"token" mapstructure:"token"`
	}

	// WatchConfig configures "run --watch".
	WatchConfig struct {
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		Ignore   []string      `json:"ignore" mapstructure:"ignore"`
	}

	// Config holds the application configuration.
	Config struct {
		Prompt    string          `json:"prompt" mapstructure:"prompt"`
		LogLevel  LogLevel        `json:"log_level" mapstructure:"log_level"`
		Startup   []string        `json:"startup" mapstructure:"startup"`
		Externs   []ExternEntry   `json:"externs" mapstructure:"externs"`
		Variables []VariableEntry `json:"variables" mapstructure:"variables"`
		DumpFile  string          `json:"dump_file" mapstructure:"dump_file"`
		Console   ConsoleConfig   `json:"console" mapstructure:"console"`
		Watch     WatchConfig     `json:"watch" mapstructure:"watch"`
	}

	// InvalidConfigError collects field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Level converts to the charmbracelet/log level. Unknown values map to
// warn.
func (l LogLevel) Level() log.Level {
	switch l {
	case LogLevelDebug:
		return log.DebugLevel
	case LogLevelInfo:
		return log.InfoLevel
	case LogLevelError:
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// IsValid checks that library and symbol are set and that name is a
// callable command name.
func (e ExternEntry) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(e.Library) == "" {
		errs = append(errs, errors.New("library must not be empty"))
	}
	if strings.TrimSpace(e.Symbol) == "" {
		errs = append(errs, errors.New("symbol must not be empty"))
	}
	if err := e.Name.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidExternEntryError{Entry: e, FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidExternEntryError.
func (e *InvalidExternEntryError) Error() string {
	return fmt.Sprintf("invalid extern entry %q: %v", e.Entry.Name, errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidExternEntry for errors.Is() compatibility.
func (e *InvalidExternEntryError) Unwrap() error { return ErrInvalidExternEntry }

// IsValid returns whether the Config has valid fields. The checks repeat
// the schema so that configs built in code are held to the same rules.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for _, e := range c.Externs {
		if valid, fieldErrs := e.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	seen := make(map[string]bool, len(c.Variables))
	for i, v := range c.Variables {
		switch {
		case v.Name == "":
			errs = append(errs, fmt.Errorf("variables[%d]: name must not be empty", i))
		case seen[v.Name]:
			errs = append(errs, fmt.Errorf("variables[%d]: duplicate name %q", i, v.Name))
		}
		seen[v.Name] = true
	}
	if err := c.Console.Port.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative: %s", c.Watch.Debounce))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Prompt:    DefaultPrompt,
		LogLevel:  LogLevelWarn,
		Startup:   []string{},
		Externs:   []ExternEntry{},
		Variables: []VariableEntry{},
		DumpFile:  DefaultDumpFile,
		Console: ConsoleConfig{
			Host:        "localhost",
			Port:        DefaultConsolePort,
			HostKeyPath: "", // ConfigDir()/console_ed25519 when empty
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
			Ignore:   []string{},
		},
	}
}
