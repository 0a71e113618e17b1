// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"

	"mxcmd/internal/interp"
	"mxcmd/pkg/types"
)

type (
	// InterpreterFactory builds a configured interpreter for one run.
	InterpreterFactory func(ctx context.Context) (*interp.Interpreter, error)

	// ScriptRunner runs one script file with a fresh interpreter per run, so
	// variables and definitions from an earlier run never leak into the next.
	ScriptRunner struct {
		Path   string
		New    InterpreterFactory
		Out    io.Writer
		Logger *log.Logger
	}
)

// Run executes the script once and returns its status.
func (s *ScriptRunner) Run(ctx context.Context) (types.ExitCode, error) {
	it, err := s.New(ctx)
	if err != nil {
		return types.ExitFailure, fmt.Errorf("create interpreter: %w", err)
	}
	defer func() {
		if closeErr := it.Close(); closeErr != nil {
			s.logger().Warn("close interpreter", "err", closeErr)
		}
	}()

	code, err := it.RunFile(ctx, s.Path, nil, s.Out)
	if errors.Is(err, interp.ErrExited) {
		err = nil
	}
	return code, err
}

// OnChange adapts Run to a ChangeFunc. A non-zero status is logged, not
// returned, so the watcher keeps going.
func (s *ScriptRunner) OnChange(ctx context.Context, changed []string) error {
	s.logger().Info("re-running script", "script", s.Path, "changed", changed)
	code, err := s.Run(ctx)
	if err != nil {
		return err
	}
	if !code.IsSuccess() {
		s.logger().Warn("script failed", "script", s.Path, "status", code)
	}
	return nil
}

// Script runs the script at r.Path once and then again after every change
// under its directory until ctx is canceled. cfg.OnChange and an empty
// cfg.BaseDir are filled in from r.
func Script(ctx context.Context, r *ScriptRunner, cfg Config) error {
	if cfg.BaseDir == "" {
		cfg.BaseDir = filepath.Dir(r.Path)
	}
	cfg.OnChange = r.OnChange
	if cfg.Logger == nil {
		cfg.Logger = r.Logger
	}

	w, err := New(cfg)
	if err != nil {
		return err
	}

	if err := r.OnChange(ctx, []string{filepath.Base(r.Path)}); err != nil {
		r.logger().Error("initial run failed", "err", err)
	}
	return w.Run(ctx)
}

func (s *ScriptRunner) logger() *log.Logger {
	if s.Logger == nil {
		return log.New(io.Discard)
	}
	return s.Logger
}
