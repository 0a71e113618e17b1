// SPDX-License-Identifier: MPL-2.0

package console

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/logging"
	"github.com/google/uuid"

	"mxcmd/internal/interp"
	"mxcmd/pkg/types"
)

const (
	// StateCreated indicates the server has been created but not started.
	StateCreated ServerState = iota
	// StateStarting indicates Start is binding the listener.
	StateStarting
	// StateRunning indicates the server is accepting sessions.
	StateRunning
	// StateStopping indicates Stop is draining sessions.
	StateStopping
	// StateStopped is terminal.
	StateStopped
	// StateFailed is terminal; LastError holds the cause.
	StateFailed
)

const (
	defaultHost            = "127.0.0.1"
	defaultShutdownTimeout = 10 * time.Second
	defaultStartupTimeout  = 5 * time.Second
)

var (
	// ErrInvalidServerConfig is the sentinel error wrapped by InvalidServerConfigError.
	ErrInvalidServerConfig = errors.New("invalid console server config")

	// ErrServerState is returned when Start is called on a server that has
	// already been started.
	ErrServerState = errors.New("console server already started")
)

type (
	// ServerState represents the lifecycle state of the server.
	ServerState int32

	// InterpreterFactory builds a configured interpreter for one session.
	InterpreterFactory func(ctx context.Context) (*interp.Interpreter, error)

	// ServerConfig holds the immutable server settings.
	ServerConfig struct {
		// Host defaults to 127.0.0.1.
		Host string
		// Port 0 picks a free port.
		Port types.ListenPort
		// HostKeyPath is created on first start when missing. Empty uses an
		// ephemeral key.
		HostKeyPath string
		// Token is the session password. Empty accepts every client.
		Token string
		// Prompt is the REPL prompt template.
		Prompt string

		ShutdownTimeout time.Duration
		StartupTimeout  time.Duration

		// NewInterpreter is required.
		NewInterpreter InterpreterFactory

		Logger *log.Logger
	}

	// InvalidServerConfigError collects field-level validation errors.
	InvalidServerConfigError struct {
		FieldErrors []error
	}

	// Server serves interpreter sessions over SSH. A Server is single-use:
	// once stopped or failed, create a new one.
	Server struct {
		cfg    ServerConfig
		logger *log.Logger

		state atomic.Int32

		mu       sync.Mutex
		srv      *ssh.Server
		listener net.Listener
		lastErr  error

		started chan struct{}
		done    chan struct{}
		wg      sync.WaitGroup

		sessions atomic.Int64
	}
)

// String returns a human-readable representation of the server state.
func (s ServerState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Error implements the error interface.
func (e *InvalidServerConfigError) Error() string {
	return fmt.Sprintf("invalid console server config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidServerConfig for errors.Is() compatibility.
func (e *InvalidServerConfigError) Unwrap() error { return ErrInvalidServerConfig }

// Validate checks the port and that an interpreter factory is set.
func (c ServerConfig) Validate() error {
	var errs []error
	if err := c.Port.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.NewInterpreter == nil {
		errs = append(errs, errors.New("interpreter factory is required"))
	}
	if c.ShutdownTimeout < 0 || c.StartupTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if len(errs) > 0 {
		return &InvalidServerConfigError{FieldErrors: errs}
	}
	return nil
}

// NewServer validates cfg and returns a server that is not yet listening.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = defaultStartupTimeout
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "> "
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger.WithPrefix("console"),
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.state.Store(int32(StateCreated))
	return s, nil
}

// Start binds the listener and begins serving. It returns once the server
// accepts connections, or with the reason it could not.
func (s *Server) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		s.fail(fmt.Errorf("context canceled before start: %w", err))
		return s.LastError()
	}
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("%w (state: %s)", ErrServerState, s.State())
	}

	startupCtx, cancel := context.WithTimeout(ctx, s.cfg.StartupTimeout)
	defer cancel()

	addr := s.cfg.Port.Addr(s.cfg.Host)
	var lc net.ListenConfig
	listener, err := lc.Listen(startupCtx, "tcp", addr)
	if err != nil {
		s.fail(fmt.Errorf("listen on %s: %w", addr, err))
		return s.LastError()
	}

	opts := []ssh.Option{
		wish.WithAddress(listener.Addr().String()),
		wish.WithMiddleware(
			s.sessionMiddleware(),
			logging.StructuredMiddlewareWithLogger(s.logger, log.DebugLevel),
		),
	}
	if s.cfg.HostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(s.cfg.HostKeyPath))
	}
	if s.cfg.Token != "" {
		opts = append(opts,
			wish.WithPasswordAuth(s.passwordHandler),
			wish.WithPublicKeyAuth(func(ssh.Context, ssh.PublicKey) bool { return false }),
		)
	} else {
		s.logger.Warn("no console token configured, accepting every client", "address", listener.Addr())
	}

	srv, err := wish.NewServer(opts...)
	if err != nil {
		_ = listener.Close()
		s.fail(fmt.Errorf("create SSH server: %w", err))
		return s.LastError()
	}

	s.mu.Lock()
	s.srv = srv
	s.listener = listener
	s.mu.Unlock()

	s.wg.Add(1)
	go s.serve(srv, listener)

	select {
	case <-s.started:
		s.logger.Info("console listening", "address", listener.Addr())
		return nil
	case <-s.done:
		return s.LastError()
	case <-startupCtx.Done():
		_ = s.Stop()
		s.fail(fmt.Errorf("startup timeout: %w", startupCtx.Err()))
		return s.LastError()
	}
}

func (s *Server) serve(srv *ssh.Server, listener net.Listener) {
	defer s.wg.Done()

	if s.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		close(s.started)
	}
	err := srv.Serve(listener)
	if err != nil && !errors.Is(err, ssh.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		s.fail(fmt.Errorf("serve: %w", err))
	}
}

// Stop closes the listener and waits up to the shutdown timeout for open
// sessions. Safe to call more than once.
func (s *Server) Stop() error {
	for {
		current := s.State()
		switch current {
		case StateStopped, StateFailed:
			return nil
		case StateCreated:
			if s.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				s.closeDone()
				return nil
			}
		case StateStopping:
			s.wg.Wait()
			return nil
		case StateStarting, StateRunning:
			if s.state.CompareAndSwap(int32(current), int32(StateStopping)) {
				return s.shutdown()
			}
		}
	}
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	var err error
	if srv != nil {
		if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil && !errors.Is(shutdownErr, net.ErrClosed) {
			s.logger.Warn("shutdown", "err", shutdownErr)
			err = shutdownErr
			_ = srv.Close()
		}
	}
	s.wg.Wait()
	s.state.Store(int32(StateStopped))
	s.closeDone()
	s.logger.Info("console stopped")
	return err
}

// Wait blocks until the server stops and returns the failure, if any.
func (s *Server) Wait() error {
	<-s.done
	s.wg.Wait()
	return s.LastError()
}

// State returns the current server state.
func (s *Server) State() ServerState { return ServerState(s.state.Load()) }

// LastError returns the error that moved the server to StateFailed.
func (s *Server) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Addr returns the bound address, or "" before Start succeeds.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Sessions returns the number of sessions currently open.
func (s *Server) Sessions() int64 { return s.sessions.Load() }

func (s *Server) fail(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.state.Store(int32(StateFailed))
	s.closeDone()
}

func (s *Server) closeDone() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *Server) passwordHandler(ctx ssh.Context, password string) bool {
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Token)) == 1 {
		return true
	}
	s.logger.Warn("rejected session", "user", ctx.User(), "remote", ctx.RemoteAddr())
	return false
}

func (s *Server) sessionMiddleware() wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			s.handleSession(sess)
			next(sess)
		}
	}
}

// handleSession gives sess its own interpreter. A command line given to ssh
// runs as one script; otherwise the session is a REPL.
func (s *Server) handleSession(sess ssh.Session) {
	id := uuid.New()
	logger := s.logger.With("session", id.String(), "user", sess.User())
	s.sessions.Add(1)
	defer s.sessions.Add(-1)

	ctx := sess.Context()
	it, err := s.cfg.NewInterpreter(ctx)
	if err != nil {
		logger.Error("create interpreter", "err", err)
		fmt.Fprintf(sess.Stderr(), "error: %v\n", err)
		_ = sess.Exit(types.ExitFailure.Process())
		return
	}
	defer func() {
		if closeErr := it.Close(); closeErr != nil {
			logger.Warn("close interpreter", "err", closeErr)
		}
	}()

	var code types.ExitCode
	if cmd := sess.RawCommand(); cmd != "" {
		logger.Debug("run command", "command", cmd)
		code, err = it.RunString(ctx, cmd, sess, sess)
		if errors.Is(err, interp.ErrExited) {
			err = nil
		}
		if err != nil {
			fmt.Fprintf(sess.Stderr(), "error: %v\n", err)
			code = types.ExitFailure
		}
	} else {
		opts := []REPLOption{WithPrompt(s.cfg.Prompt), WithREPLLogger(logger)}
		if _, _, isPty := sess.Pty(); isPty {
			opts = append(opts, WithTerminal(sess))
		}
		code, err = NewREPL(it, sess, sess, opts...).Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("session ended with error", "err", err)
		}
	}
	logger.Info("session closed", "status", code)
	_ = sess.Exit(code.Process())
}
