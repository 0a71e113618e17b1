// SPDX-License-Identifier: MPL-2.0

package console

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	gossh "golang.org/x/crypto/ssh"

	"mxcmd/internal/interp"
	"mxcmd/internal/testutil"
	"mxcmd/pkg/types"
)

const testToken = "s3cret"

func factory(context.Context) (*interp.Interpreter, error) { return interp.New() }

func startServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()
	if cfg.NewInterpreter == nil {
		cfg.NewInterpreter = factory
	}
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(testutil.DeferStop(t, srv))
	return srv
}

func dial(t *testing.T, addr, password string) (*gossh.Client, error) {
	t.Helper()
	return gossh.Dial("tcp", addr, &gossh.ClientConfig{
		User:            "tester",
		Auth:            []gossh.AuthMethod{gossh.Password(password)},
		HostKeyCallback: gossh.InsecureIgnoreHostKey(), //nolint:gosec // test server
		Timeout:         5 * time.Second,
	})
}

// runRemote runs cmd in a new session and returns its output and status.
func runRemote(t *testing.T, client *gossh.Client, cmd, stdin string) (string, int) {
	t.Helper()
	sess, err := client.NewSession()
	if err != nil {
		t.Fatalf("NewSession() error: %v", err)
	}
	defer sess.Close()
	sess.Stdin = strings.NewReader(stdin)

	out, err := sess.CombinedOutput(cmd)
	var exitErr *gossh.ExitError
	switch {
	case err == nil:
		return string(out), 0
	case errors.As(err, &exitErr):
		return string(out), exitErr.ExitStatus()
	default:
		t.Fatalf("run %q: %v", cmd, err)
		return "", 0
	}
}

func TestServerRunsCommands(t *testing.T) {
	t.Parallel()

	srv := startServer(t, ServerConfig{Token: testToken})
	client, err := dial(t, srv.Addr(), testToken)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	tests := []struct {
		cmd, stdin string
		want       string
		wantCode   int
	}{
		{cmd: "echo hello | tr a-z A-Z", want: "HELLO\n"},
		{cmd: "wc -l", stdin: "a\nb\n", want: "2\n"},
		{cmd: "false", wantCode: 1},
		{cmd: "echo bye; exit 4", want: "bye\n", wantCode: 4},
	}
	for _, tt := range tests {
		out, code := runRemote(t, client, tt.cmd, tt.stdin)
		if out != tt.want || code != tt.wantCode {
			t.Errorf("%q = %q (status %d), want %q (status %d)", tt.cmd, out, code, tt.want, tt.wantCode)
		}
	}
}

func TestServerSessionsAreIsolated(t *testing.T) {
	t.Parallel()

	srv := startServer(t, ServerConfig{Token: testToken})
	client, err := dial(t, srv.Addr(), testToken)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if _, code := runRemote(t, client, "set shared yes", ""); code != 0 {
		t.Fatalf("set failed with status %d", code)
	}
	if out, code := runRemote(t, client, "get shared", ""); code == 0 {
		t.Errorf("variable leaked into a new session: %q", out)
	}
}

func TestServerREPLSession(t *testing.T) {
	t.Parallel()

	srv := startServer(t, ServerConfig{Token: testToken})
	client, err := dial(t, srv.Addr(), testToken)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	sess, err := client.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	var out strings.Builder
	sess.Stdin = strings.NewReader("set x 5\necho %{x}\nexit 3\n")
	sess.Stdout = &out
	if err := sess.Shell(); err != nil {
		t.Fatalf("Shell() error: %v", err)
	}
	err = sess.Wait()
	var exitErr *gossh.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitStatus() != 3 {
		t.Fatalf("session error = %v, want exit status 3", err)
	}
	if out.String() != "5\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestServerRejectsBadToken(t *testing.T) {
	t.Parallel()

	srv := startServer(t, ServerConfig{Token: testToken})
	if client, err := dial(t, srv.Addr(), "wrong"); err == nil {
		client.Close()
		t.Fatal("dial with a wrong token succeeded")
	}
}

func TestServerHostKeyIsPersisted(t *testing.T) {
	t.Parallel()

	keyPath := filepath.Join(t.TempDir(), "host_ed25519")
	var keys []string
	for range 2 {
		srv := startServer(t, ServerConfig{Token: testToken, HostKeyPath: keyPath})
		var seen gossh.PublicKey
		client, err := gossh.Dial("tcp", srv.Addr(), &gossh.ClientConfig{
			User: "tester",
			Auth: []gossh.AuthMethod{gossh.Password(testToken)},
			HostKeyCallback: func(_ string, _ net.Addr, key gossh.PublicKey) error {
				seen = key
				return nil
			},
		})
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		client.Close()
		keys = append(keys, gossh.FingerprintSHA256(seen))
		if err := srv.Stop(); err != nil {
			t.Fatal(err)
		}
	}
	if keys[0] != keys[1] {
		t.Errorf("host key changed across restarts: %v", keys)
	}
}

func TestServerLifecycle(t *testing.T) {
	t.Parallel()

	srv, err := NewServer(ServerConfig{NewInterpreter: factory})
	if err != nil {
		t.Fatal(err)
	}
	if srv.State() != StateCreated || srv.Addr() != "" {
		t.Fatalf("new server: state %s, addr %q", srv.State(), srv.Addr())
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if srv.State() != StateRunning {
		t.Errorf("state = %s, want running", srv.State())
	}
	if err := srv.Start(context.Background()); !errors.Is(err, ErrServerState) {
		t.Errorf("second Start() = %v, want ErrServerState", err)
	}
	if err := srv.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := srv.Stop(); err != nil {
		t.Errorf("second Stop() = %v", err)
	}
	if srv.State() != StateStopped {
		t.Errorf("state = %s, want stopped", srv.State())
	}
	if err := srv.Wait(); err != nil {
		t.Errorf("Wait() = %v", err)
	}
}

func TestServerStartFailures(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srv, err := NewServer(ServerConfig{NewInterpreter: factory})
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(ctx); !errors.Is(err, context.Canceled) || srv.State() != StateFailed {
		t.Errorf("Start(canceled) = %v, state %s", err, srv.State())
	}

	busy := startServer(t, ServerConfig{})
	_, portStr, _ := net.SplitHostPort(busy.Addr())
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	srv, err = NewServer(ServerConfig{Port: types.ListenPort(port), NewInterpreter: factory})
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(context.Background()); err == nil || srv.LastError() == nil {
		t.Error("Start() on a port in use succeeded")
	}
}

func TestServerConfigValidate(t *testing.T) {
	t.Parallel()

	_, err := NewServer(ServerConfig{Port: 70000})
	var cfgErr *InvalidServerConfigError
	if !errors.As(err, &cfgErr) || !errors.Is(err, ErrInvalidServerConfig) {
		t.Fatalf("NewServer() = %v, want *InvalidServerConfigError", err)
	}
	if len(cfgErr.FieldErrors) != 2 {
		t.Errorf("field errors = %v, want port and factory", cfgErr.FieldErrors)
	}
}

func TestServerStateString(t *testing.T) {
	t.Parallel()

	for state, want := range map[ServerState]string{
		StateCreated:    "created",
		StateStarting:   "starting",
		StateRunning:    "running",
		StateStopping:   "stopping",
		StateStopped:    "stopped",
		StateFailed:     "failed",
		ServerState(99): "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("ServerState(%d).String() = %q, want %q", state, got, want)
		}
	}
}
