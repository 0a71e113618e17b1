// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"mxcmd/internal/testutil"
)

const eventTimeout = 5 * time.Second

// startWatcher runs a watcher for cfg and returns a stop function that
// cancels it and reports the Run error.
func startWatcher(t *testing.T, cfg Config) (stop func() error) {
	t.Helper()
	if cfg.Stdout == nil {
		cfg.Stdout = &bytes.Buffer{}
	}
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	var once sync.Once
	var runErr error
	stop = func() error {
		once.Do(func() {
			cancel()
			select {
			case runErr = <-errCh:
			case <-time.After(eventTimeout):
				runErr = errors.New("Run did not return after cancel")
			}
		})
		return runErr
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	testutil.MustWriteFile(t, dir, name, name)
}

func collect(ch <-chan []string) ([]string, bool) {
	select {
	case changed := <-ch:
		return changed, true
	case <-time.After(eventTimeout):
		return nil, false
	}
}

func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var (
		mu    sync.Mutex
		calls int
	)
	fired := make(chan []string, 10)
	stop := startWatcher(t, Config{
		BaseDir:  dir,
		Debounce: 100 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			calls++
			mu.Unlock()
			fired <- changed
			return nil
		},
	})

	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		writeFile(t, dir, name)
		time.Sleep(10 * time.Millisecond)
	}

	changed, ok := collect(fired)
	if !ok {
		t.Fatal("timed out waiting for callback")
	}
	time.Sleep(250 * time.Millisecond)
	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("callbacks = %d, want 1", calls)
	}
	if want := []string{"a.txt", "b.txt", "c.txt"}; !slices.Equal(changed, want) {
		t.Errorf("changed = %v, want %v", changed, want)
	}
}

func TestWatcherFiltering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		skipped string
		matched string
	}{
		{name: "ignore", cfg: Config{Ignore: []string{"**/*.log"}}, skipped: "debug.log", matched: "main.mx"},
		{name: "patterns", cfg: Config{Patterns: []string{"**/*.mx"}}, skipped: "data.txt", matched: "main.mx"},
		{name: "default ignores", cfg: Config{}, skipped: "main.mx.swp", matched: "main.mx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			fired := make(chan []string, 10)
			cfg := tt.cfg
			cfg.BaseDir = dir
			cfg.Debounce = 50 * time.Millisecond
			cfg.OnChange = func(_ context.Context, changed []string) error {
				fired <- changed
				return nil
			}
			stop := startWatcher(t, cfg)

			writeFile(t, dir, tt.skipped)
			time.Sleep(200 * time.Millisecond)
			writeFile(t, dir, tt.matched)

			changed, ok := collect(fired)
			if !ok {
				t.Fatalf("timed out waiting for %s", tt.matched)
			}
			if slices.Contains(changed, tt.skipped) || !slices.Contains(changed, tt.matched) {
				t.Errorf("changed = %v, want %s without %s", changed, tt.matched, tt.skipped)
			}
			if err := stop(); err != nil {
				t.Fatalf("Run() error: %v", err)
			}
		})
	}
}

func TestWatcherNewSubdirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fired := make(chan []string, 10)
	startWatcher(t, Config{
		BaseDir:  dir,
		Patterns: []string{"sub/*.mx"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})

	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "sub"), "lib.mx")

	changed, ok := collect(fired)
	if !ok {
		t.Fatal("timed out waiting for a change in the new directory")
	}
	if !slices.Contains(changed, "sub/lib.mx") {
		t.Errorf("changed = %v", changed)
	}
}

func TestWatcherContextCancel(t *testing.T) {
	t.Parallel()

	stop := startWatcher(t, Config{BaseDir: t.TempDir(), Debounce: 50 * time.Millisecond})
	time.Sleep(50 * time.Millisecond)
	if err := stop(); err != nil {
		t.Fatalf("Run() returned error on cancel: %v", err)
	}
}

func TestWatcherSkipIfBusy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var (
		mu       sync.Mutex
		calls    int
		inFlight int
		overlap  bool
	)
	firstDone := make(chan struct{})
	stop := startWatcher(t, Config{
		BaseDir:  dir,
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, _ []string) error {
			mu.Lock()
			calls++
			n := calls
			inFlight++
			overlap = overlap || inFlight > 1
			mu.Unlock()

			if n == 1 {
				time.Sleep(300 * time.Millisecond)
				close(firstDone)
			}

			mu.Lock()
			inFlight--
			mu.Unlock()
			return nil
		},
	})

	writeFile(t, dir, "first.mx")
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "second.mx")

	select {
	case <-firstDone:
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for first callback")
	}
	time.Sleep(300 * time.Millisecond)
	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if overlap {
		t.Error("callbacks ran concurrently")
	}
	if calls != 2 {
		t.Errorf("callbacks = %d, want 2 (the busy change is retried)", calls)
	}
}

func TestWatcherClearScreen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	done := make(chan struct{})
	var stdout bytes.Buffer
	stop := startWatcher(t, Config{
		BaseDir:     dir,
		Debounce:    50 * time.Millisecond,
		ClearScreen: true,
		Stdout:      &stdout,
		OnChange: func(_ context.Context, _ []string) error {
			close(done)
			return nil
		},
	})

	writeFile(t, dir, "main.mx")
	select {
	case <-done:
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for callback")
	}
	if err := stop(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout.String(), "\033[2J\033[H") {
		t.Errorf("stdout = %q, want ANSI clear sequence", stdout.String())
	}
}

func TestWatcherDoubleRun(t *testing.T) {
	t.Parallel()

	w, err := New(Config{BaseDir: t.TempDir(), Stdout: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	if err := w.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() = %v, want ErrAlreadyRunning", err)
	}
	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		cfg        Config
		wantFields int
	}{
		{name: "zero value", cfg: Config{}},
		{name: "valid globs", cfg: Config{Patterns: []string{"**/*.mx"}, Ignore: []string{"tmp/**"}, BaseDir: "/src"}},
		{name: "empty pattern", cfg: Config{Patterns: []string{""}}, wantFields: 1},
		{name: "bad glob", cfg: Config{Patterns: []string{"[invalid"}}, wantFields: 1},
		{name: "everything wrong", cfg: Config{Patterns: []string{"", "{a"}, Ignore: []string{" "}, BaseDir: "   "}, wantFields: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantFields == 0 {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			var cfgErr *InvalidWatchConfigError
			if !errors.As(err, &cfgErr) || !errors.Is(err, ErrInvalidWatchConfig) {
				t.Fatalf("Validate() = %v, want *InvalidWatchConfigError", err)
			}
			if len(cfgErr.FieldErrors) != tt.wantFields {
				t.Errorf("field errors = %v, want %d", cfgErr.FieldErrors, tt.wantFields)
			}
		})
	}

	if _, err := New(Config{Patterns: []string{"[invalid"}}); !errors.Is(err, ErrInvalidWatchConfig) {
		t.Errorf("New() with a bad glob = %v", err)
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path    string
		ignored bool
	}{
		{".git/config", true},
		{".git/objects/ab/cd1234", true},
		{"main.mx.swp", true},
		{"main.mx.swo", true},
		{"backup~", true},
		{"sub/.DS_Store", true},
		{"main.mx", false},
		{"lib/util.mx", false},
		{".gitignore", false},
	}
	for _, tt := range tests {
		if got := matchAny(DefaultIgnores(), tt.path); got != tt.ignored {
			t.Errorf("ignored(%q) = %v, want %v", tt.path, got, tt.ignored)
		}
	}
}
