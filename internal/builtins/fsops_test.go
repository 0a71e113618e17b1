// SPDX-License-Identifier: MPL-2.0

package builtins

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mxcmd/internal/testutil"
)

func TestFileCommands(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := newTestRegistry(t, Options{})
	p := func(elem ...string) string { return filepath.Join(append([]string{dir}, elem...)...) }

	script := strings.Join([]string{
		"mkdir -p " + p("a", "b"),
		"touch " + p("a", "one.txt") + " " + p("a", "b", "two.txt") + " " + p(".hidden"),
		"echo data | tee " + p("a", "one.txt"),
		"cp " + p("a", "one.txt") + " " + p("copy.txt"),
		"cp -r " + p("a") + " " + p("tree"),
		"mv " + p("copy.txt") + " " + p("a", "b"),
	}, "; ")
	if out, code := runScript(t, reg, script); code != 0 {
		t.Fatalf("setup status %d: %s", code, out)
	}

	out, _ := runScript(t, reg, "ls "+dir)
	if got := strings.Fields(out); !slices.Contains(got, "a") || !slices.Contains(got, "tree") || slices.Contains(got, ".hidden") {
		t.Errorf("ls = %q", out)
	}
	out, _ = runScript(t, reg, "ls -a "+dir)
	if !slices.Contains(strings.Fields(out), ".hidden") {
		t.Errorf("ls -a = %q", out)
	}

	for _, f := range []string{p("tree", "one.txt"), p("tree", "b", "two.txt"), p("a", "b", "copy.txt")} {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("expected %s: %v", f, err)
		}
	}
	if data, _ := os.ReadFile(p("a", "b", "copy.txt")); string(data) != "data\n" {
		t.Errorf("copy.txt = %q", data)
	}

	out, _ = runScript(t, reg, "find "+dir+" -name two.txt")
	if diff := cmp.Diff([]string{p("a", "b", "two.txt"), p("tree", "b", "two.txt")}, strings.Fields(out)); diff != "" {
		t.Errorf("find -name mismatch (-want +got):\n%s", diff)
	}
	out, _ = runScript(t, reg, "find "+p("a")+" -type d")
	if got := strings.Fields(out); !slices.Contains(got, p("a", "b")) || slices.Contains(got, p("a", "one.txt")) {
		t.Errorf("find -type d = %q", out)
	}

	if _, code := runScript(t, reg, "rm "+p("tree")); code == 0 {
		t.Error("rm of a directory without -r succeeded")
	}
	if _, code := runScript(t, reg, "rm -r "+p("tree")+"; rm -f "+p("nope")); code != 0 {
		t.Errorf("rm -r status = %d", code)
	}
	if _, err := os.Stat(p("tree")); !os.IsNotExist(err) {
		t.Errorf("tree still present: %v", err)
	}
}

func TestCpOntoItself(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f := testutil.MustWriteFile(t, dir, "f.txt", "keep me\n")
	reg := newTestRegistry(t, Options{})

	for _, script := range []string{"cp " + f + " " + f, "cp " + f + " " + dir} {
		out, code := runScript(t, reg, script)
		if code == 0 {
			t.Errorf("%s: status 0, want failure", script)
		}
		if !strings.Contains(out, "same file") {
			t.Errorf("%s: output = %q", script, out)
		}
		if data, _ := os.ReadFile(f); string(data) != "keep me\n" {
			t.Fatalf("%s: content = %q", script, data)
		}
	}
}

func TestFileCommandErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	missing := filepath.Join(dir, "missing")

	tests := []struct {
		name   string
		script string
	}{
		{name: "mkdir without parents", script: "mkdir " + filepath.Join(missing, "x")},
		{name: "rm missing", script: "rm " + missing},
		{name: "mv missing", script: "mv " + missing + " " + filepath.Join(dir, "dest")},
		{name: "cat missing", script: "cat " + missing},
		{name: "cd two operands", script: "cd a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg := newTestRegistry(t, Options{})
			out, code := runScript(t, reg, tt.script)
			if code == 0 {
				t.Errorf("status = 0, want failure (output %q)", out)
			}
			if out == "" {
				t.Error("no diagnostic written")
			}
		})
	}
}

func TestPathCommands(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, Options{})
	tests := []struct {
		script string
		want   string
	}{
		{"basename /usr/lib/libc.so", "libc.so\n"},
		{"basename /usr/lib/libc.so .so", "libc\n"},
		{"basename .so .so", ".so\n"},
		{"dirname /usr/lib/libc.so lib", "/usr/lib\n.\n"},
	}
	for _, tt := range tests {
		if out, _ := runScript(t, reg, tt.script); out != tt.want {
			t.Errorf("%s = %q, want %q", tt.script, out, tt.want)
		}
	}
}

// Not parallel: cd changes the working directory of the whole process.
func TestCdAndPwd(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Chdir(t.TempDir())

	reg := newTestRegistry(t, Options{})
	out, code := runScript(t, reg, "cd "+dir+"; pwd; mkdir sub; cd sub; pwd")
	if code != 0 {
		t.Fatalf("status %d: %s", code, out)
	}
	if want := dir + "\n" + filepath.Join(dir, "sub") + "\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}
