// SPDX-License-Identifier: MPL-2.0

package builtins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mxcmd/pkg/types"
)

func TestTextCommands(t *testing.T) {
	t.Parallel()

	const fruit = "apple\nbanana\ncherry\n"
	tests := []struct {
		name     string
		script   string
		input    string
		want     string
		wantCode types.ExitCode
	}{
		{name: "echo", script: "echo a b   c", want: "a b c\n"},
		{name: "echo no args", script: "echo", want: "\n"},
		{name: "print", script: "print one --i 42abc two", want: "one\n42\ntwo\n"},
		{name: "print bad integer", script: "print --i abc", want: "print: can't convert 'abc' to integer\n", wantCode: 1},
		{name: "printf basic", script: `printf "%s=%d\n" x 42`, want: "x=42\n"},
		{name: "printf verbs", script: `printf "%5.2f|%-3s|%x|%X|%o|%c|%%" 3.14159 ab 255 255 8 hello`, want: " 3.14|ab |ff|FF|10|h|%"},
		{name: "printf escapes in single quotes", script: `printf 'a\tb'`, want: "a\tb"},
		{name: "printf missing argument", script: `printf "%s-%s" one`, want: "one-"},
		{name: "printf bad number", script: `printf "%d" x`, want: "0"},
		{name: "cat stdin", script: "cat", input: "x\ny\n", want: "x\ny\n"},
		{name: "seq", script: "seq 3", want: "1\n2\n3\n"},
		{name: "seq separator", script: "seq -s , 2 2 6", want: "2,4,6\n"},
		{name: "seq fractional", script: "seq 1 0.5 2", want: "1\n1.5\n2\n"},
		{name: "grep substring", script: "grep an", input: fruit, want: "banana\n"},
		{name: "grep substring is literal", script: "grep a.p", input: fruit, want: "", wantCode: 1},
		{name: "grep invert", script: "grep -v an", input: fruit, want: "apple\ncherry\n"},
		{name: "grep regex", script: `grep -e "^c"`, input: fruit, want: "cherry\n"},
		{name: "grep count", script: "grep -c a", input: fruit, want: "2\n"},
		{name: "grep line numbers ignore case", script: "grep -n -i CHERRY", input: fruit, want: "3:cherry\n"},
		{name: "sort", script: "sort", input: "b\na\nc\n", want: "a\nb\nc\n"},
		{name: "sort reverse", script: "sort -r", input: "b\na\nc\n", want: "c\nb\na\n"},
		{name: "sort numeric", script: "sort -n", input: "10\n9\n100\n", want: "9\n10\n100\n"},
		{name: "sort unique", script: "sort -u", input: "b\na\nb\n", want: "a\nb\n"},
		{name: "head", script: "head -n 2", input: "1\n2\n3\n", want: "1\n2\n"},
		{name: "tail", script: "tail -n 2", input: "1\n2\n3\n", want: "2\n3\n"},
		{name: "tail more than input", script: "tail -n 5", input: "1\n2\n", want: "1\n2\n"},
		{name: "wc", script: "wc", input: "one two\nthree\n", want: "2 3 14\n"},
		{name: "wc lines", script: "wc -l", input: "one two\nthree\n", want: "2\n"},
		{name: "uniq", script: "uniq", input: "a\na\nb\na\n", want: "a\nb\na\n"},
		{name: "uniq count", script: "uniq -c", input: "a\na\nb\n", want: "      2 a\n      1 b\n"},
		{name: "uniq repeated", script: "uniq -d", input: "a\na\nb\n", want: "a\n"},
		{name: "tr translate", script: "tr a-z A-Z", input: "hello\n", want: "HELLO\n"},
		{name: "tr delete", script: "tr -d l", input: "hello\n", want: "heo\n"},
		{name: "tr squeeze", script: "tr -s l", input: "hello\n", want: "helo\n"},
		{name: "cut fields", script: "cut -d : -f 2,3", input: "a:b:c\n", want: "b:c\n"},
		{name: "cut open range", script: "cut -d : -f 2-", input: "a:b:c\n", want: "b:c\n"},
		{name: "cut characters", script: "cut -c 1-2", input: "hello\n", want: "he\n"},
		{name: "sed first", script: "sed s/foo/bar/", input: "foo foo\n", want: "bar foo\n"},
		{name: "sed global", script: "sed s/foo/bar/g", input: "foo foo\n", want: "bar bar\n"},
		{name: "sed groups", script: `sed 's/(o+)/[\1]/g'`, input: "foo\n", want: "f[oo]\n"},
		{name: "sed whole match", script: `sed 's/o/<&>/'`, input: "foo\n", want: "f<o>o\n"},
		{name: "sed other delimiter", script: "sed 's|/|-|g'", input: "a/b\n", want: "a-b\n"},
		{name: "sed quiet", script: "sed -n s/a/b/", input: "a\n", want: ""},
		{name: "sed without expression", script: "sed", want: "sed: " + errNoExpression.Error() + "\n", wantCode: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg := newTestRegistry(t, Options{})
			out, code := runScriptInput(t, reg, tt.script, tt.input)
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
			if code != tt.wantCode {
				t.Errorf("status = %d, want %d", code, tt.wantCode)
			}
		})
	}
}

func TestCatFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(a, []byte("A\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.txt")

	reg := newTestRegistry(t, Options{})
	out, code := runScript(t, reg, "cat "+a+" "+a)
	if code != 0 || out != "A\nA\n" {
		t.Errorf("cat = %q (status %d)", out, code)
	}

	out, code = runScript(t, reg, "cat "+a+" "+missing)
	if code != types.ExitFailure {
		t.Errorf("status = %d, want 1", code)
	}
	if !strings.HasPrefix(out, "A\n") || !strings.Contains(out, missing) {
		t.Errorf("output = %q", out)
	}
}

func TestTeeWritesFileAndOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "copy.txt")
	reg := newTestRegistry(t, Options{})

	out, _ := runScript(t, reg, "echo one | tee "+path)
	if out != "one\n" {
		t.Errorf("output = %q", out)
	}
	runScript(t, reg, "echo two | tee -a "+path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "one\ntwo\n" {
		t.Errorf("file = %q", data)
	}
}

func TestSedInPlace(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "edit.txt")
	if err := os.WriteFile(path, []byte("red\nblue\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	reg := newTestRegistry(t, Options{})

	out, code := runScript(t, reg, "sed -i s/e/E/g "+path)
	if out != "" || code != 0 {
		t.Errorf("sed -i wrote %q (status %d)", out, code)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "rEd\nbluE\n" {
		t.Errorf("file = %q", data)
	}
}

func TestHeadMultipleFilesPrintsHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a, b := filepath.Join(dir, "a"), filepath.Join(dir, "b")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("1\n2\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	reg := newTestRegistry(t, Options{})

	out, _ := runScript(t, reg, "head -n 1 "+a+" "+b)
	want := "==> " + a + " <==\n1\n\n==> " + b + " <==\n1\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestFormatPrintf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		args   []string
		want   string
	}{
		{"plain", nil, "plain"},
		{"trailing %", nil, "trailing %"},
		{"%q", []string{"x"}, "%q"},
		{"%+d", []string{"5"}, "+5"},
		{"%03d", []string{"7"}, "007"},
		{"%.1f", []string{"2.26"}, "2.3"},
		{"%d%d", []string{"1"}, "1"},
	}
	for _, tt := range tests {
		if got := formatPrintf(tt.format, tt.args); got != tt.want {
			t.Errorf("formatPrintf(%q, %q) = %q, want %q", tt.format, tt.args, got, tt.want)
		}
	}
}
