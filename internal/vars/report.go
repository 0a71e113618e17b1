// SPDX-License-Identifier: MPL-2.0

package vars

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// List writes every variable grouped by initial letter, with the index,
// the padded name and the expanded value:
//
//	  --- A ---
//	      0: alpha = "1"
//
// A value that cannot be expanded is shown raw with a marker.
func (s *Store) List(w io.Writer) error {
	names := s.Names()
	if len(names) == 0 {
		_, err := io.WriteString(w, "    (no variables defined)\n")
		return err
	}

	width := 0
	for _, n := range names {
		width = max(width, len(n))
	}

	bw := bufio.NewWriter(w)
	var current rune
	for i, n := range names {
		first, _ := utf8.DecodeRuneInString(n)
		if first != current {
			current = first
			if i > 0 {
				bw.WriteString("\n")
			}
			fmt.Fprintf(bw, "  --- %c ---\n", unicode.ToUpper(first))
		}
		value, err := s.Get(n)
		if err != nil {
			value = s.values[n] + " <" + err.Error() + ">"
		}
		fmt.Fprintf(bw, "    %3d: %-*s = \"%s\"\n", i, width, n, value)
	}
	return bw.Flush()
}

// Search writes "name: value" for every variable whose raw value matches
// pattern. An empty pattern matches everything.
func (s *Store) Search(w io.Writer, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("search pattern: %w", err)
	}
	bw := bufio.NewWriter(w)
	for _, n := range s.Names() {
		raw := s.values[n]
		if !re.MatchString(raw) {
			continue
		}
		value, err := s.Get(n)
		if err != nil {
			value = raw
		}
		fmt.Fprintf(bw, "%s: %s\n", n, value)
	}
	return bw.Flush()
}

// Dump writes "name: value" lines with raw values, sorted by name, to path.
func (s *Store) Dump(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dump variables: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("dump variables: %w", closeErr)
		}
	}()

	bw := bufio.NewWriter(f)
	for _, n := range s.Names() {
		fmt.Fprintf(bw, "%s: %s\n", n, strings.ReplaceAll(s.values[n], "\n", `\n`))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("dump variables: %w", err)
	}
	return nil
}
