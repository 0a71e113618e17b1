// SPDX-License-Identifier: MPL-2.0

// Package vars implements the variable store shared by every command in an
// interpreter, including %{name} interpolation with cycle detection.
//
// A Store is not safe for concurrent use. Hosts that run scripts from more
// than one goroutine serialize access through interp.Interpreter.
package vars

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrNotFound is returned by strict lookups of a name that is not set.
	ErrNotFound = errors.New("variable not found")
	// ErrCircularReference is returned when expanding a value reaches a name
	// that is already being expanded.
	ErrCircularReference = errors.New("circular reference detected for variable")
)

type (
	// Store maps variable names to raw (unexpanded) values.
	Store struct {
		values map[string]string
	}

	// Binding is the saved state of one name: its value and whether it was
	// set at all.
	Binding struct {
		Name  string
		Value string
		Set   bool
	}

	// NotFoundError is returned when a strict operation names an unset variable.
	NotFoundError struct {
		Name string
	}

	// CircularReferenceError is returned when %{name} expansion loops.
	CircularReferenceError struct {
		Name string
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", ErrNotFound, e.Name)
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Error implements the error interface.
func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCircularReference, e.Name)
}

// Unwrap returns ErrCircularReference for errors.Is() compatibility.
func (e *CircularReferenceError) Unwrap() error { return ErrCircularReference }

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// Set stores value under name, replacing any previous value. The value is
// kept raw; interpolation happens on read.
func (s *Store) Set(name, value string) {
	s.values[name] = value
}

// Lookup returns the raw value of name.
func (s *Store) Lookup(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Has reports whether name is set.
func (s *Store) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Get returns the fully expanded value of name.
func (s *Store) Get(name string) (string, error) {
	raw, ok := s.values[name]
	if !ok {
		return "", &NotFoundError{Name: name}
	}
	return s.Expand(raw, InProgress{}.With(name))
}

// Resolve is the permissive form of Get: an unset name yields "".
// Circular references are still reported.
func (s *Store) Resolve(name string) (string, error) {
	if !s.Has(name) {
		return "", nil
	}
	return s.Get(name)
}

// Unset removes name. Removing a name that is not set is an error.
func (s *Store) Unset(name string) error {
	if _, ok := s.values[name]; !ok {
		return &NotFoundError{Name: name}
	}
	delete(s.values, name)
	return nil
}

// Clear removes every variable.
func (s *Store) Clear() {
	clear(s.values)
}

// Len returns the number of variables.
func (s *Store) Len() int {
	return len(s.values)
}

// Names returns every variable name in sorted order.
func (s *Store) Names() []string {
	return slices.Sorted(maps.Keys(s.values))
}

// Snapshot records the current binding of each name.
func (s *Store) Snapshot(names ...string) []Binding {
	out := make([]Binding, len(names))
	for i, n := range names {
		v, ok := s.values[n]
		out[i] = Binding{Name: n, Value: v, Set: ok}
	}
	return out
}

// Restore puts back bindings taken by Snapshot. Names that were unset at
// snapshot time are removed again. Bindings are applied in reverse so a
// name listed twice ends up with its earliest saved state.
func (s *Store) Restore(bindings []Binding) {
	for _, b := range slices.Backward(bindings) {
		if b.Set {
			s.values[b.Name] = b.Value
		} else {
			delete(s.values, b.Name)
		}
	}
}

// Map returns a copy of the raw values.
func (s *Store) Map() map[string]string {
	return maps.Clone(s.values)
}

// Expand replaces every %{name} in input with the expanded value of name.
//
// Names in inProgress are being expanded further up the call chain; meeting
// one again is a circular reference. Unset names expand to "". The scan
// resumes after the spliced text, so a value containing a literal "%{" that
// came from expansion is never rescanned at this level. An unterminated
// "%{" is copied through unchanged.
func (s *Store) Expand(input string, inProgress InProgress) (string, error) {
	if !strings.Contains(input, "%{") {
		return input, nil
	}

	var sb strings.Builder
	rest := input
	for {
		start := strings.Index(rest, "%{")
		if start < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		end := strings.IndexByte(rest[start+2:], '}')
		if end < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}

		sb.WriteString(rest[:start])
		name := rest[start+2 : start+2+end]
		rest = rest[start+2+end+1:]

		if inProgress.Contains(name) {
			return "", &CircularReferenceError{Name: name}
		}
		raw, ok := s.values[name]
		if !ok {
			continue
		}
		expanded, err := s.Expand(raw, inProgress.With(name))
		if err != nil {
			return "", err
		}
		sb.WriteString(expanded)
	}
}

// Interpolate expands input with an empty in-progress set.
func (s *Store) Interpolate(input string) (string, error) {
	return s.Expand(input, InProgress{})
}
