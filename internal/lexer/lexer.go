// SPDX-License-Identifier: MPL-2.0

// Package lexer turns command text into the token stream read by the parser.
//
// The scanner is line oriented: newlines end statements the same way ';'
// does, and '#' at the start of a word comments out the rest of the line.
// Blank lines produce no separator, so a run of newlines counts once.
// Double-quoted strings resolve backslash escapes, single-quoted strings are
// taken verbatim. A ')' is an operator only while a "$(" is open, so bare
// words such as "f(x)" survive unchanged.
package lexer

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"mxcmd/internal/token"
)

// ErrUnterminatedString is returned when a quoted string reaches end of input.
var ErrUnterminatedString = errors.New("unterminated string")

type (
	// Error reports a scan failure at a position.
	Error struct {
		Pos token.Pos
		Err error
	}

	scanner struct {
		src   string
		off   int
		line  int
		col   int
		depth int
		toks  []token.Token
	}
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Pos, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *Error) Unwrap() error { return e.Err }

// Tokenize scans src completely. The returned slice always ends with END.
func Tokenize(src string) ([]token.Token, error) {
	s := &scanner{src: src, line: 1, col: 1}
	for {
		s.skipBlanks()
		if s.off >= len(s.src) {
			s.emit(token.END, "", s.pos())
			return s.toks, nil
		}
		if err := s.scanOne(); err != nil {
			return nil, err
		}
	}
}

func (s *scanner) scanOne() error {
	start := s.pos()
	c := s.src[s.off]

	switch {
	case c == '\n':
		s.advance(1)
		if s.separates() {
			s.emit(token.SYMBOL, token.Semicolon, start)
		}
	case strings.HasPrefix(s.src[s.off:], token.And):
		s.advance(2)
		s.emit(token.SYMBOL, token.And, start)
	case c == '#':
		for s.off < len(s.src) && s.src[s.off] != '\n' {
			s.advance(1)
		}
	case c == '|' || c == ';' || c == '<':
		s.advance(1)
		s.emit(token.SYMBOL, string(c), start)
	case c == '>':
		if strings.HasPrefix(s.src[s.off:], token.Append) {
			s.advance(2)
			s.emit(token.SYMBOL, token.Append, start)
		} else {
			s.advance(1)
			s.emit(token.SYMBOL, token.Greater, start)
		}
	case strings.HasPrefix(s.src[s.off:], token.SubstOpen):
		s.advance(2)
		s.depth++
		s.emit(token.SYMBOL, token.SubstOpen, start)
	case c == ')' && s.depth > 0:
		s.advance(1)
		s.depth--
		s.emit(token.SYMBOL, token.SubstClose, start)
	case c == '"':
		text, err := s.quoted('"')
		if err != nil {
			return err
		}
		s.emit(token.STRING, text, start)
	case c == '\'':
		text, err := s.quoted('\'')
		if err != nil {
			return err
		}
		s.emit(token.STRING, text, start)
	default:
		word := s.word()
		kind := token.IDENT
		if isNumber(word) {
			kind = token.NUMBER
		}
		s.emit(kind, word, start)
	}
	return nil
}

// word consumes a run of non-operator, non-blank characters.
func (s *scanner) word() string {
	begin := s.off
	for s.off < len(s.src) {
		c := s.src[s.off]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' ||
			c == '|' || c == ';' || c == '<' || c == '>' || c == '"' || c == '\'' {
			break
		}
		if c == ')' && s.depth > 0 {
			break
		}
		if s.off > begin && strings.HasPrefix(s.src[s.off:], token.SubstOpen) {
			break
		}
		if strings.HasPrefix(s.src[s.off:], token.And) {
			break
		}
		s.advance(1)
	}
	return s.src[begin:s.off]
}

// quoted consumes a string delimited by q. Escapes are resolved only in
// double-quoted strings.
func (s *scanner) quoted(q byte) (string, error) {
	start := s.pos()
	s.advance(1)
	var sb strings.Builder
	for s.off < len(s.src) {
		c := s.src[s.off]
		switch {
		case c == q:
			s.advance(1)
			return sb.String(), nil
		case c == '\\' && q == '"' && s.off+1 < len(s.src):
			sb.WriteByte(unescape(s.src[s.off+1]))
			s.advance(2)
		default:
			_, size := utf8.DecodeRuneInString(s.src[s.off:])
			sb.WriteString(s.src[s.off : s.off+size])
			s.advance(size)
		}
	}
	return "", &Error{Pos: start, Err: ErrUnterminatedString}
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return c
	}
}

// separates reports whether a newline at the current point ends a
// statement. Newlines at the start of the input or of a substitution, and
// those following another separator, do not.
func (s *scanner) separates() bool {
	if len(s.toks) == 0 {
		return false
	}
	last := s.toks[len(s.toks)-1]
	return !last.Is(token.Semicolon) && !last.Is(token.SubstOpen)
}

func (s *scanner) skipBlanks() {
	for s.off < len(s.src) {
		switch s.src[s.off] {
		case ' ', '\t', '\r':
			s.advance(1)
		case '\\':
			// Line continuation.
			if strings.HasPrefix(s.src[s.off:], "\\\n") {
				s.advance(2)
				continue
			}
			return
		default:
			return
		}
	}
}

func (s *scanner) advance(n int) {
	for range n {
		if s.src[s.off] == '\n' {
			s.line++
			s.col = 1
		} else {
			s.col++
		}
		s.off++
	}
}

func (s *scanner) pos() token.Pos {
	return token.Pos{Line: s.line, Column: s.col, Offset: s.off}
}

func (s *scanner) emit(kind token.Kind, text string, at token.Pos) {
	s.toks = append(s.toks, token.Token{Kind: kind, Text: text, Pos: at})
}

// isNumber matches an optionally signed decimal integer or fraction.
func isNumber(w string) bool {
	if w == "" {
		return false
	}
	if w[0] == '-' || w[0] == '+' {
		w = w[1:]
	}
	digits, dots := 0, 0
	for i := range len(w) {
		switch c := w[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return digits > 0
}
