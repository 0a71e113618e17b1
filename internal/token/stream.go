// SPDX-License-Identifier: MPL-2.0

package token

// Stream is a read cursor over a token slice. Reading past the end keeps
// returning the final END token, so callers never index out of range.
type Stream struct {
	toks []Token
	pos  int
}

// NewStream wraps toks. A missing END terminator is appended.
func NewStream(toks []Token) *Stream {
	if len(toks) == 0 || toks[len(toks)-1].Kind != END {
		var endPos Pos
		if len(toks) > 0 {
			endPos = toks[len(toks)-1].Pos
		}
		toks = append(toks[:len(toks):len(toks)], Token{Kind: END, Pos: endPos})
	}
	return &Stream{toks: toks}
}

// Peek returns the current token without consuming it.
func (s *Stream) Peek() Token {
	return s.toks[s.pos]
}

// PeekAt returns the token n places after the current one without
// consuming anything. Looking past the end yields END.
func (s *Stream) PeekAt(n int) Token {
	return s.toks[min(s.pos+n, len(s.toks)-1)]
}

// Next consumes and returns the current token.
func (s *Stream) Next() Token {
	t := s.toks[s.pos]
	if s.pos < len(s.toks)-1 {
		s.pos++
	}
	return t
}

// AtEnd reports whether only the END token remains.
func (s *Stream) AtEnd() bool {
	return s.toks[s.pos].Kind == END
}

// Accept consumes the current token if it is the given symbol.
func (s *Stream) Accept(symbol string) bool {
	if s.Peek().Is(symbol) {
		s.Next()
		return true
	}
	return false
}
