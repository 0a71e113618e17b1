// SPDX-License-Identifier: MPL-2.0

// Package token defines the lexical units consumed by the parser.
//
// Tokens are immutable values. Every stream handed to the parser is
// terminated by exactly one END token; producers other than the bundled
// scanner must uphold that.
package token

import "fmt"

// Kinds of tokens.
const (
	// END terminates every token stream.
	END Kind = iota
	// IDENT is a bare word: command names, unquoted arguments, file names
	// and "$name" variable references.
	IDENT
	// STRING is a quoted literal with its quotes removed and escapes resolved.
	STRING
	// NUMBER is an unquoted numeric literal.
	NUMBER
	// SYMBOL is one of the operators: | ; && < > >> $( ).
	SYMBOL
)

// Operator texts carried by SYMBOL tokens.
const (
	Pipe       = "|"
	Semicolon  = ";"
	And        = "&&"
	Less       = "<"
	Greater    = ">"
	Append     = ">>"
	SubstOpen  = "$("
	SubstClose = ")"
)

type (
	// Kind classifies a Token.
	Kind int

	// Pos is a 1-based line/column location plus the 0-based byte offset.
	Pos struct {
		Line   int
		Column int
		Offset int
	}

	// Token is one lexical unit.
	Token struct {
		Kind Kind
		Text string
		Pos  Pos
	}
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case END:
		return "END"
	case IDENT:
		return "IDENT"
	case STRING:
		return "STRING"
	case NUMBER:
		return "NUMBER"
	case SYMBOL:
		return "SYMBOL"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// String formats the position as line:column.
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Is reports whether t is a SYMBOL with the given operator text.
func (t Token) Is(symbol string) bool {
	return t.Kind == SYMBOL && t.Text == symbol
}

// IsWord reports whether t can stand as a plain word (file names,
// command arguments).
func (t Token) IsWord() bool {
	return t.Kind == IDENT || t.Kind == STRING || t.Kind == NUMBER
}

// String renders the token for error messages.
func (t Token) String() string {
	if t.Kind == END {
		return "end of input"
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

// Make builds a token at the zero position. Useful in tests and for
// producers that do not track locations.
func Make(kind Kind, text string) Token {
	return Token{Kind: kind, Text: text}
}
