// SPDX-License-Identifier: MPL-2.0

// Package parser builds an ast.Node tree from a token stream by recursive
// descent over this grammar:
//
//	sequence := (and (';' and)* ';'?)?
//	and      := operand ('&&' operand)*
//	operand  := assign | pipeline
//	assign   := 'let'? NAME '=' STRING
//	pipeline := command ('|' command)*
//	command  := IDENT arg* redir*
//	arg      := IDENT | STRING | NUMBER | '$'name | '$(' sequence ')'
//	redir    := ('<' | '>' | '>>') (IDENT | STRING | NUMBER)
//
// Pipelines of one stage and sequences of one item are collapsed to their
// only child, so the finished tree never contains them. A separator may end
// a sequence but never stands alone: ";;" and a leading ';' are errors.
// The right-hand side of an assignment must be quoted; an unquoted one makes
// the statement an ordinary command, so "test $a = b" still runs test.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"mxcmd/internal/ast"
	"mxcmd/internal/lexer"
	"mxcmd/internal/token"
)

var (
	// ErrExpectedCommandName is returned where a command must start but the
	// current token is not a word.
	ErrExpectedCommandName = errors.New("Expected command name") //nolint:staticcheck // printed as is
	// ErrExpectedFilename is returned when a redirection operator is not
	// followed by a file name.
	ErrExpectedFilename = errors.New("Expected filename after") //nolint:staticcheck // printed as is
	// ErrUnexpectedToken is returned for a symbol that cannot continue the
	// current statement.
	ErrUnexpectedToken = errors.New("unexpected token")
	// ErrExpectedString is returned when "let NAME =" is not followed by a
	// quoted string.
	ErrExpectedString = errors.New("Expected string after '='") //nolint:staticcheck // printed as is
	// ErrUnterminatedSubstitution is returned when "$(" has no matching ")".
	ErrUnterminatedSubstitution = errors.New("expected ')' to close command substitution")
)

type (
	// Error is a syntax error at a token position.
	Error struct {
		Pos  token.Pos
		Err  error
		Near string
	}

	parser struct {
		s *token.Stream
	}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Near != "" {
		return fmt.Sprintf("%s: %v %s", e.Pos, e.Err, e.Near)
	}
	return fmt.Sprintf("%s: %v", e.Pos, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *Error) Unwrap() error { return e.Err }

// Parse consumes the whole stream and returns its root node. Empty input
// yields an empty *ast.Sequence.
func Parse(toks []token.Token) (ast.Node, error) {
	p := &parser{s: token.NewStream(toks)}
	root, err := p.sequence(false)
	if err != nil {
		return nil, err
	}
	if !p.s.AtEnd() {
		return nil, p.unexpected(p.s.Peek())
	}
	return root, nil
}

// ParseString scans src and parses the result.
func ParseString(src string) (ast.Node, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return Parse(toks)
}

// sequence parses statements separated by ';'. With nested set it also
// stops before a ')' closing a command substitution.
func (p *parser) sequence(nested bool) (ast.Node, error) {
	var items []ast.Node
	for !p.s.AtEnd() && (!nested || !p.s.Peek().Is(token.SubstClose)) {
		n, err := p.and()
		if err != nil {
			return nil, err
		}
		items = append(items, n)

		if p.s.Accept(token.Semicolon) {
			continue
		}
		if p.s.AtEnd() || (nested && p.s.Peek().Is(token.SubstClose)) {
			break
		}
		return nil, p.unexpected(p.s.Peek())
	}

	if len(items) == 1 {
		return items[0], nil
	}
	return &ast.Sequence{Items: items}, nil
}

// and parses operands joined by "&&". The chain nests to the left, so the
// first failing operand stops the rest.
func (p *parser) and() (ast.Node, error) {
	left, err := p.operand()
	if err != nil {
		return nil, err
	}
	for p.s.Accept(token.And) {
		right, err := p.operand()
		if err != nil {
			return nil, err
		}
		left = &ast.LogicalAnd{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) operand() (ast.Node, error) {
	if a, ok, err := p.assignment(); ok || err != nil {
		return a, err
	}
	return p.pipeline()
}

// assignment recognizes "NAME = STRING" and "let NAME = STRING". The
// reported bool is false when the tokens do not form an assignment.
func (p *parser) assignment() (ast.Node, bool, error) {
	skip := 0
	if p.s.Peek().Kind == token.IDENT && p.s.Peek().Text == "let" && isName(p.s.PeekAt(1)) {
		skip = 1
	}
	name, eq, value := p.s.PeekAt(skip), p.s.PeekAt(skip+1), p.s.PeekAt(skip+2)
	if !isName(name) || eq.Kind != token.IDENT || eq.Text != "=" {
		return nil, false, nil
	}
	if value.Kind != token.STRING {
		if skip == 1 {
			return nil, false, &Error{Pos: value.Pos, Err: ErrExpectedString}
		}
		return nil, false, nil
	}
	for range skip + 3 {
		p.s.Next()
	}
	return &ast.Assignment{Name: name.Text, Value: value.Text}, true, nil
}

// isName reports whether tok is a bare word usable as a variable name.
func isName(tok token.Token) bool {
	if tok.Kind != token.IDENT || tok.Text == "" {
		return false
	}
	for i, r := range tok.Text {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func (p *parser) pipeline() (ast.Node, error) {
	first, err := p.stage()
	if err != nil {
		return nil, err
	}
	stages := []ast.Stage{first}
	for p.s.Accept(token.Pipe) {
		next, err := p.stage()
		if err != nil {
			return nil, err
		}
		stages = append(stages, next)
	}

	if len(stages) == 1 {
		return first, nil
	}
	return &ast.Pipeline{Stages: stages}, nil
}

// stage parses a command followed by any number of redirections. Each
// redirection wraps everything to its left.
func (p *parser) stage() (ast.Stage, error) {
	cmd, err := p.command()
	if err != nil {
		return nil, err
	}

	var st ast.Stage = cmd
	for {
		mode, ok := redirectMode(p.s.Peek())
		if !ok {
			return st, nil
		}
		op := p.s.Next()
		file := p.s.Peek()
		if !file.IsWord() {
			return nil, &Error{Pos: file.Pos, Err: ErrExpectedFilename, Near: op.Text}
		}
		p.s.Next()
		st = &ast.Redirection{Inner: st, Mode: mode, File: file.Text}
	}
}

func (p *parser) command() (*ast.Command, error) {
	name := p.s.Peek()
	if name.Kind != token.IDENT {
		return nil, &Error{Pos: name.Pos, Err: ErrExpectedCommandName}
	}
	p.s.Next()

	cmd := &ast.Command{Name: name.Text}
	for {
		tok := p.s.Peek()
		switch {
		case tok.Is(token.SubstOpen):
			arg, err := p.substitution()
			if err != nil {
				return nil, err
			}
			cmd.Args = append(cmd.Args, arg)
		case tok.Kind == token.IDENT && len(tok.Text) > 1 && strings.HasPrefix(tok.Text, "$"):
			p.s.Next()
			cmd.Args = append(cmd.Args, ast.Var(tok.Text[1:]))
		case tok.IsWord():
			p.s.Next()
			cmd.Args = append(cmd.Args, ast.Lit(tok.Text))
		default:
			return cmd, nil
		}
	}
}

func (p *parser) substitution() (ast.Argument, error) {
	p.s.Next() // $(
	inner, err := p.sequence(true)
	if err != nil {
		return ast.Argument{}, err
	}
	closing := p.s.Peek()
	if !closing.Is(token.SubstClose) {
		return ast.Argument{}, &Error{Pos: closing.Pos, Err: ErrUnterminatedSubstitution}
	}
	if seq, ok := inner.(*ast.Sequence); ok && len(seq.Items) == 0 {
		return ast.Argument{}, &Error{Pos: closing.Pos, Err: ErrExpectedCommandName}
	}
	p.s.Next()
	return ast.Subst(inner), nil
}

func (p *parser) unexpected(tok token.Token) error {
	if tok.Kind == token.END {
		return &Error{Pos: tok.Pos, Err: ErrExpectedCommandName}
	}
	if tok.Kind == token.SYMBOL {
		return &Error{Pos: tok.Pos, Err: ErrUnexpectedToken, Near: tok.Text}
	}
	return &Error{Pos: tok.Pos, Err: ErrExpectedCommandName}
}

func redirectMode(tok token.Token) (ast.RedirectMode, bool) {
	switch {
	case tok.Is(token.Less):
		return ast.Input, true
	case tok.Is(token.Greater):
		return ast.Output, true
	case tok.Is(token.Append):
		return ast.Append, true
	default:
		return 0, false
	}
}
