// SPDX-License-Identifier: MPL-2.0

// Package ast defines the syntax tree produced by the parser.
//
// Node is a closed set: Command, Pipeline, Sequence, Redirection,
// LogicalAnd and Assignment. The executor switches over them exhaustively. Every node owns its
// children; a tree is never shared between two parents.
package ast

import (
	"strconv"
	"strings"
)

// Argument kinds.
const (
	// Literal is a plain word, quoted string or number.
	Literal ArgKind = iota
	// Variable is a "$name" reference; Value holds the name.
	Variable
	// CommandSubst is a "$( ... )" capture; Subst holds the nested tree.
	CommandSubst
)

// Redirection modes.
const (
	// Input reads the wrapped command's stdin from File ("<").
	Input RedirectMode = iota
	// Output truncates File and writes stdout to it (">").
	Output
	// Append writes stdout to the end of File (">>").
	Append
)

type (
	// Node is any executable tree node.
	Node interface {
		String() string
		node()
	}

	// Stage is a node that may appear as one step of a pipeline: a bare
	// command or a command with redirections attached.
	Stage interface {
		Node
		stage()
	}

	// ArgKind classifies an Argument.
	ArgKind int

	// RedirectMode is the direction of a Redirection.
	RedirectMode int

	// Argument is one command argument before resolution.
	Argument struct {
		Kind  ArgKind
		Value string
		Subst Node
	}

	// Command invokes a registered command by name.
	Command struct {
		Name string
		Args []Argument
	}

	// Pipeline feeds each stage's output to the next stage's input.
	// A finished tree never holds a Pipeline with fewer than two stages.
	Pipeline struct {
		Stages []Stage
	}

	// Sequence runs its items one after another regardless of status.
	// A finished tree never holds a Sequence with exactly one item; an empty
	// Sequence is the result of parsing empty input.
	Sequence struct {
		Items []Node
	}

	// Redirection binds the stdin or stdout of Inner to File.
	Redirection struct {
		Inner Node
		Mode  RedirectMode
		File  string
	}

	// LogicalAnd runs Right only when Left ends with status 0.
	LogicalAnd struct {
		Left  Node
		Right Node
	}

	// Assignment stores Value, with %{name} references interpolated, in the
	// variable Name.
	Assignment struct {
		Name  string
		Value string
	}
)

func (*Command) node()     {}
func (*Pipeline) node()    {}
func (*Sequence) node()    {}
func (*Redirection) node() {}
func (*LogicalAnd) node()  {}
func (*Assignment) node()  {}

func (*Command) stage()     {}
func (*Redirection) stage() {}

// Lit builds a Literal argument.
func Lit(v string) Argument { return Argument{Kind: Literal, Value: v} }

// Var builds a Variable argument for name.
func Var(name string) Argument { return Argument{Kind: Variable, Value: name} }

// Subst builds a CommandSubst argument around n.
func Subst(n Node) Argument { return Argument{Kind: CommandSubst, Value: n.String(), Subst: n} }

// String returns the operator text of the mode.
func (m RedirectMode) String() string {
	switch m {
	case Input:
		return "<"
	case Output:
		return ">"
	case Append:
		return ">>"
	default:
		return "RedirectMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// String returns the kind name.
func (k ArgKind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Variable:
		return "variable"
	case CommandSubst:
		return "subst"
	default:
		return "ArgKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// String renders the argument back to source form.
func (a Argument) String() string {
	switch a.Kind {
	case Variable:
		return "$" + a.Value
	case CommandSubst:
		if a.Subst != nil {
			return "$(" + a.Subst.String() + ")"
		}
		return "$(" + a.Value + ")"
	default:
		return quoteWord(a.Value)
	}
}

// String renders the command back to source form.
func (c *Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, " ")
}

// String renders the pipeline back to source form.
func (p *Pipeline) String() string {
	parts := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		parts[i] = s.String()
	}
	return strings.Join(parts, " | ")
}

// String renders the sequence back to source form.
func (s *Sequence) String() string {
	parts := make([]string, len(s.Items))
	for i, n := range s.Items {
		parts[i] = n.String()
	}
	return strings.Join(parts, "; ")
}

// String renders the redirection back to source form.
func (r *Redirection) String() string {
	return r.Inner.String() + " " + r.Mode.String() + " " + quoteWord(r.File)
}

// String renders the conjunction back to source form.
func (l *LogicalAnd) String() string {
	return l.Left.String() + " && " + l.Right.String()
}

// String renders the assignment back to source form.
func (a *Assignment) String() string {
	return a.Name + " = " + strconv.Quote(a.Value)
}

// quoteWord double-quotes v when it would not scan back as one word.
func quoteWord(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n|;<>\"'#$()&") {
		return v
	}
	return strconv.Quote(v)
}
