// SPDX-License-Identifier: MPL-2.0

package ast

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
)

var (
	nodeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	argStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// Tree renders n as an indented tree for the "parse" command.
func Tree(n Node) string {
	return buildTree(n).String()
}

func buildTree(n Node) *tree.Tree {
	switch n := n.(type) {
	case *Command:
		t := tree.Root(nodeStyle.Render("Command") + " " + n.Name)
		for _, a := range n.Args {
			if a.Kind == CommandSubst && a.Subst != nil {
				t.Child(tree.Root(argStyle.Render("subst")).Child(buildTree(a.Subst)))
				continue
			}
			t.Child(argStyle.Render(a.Kind.String()) + " " + a.String())
		}
		return t
	case *Pipeline:
		t := tree.Root(nodeStyle.Render("Pipeline"))
		for _, s := range n.Stages {
			t.Child(buildTree(s))
		}
		return t
	case *Sequence:
		t := tree.Root(nodeStyle.Render("Sequence"))
		for _, item := range n.Items {
			t.Child(buildTree(item))
		}
		return t
	case *Redirection:
		return tree.Root(fmt.Sprintf("%s %s %s", nodeStyle.Render("Redirection"), n.Mode, quoteWord(n.File))).
			Child(buildTree(n.Inner))
	case *LogicalAnd:
		return tree.Root(nodeStyle.Render("LogicalAnd")).
			Child(buildTree(n.Left)).
			Child(buildTree(n.Right))
	case *Assignment:
		return tree.Root(nodeStyle.Render("Assignment") + " " + n.Name).
			Child(argStyle.Render(Literal.String()) + " " + strconv.Quote(n.Value))
	default:
		return tree.Root(fmt.Sprintf("%T", n))
	}
}
