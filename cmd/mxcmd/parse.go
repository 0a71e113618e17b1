// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mxcmd/internal/ast"
	"mxcmd/internal/issue"
	"mxcmd/internal/parser"
)

func newParseCommand(app *App) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "parse [TEXT...]",
		Short: "Print the syntax tree of a command line or script",
		Example: `  mxcmd parse 'echo a | echo b ; echo c'
  mxcmd parse -f build.mx`,
		RunE: func(_ *cobra.Command, args []string) error {
			src := strings.Join(args, " ")
			resource := ""
			switch {
			case file != "" && len(args) > 0:
				return errors.New("give either TEXT or -f FILE, not both")
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return issue.NewErrorContext().
						WithOperation("read script").
						WithResource(file).
						WithIssue(issue.ScriptNotFoundId).
						Wrap(err).
						BuildError()
				}
				src, resource = string(data), file
			case len(args) == 0:
				return errors.New("parse needs TEXT or -f FILE")
			}

			root, err := parser.ParseString(src)
			if err != nil {
				return issue.NewErrorContext().
					WithOperation("parse").
					WithResource(resource).
					WithIssue(issue.Classify(err)).
					Wrap(err).
					BuildError()
			}
			fmt.Fprintln(app.stdout, ast.Tree(root))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "parse the script in FILE")
	return cmd
}
