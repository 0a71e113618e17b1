// SPDX-License-Identifier: MPL-2.0

package builtins

import (
	"context"
	"fmt"
	"io"

	"mxcmd/internal/ast"
)

type (
	// setCommand binds a variable. A literal value is stored raw so that
	// %{name} references inside it expand when read; a $variable value
	// stores that variable's expanded value.
	setCommand struct{ base }

	getCommand   struct{ base }
	unsetCommand struct{ base }
	clearCommand struct{ base }
	varsCommand  struct{ base }

	searchCommand struct{ base }

	dumpCommand struct {
		base
		defaultPath string
	}

	exportCommand struct{ base }
	importCommand struct{ base }
)

func newSetCommand() *setCommand {
	return &setCommand{base{name: "set", summary: "set a variable", usage: "set NAME VALUE"}}
}

// RunTyped executes the set command.
func (c *setCommand) RunTyped(ctx context.Context, args []ast.Argument, _ io.Reader, _ io.Writer) error {
	if len(args) != 2 || args[0].Kind == ast.CommandSubst {
		return c.usageError()
	}
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}

	value := args[1].Value
	if args[1].Kind != ast.Literal {
		if value, err = hc.Resolve(ctx, args[1]); err != nil {
			return err
		}
	}
	hc.Store.Set(args[0].Value, value)
	return nil
}

func newGetCommand() *getCommand {
	return &getCommand{base{name: "get", summary: "print the expanded value of variables", usage: "get NAME..."}}
}

// RunTyped executes the get command. Names may be given bare or as $name.
func (c *getCommand) RunTyped(ctx context.Context, args []ast.Argument, _ io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return c.usageError()
	}
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}
	for _, a := range args {
		v, err := hc.Store.Get(a.Value)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, v)
	}
	return nil
}

func newUnsetCommand() *unsetCommand {
	return &unsetCommand{base{name: "unset", summary: "remove variables", usage: "unset NAME..."}}
}

// RunTyped executes the unset command. Removing an absent variable fails.
func (c *unsetCommand) RunTyped(ctx context.Context, args []ast.Argument, _ io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return c.usageError()
	}
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.Value
	}
	return eachOperand(c.name, out, names, hc.Store.Unset)
}

func newClearCommand() *clearCommand {
	return &clearCommand{base{name: "clear", summary: "remove every variable", usage: "clear"}}
}

// RunTyped executes the clear command.
func (c *clearCommand) RunTyped(ctx context.Context, _ []ast.Argument, _ io.Reader, _ io.Writer) error {
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}
	hc.Store.Clear()
	return nil
}

func newVarsCommand() *varsCommand {
	return &varsCommand{base{name: "vars", summary: "list every variable", usage: "vars"}}
}

// RunTyped executes the vars command.
func (c *varsCommand) RunTyped(ctx context.Context, _ []ast.Argument, _ io.Reader, out io.Writer) error {
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}
	return hc.Store.List(out)
}

func newSearchCommand() *searchCommand {
	return &searchCommand{base{name: "search", summary: "list variables whose raw value matches a pattern", usage: "search [PATTERN]"}}
}

// Run executes the search command.
func (c *searchCommand) Run(ctx context.Context, args []string, _ io.Reader, out io.Writer) error {
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}
	pattern := ""
	if len(args) > 0 {
		pattern = args[0]
	}
	return hc.Store.Search(out, pattern)
}

func newDumpCommand(defaultPath string) *dumpCommand {
	return &dumpCommand{
		base:        base{name: "dump", summary: "write the variable table to a file", usage: "dump [FILE]"},
		defaultPath: defaultPath,
	}
}

// Run executes the dump command.
func (c *dumpCommand) Run(ctx context.Context, args []string, _ io.Reader, out io.Writer) error {
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}
	path := c.defaultPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return c.usageError()
	}
	if err := hc.Store.Dump(path); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "variable table dumped to: %s\n", path)
	return err
}

func newExportCommand() *exportCommand {
	return &exportCommand{base{name: "export", summary: "save variables to a TOML or YAML file", usage: "export FILE.(toml|yaml)"}}
}

// Run executes the export command.
func (c *exportCommand) Run(ctx context.Context, args []string, _ io.Reader, _ io.Writer) error {
	if len(args) != 1 {
		return c.usageError()
	}
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}
	return hc.Store.Export(args[0])
}

func newImportCommand() *importCommand {
	return &importCommand{base{name: "import", summary: "load variables from a TOML or YAML file", usage: "import FILE.(toml|yaml)"}}
}

// Run executes the import command.
func (c *importCommand) Run(ctx context.Context, args []string, _ io.Reader, out io.Writer) error {
	if len(args) != 1 {
		return c.usageError()
	}
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}
	n, err := hc.Store.Import(args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "imported %d variables\n", n)
	return err
}
