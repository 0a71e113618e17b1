// SPDX-License-Identifier: MPL-2.0

package builtins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"mxcmd/internal/ast"
	"mxcmd/internal/engine"
	"mxcmd/internal/parser"
	"mxcmd/pkg/types"
)

type (
	// defineCommand registers a user-defined command. The body is the last
	// argument: a $(...) argument is stored unevaluated, any other argument
	// is resolved and parsed as script text.
	defineCommand struct{ base }

	undefineCommand struct{ base }

	// sourceCommand runs a script file against the current registry, so
	// its definitions outlive it.
	sourceCommand struct{ base }

	externCommand struct{ base }

	commandsCommand struct{ base }

	helpCommand struct {
		base
		style    string
		builtins map[string]Command
	}

	exitCommand struct {
		base
		onExit func(types.ExitCode)
	}

	statusCommand struct {
		base
		code types.ExitCode
	}

	argvCommand struct {
		base
		argv []string
	}
)

func newDefineCommand() *defineCommand {
	return &defineCommand{base{
		name:    "define",
		summary: "define a command from a script body",
		usage:   "define NAME [PARAM...] BODY",
	}}
}

// RunTyped executes the define command.
func (c *defineCommand) RunTyped(ctx context.Context, args []ast.Argument, _ io.Reader, _ io.Writer) error {
	if len(args) < 2 {
		return c.usageError()
	}
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}

	last := args[len(args)-1]
	body := last.Subst
	if last.Kind != ast.CommandSubst {
		text, err := hc.Resolve(ctx, last)
		if err != nil {
			return err
		}
		if body, err = parser.ParseString(text); err != nil {
			return fmt.Errorf("body: %w", err)
		}
	}

	params := make([]string, 0, len(args)-2)
	for _, a := range args[1 : len(args)-1] {
		if a.Kind == ast.CommandSubst {
			return c.usageError()
		}
		params = append(params, a.Value)
	}
	return hc.Registry.RegisterUserDefinedCommand(args[0].Value, params, body)
}

func newUndefineCommand() *undefineCommand {
	return &undefineCommand{base{name: "undefine", summary: "remove user-defined commands", usage: "undefine NAME..."}}
}

// Run executes the undefine command. Only user-defined commands can be
// removed.
func (c *undefineCommand) Run(ctx context.Context, args []string, _ io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return c.usageError()
	}
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}
	return eachOperand(c.name, out, args, func(name string) error {
		if _, ok := hc.Registry.UserCommand(name); !ok {
			return fmt.Errorf("%s is not a user-defined command", name)
		}
		hc.Registry.Unregister(name)
		return nil
	})
}

func newSourceCommand() *sourceCommand {
	return &sourceCommand{base{name: "source", summary: "run a script file", usage: "source FILE"}}
}

// Run executes the source command. Surrounding quotes on FILE are dropped.
func (c *sourceCommand) Run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("missing file operand")
	}
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}

	file := unquote(args[0])
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("cannot open file '%s': %w", file, err)
	}
	root, err := parser.ParseString(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	hc.Logger.Debug("source", "file", file)
	code, err := engine.NewExecutor(hc.Registry).Execute(ctx, root, in, out)
	if err != nil {
		if ctx.Err() != nil {
			return &ExitStatus{Code: code}
		}
		return fmt.Errorf("%s: %w", file, err)
	}
	return &ExitStatus{Code: code}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func newExternCommand() *externCommand {
	return &externCommand{base{
		name:    "extern",
		summary: "load a command from a shared library",
		usage:   "extern LIBRARY SYMBOL NAME",
	}}
}

// Run executes the extern command.
func (c *externCommand) Run(ctx context.Context, args []string, _ io.Reader, _ io.Writer) error {
	if len(args) != 3 {
		return c.usageError()
	}
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}
	return hc.Registry.RegisterExternCommand(args[2], args[0], args[1])
}

func newCommandsCommand() *commandsCommand {
	return &commandsCommand{base{
		name:    "commands",
		summary: "list registered commands",
		usage:   "commands [FILTER]",
	}}
}

// Run executes the commands command. FILTER is matched fuzzily against
// command names.
func (c *commandsCommand) Run(ctx context.Context, args []string, _ io.Reader, out io.Writer) error {
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return hc.Registry.PrintInfo(out)
	}

	matches := fuzzy.FindFold(args[0], hc.Registry.Names())
	if len(matches) == 0 {
		return &ExitStatus{Code: 1}
	}
	for _, name := range matches {
		e, _ := hc.Registry.Lookup(name)
		fmt.Fprintf(out, "%-12s %-7s %s\n", e.Name, e.Tier, e.Summary)
	}
	return nil
}

func newHelpCommand(style string) *helpCommand {
	return &helpCommand{
		base:  base{name: "help", summary: "describe a command", usage: "help [NAME]"},
		style: style,
	}
}

// Run executes the help command.
func (c *helpCommand) Run(ctx context.Context, args []string, _ io.Reader, out io.Writer) error {
	hc, err := handlerContext(ctx)
	if err != nil {
		return err
	}

	var md string
	if len(args) == 0 {
		md = c.overview(hc.Registry)
	} else {
		e, ok := hc.Registry.Lookup(args[0])
		if !ok {
			if s := hc.Registry.Suggest(args[0]); len(s) > 0 {
				return fmt.Errorf("no command named %s (did you mean %s?)", args[0], strings.Join(s, ", "))
			}
			return fmt.Errorf("no command named %s", args[0])
		}
		md = c.describe(e, hc.Registry)
	}

	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle(c.style), glamour.WithWordWrap(80))
	if err != nil {
		return err
	}
	rendered, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, rendered)
	return err
}

func (c *helpCommand) overview(reg *engine.Registry) string {
	var b strings.Builder
	b.WriteString("# Commands\n\n| Name | Kind | Summary |\n|---|---|---|\n")
	for _, e := range reg.Entries() {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", e.Name, e.Tier, markdownCell(e.Summary))
	}
	return b.String()
}

func (c *helpCommand) describe(e engine.Entry, reg *engine.Registry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", e.Name)
	if uc, ok := reg.UserCommand(e.Name); ok && e.Tier == engine.TierUser {
		fmt.Fprintf(&b, "User-defined command.\n\n```\n%s %s\n```\n\nBody:\n\n```\n%s\n```\n",
			e.Name, strings.Join(uc.Params, " "), uc.Body)
		return b.String()
	}
	if e.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", e.Summary)
	}
	if e.Usage != "" {
		fmt.Fprintf(&b, "```\n%s\n```\n\n", e.Usage)
	}
	if cmd, ok := c.builtins[e.Name]; ok && len(cmd.SupportedFlags()) > 0 {
		b.WriteString("## Flags\n\n")
		for _, f := range cmd.SupportedFlags() {
			arg := ""
			if f.TakesValue {
				arg = " VALUE"
			}
			fmt.Fprintf(&b, "- `-%s%s` %s\n", f.Name, arg, f.Description)
		}
	}
	return b.String()
}

func markdownCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

func newExitCommand(onExit func(types.ExitCode)) *exitCommand {
	return &exitCommand{
		base:   base{name: "exit", summary: "stop the interpreter", usage: "exit [CODE]"},
		onExit: onExit,
	}
}

// Run executes the exit command.
func (c *exitCommand) Run(_ context.Context, args []string, _ io.Reader, _ io.Writer) error {
	code := types.ExitSuccess
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("numeric argument required: %s", args[0])
		}
		code = types.ExitCode(n)
	}
	if c.onExit != nil {
		c.onExit(code)
	}
	return &ExitStatus{Code: code}
}

func newStatusCommand(name string, code types.ExitCode) *statusCommand {
	return &statusCommand{
		base: base{name: name, summary: fmt.Sprintf("do nothing and exit with status %d", code), usage: name},
		code: code,
	}
}

// Run returns the fixed status.
func (c *statusCommand) Run(context.Context, []string, io.Reader, io.Writer) error {
	if c.code == types.ExitSuccess {
		return nil
	}
	return &ExitStatus{Code: c.code}
}

func newArgvCommand(argv []string) *argvCommand {
	return &argvCommand{
		base: base{name: "argv", summary: "print script arguments", usage: "argv (INDEX|length|all)"},
		argv: argv,
	}
}

// Run executes the argv command.
func (c *argvCommand) Run(_ context.Context, args []string, _ io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return c.usageError()
	}
	switch args[0] {
	case "length":
		_, err := fmt.Fprint(out, len(c.argv))
		return err
	case "all":
		for _, a := range c.argv {
			fmt.Fprintln(out, a)
		}
		return nil
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid argument: %s", args[0])
	}
	if i < 0 || i >= len(c.argv) {
		return errors.New("index out of range")
	}
	_, err = io.WriteString(out, c.argv[i])
	return err
}
