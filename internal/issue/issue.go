// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"errors"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"

	"mxcmd/internal/engine"
	"mxcmd/internal/lexer"
	"mxcmd/internal/parser"
	"mxcmd/internal/vars"
)

const (
	ScriptNotFoundId Id = iota + 1
	ScriptParseErrorId
	CircularReferenceId
	RedirectionFailedId
	ExternLoadFailedId
	ConfigLoadFailedId
	ConsoleStartFailedId
	WatchFailedId
	PermissionDeniedId
)

type (
	// Id identifies a catalog entry. The zero value means "no entry".
	Id int

	// MarkdownMsg is the Markdown source of a guide.
	MarkdownMsg string

	// HttpLink is a documentation link listed under a guide.
	HttpLink string

	// Issue is a catalog entry.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id { return i.id }

func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

func (i *Issue) ExtLinks() []HttpLink { return slices.Clone(i.extLinks) }

// Render renders the guide with the named glamour style ("dark", "light",
// "notty", ...).
func (i *Issue) Render(style string) (string, error) {
	md := string(i.mdMsg)
	if len(i.extLinks) > 0 {
		var b strings.Builder
		b.WriteString(md)
		b.WriteString("\n\n## See also\n")
		for _, link := range i.extLinks {
			b.WriteString("- <" + string(link) + ">\n")
		}
		md = b.String()
	}
	return render(md, style)
}

var (
	render = glamour.Render

	scriptNotFoundIssue = &Issue{
		id: ScriptNotFoundId,
		mdMsg: `
# Script not found!

The script file could not be opened.

## Things you can try:
- Check the path; relative paths are resolved from the current directory
- Run a one-off command instead:
~~~
$ mxcmd run -c 'echo hello'
~~~`,
	}

	scriptParseErrorIssue = &Issue{
		id: ScriptParseErrorId,
		mdMsg: `
# The script does not parse!

Every statement starts with a command name, pipes need a command on both
sides and redirections need a file name.

## Common causes:
- A trailing ` + "`|`" + ` at the end of a line
- ` + "`>`" + ` or ` + "`<`" + ` without a file name
- An unterminated quote or ` + "`$(`" + `

## Things you can try:
- Print the tree the parser builds:
~~~
$ mxcmd parse 'echo a | grep a > out.txt'
~~~`,
	}

	circularReferenceIssue = &Issue{
		id: CircularReferenceId,
		mdMsg: `
# Circular variable reference!

A variable refers to itself through ` + "`%{name}`" + `, directly or through
other variables, so it can never be expanded.

## Things you can try:
- Inspect the raw values:
~~~
vars
~~~
- Break the cycle with ` + "`set`" + ` or ` + "`unset`" + ``,
	}

	redirectionFailedIssue = &Issue{
		id: RedirectionFailedId,
		mdMsg: `
# Redirection failed!

The file named after ` + "`<`, `>` or `>>`" + ` could not be opened, so the
command was not run and the script stopped.

## Things you can try:
- For ` + "`<`" + `, check that the file exists
- For ` + "`>`" + ` and ` + "`>>`" + `, check that the directory exists and is writable`,
	}

	externLoadFailedIssue = &Issue{
		id: ExternLoadFailedId,
		mdMsg: `
# Extern command could not be loaded!

Extern libraries are Go plugins built with ` + "`-buildmode=plugin`" + ` by the
same toolchain as mxcmd. The symbol must be a
` + "`func([]string, io.Reader, io.Writer) int`" + `.

## Things you can try:
- Rebuild the plugin:
~~~
$ go build -buildmode=plugin -o upper.so ./upper
~~~
- Check the symbol name and signature`,
		extLinks: []HttpLink{"https://pkg.go.dev/plugin"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded!

The configuration file is CUE validated against a built-in schema.

## Things you can try:
- Show the effective configuration:
~~~
$ mxcmd config show
~~~
- Write a fresh default file:
~~~
$ mxcmd config init
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	consoleStartFailedIssue = &Issue{
		id: ConsoleStartFailedId,
		mdMsg: `
# The SSH console could not start!

## Things you can try:
- Pick another port with ` + "`--port`" + ` or ` + "`console.port`" + `
- Check that the host key path is writable`,
	}

	watchFailedIssue = &Issue{
		id: WatchFailedId,
		mdMsg: `
# Watching failed!

## Things you can try:
- Check that the watched paths exist
- Raise the inotify watch limit:
~~~
$ sysctl fs.inotify.max_user_watches
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

## Things you can try:
- Check file and directory permissions
- Run mxcmd from a directory you own`,
	}

	issues = map[Id]*Issue{
		scriptNotFoundIssue.Id():     scriptNotFoundIssue,
		scriptParseErrorIssue.Id():   scriptParseErrorIssue,
		circularReferenceIssue.Id():  circularReferenceIssue,
		redirectionFailedIssue.Id():  redirectionFailedIssue,
		externLoadFailedIssue.Id():   externLoadFailedIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		consoleStartFailedIssue.Id(): consoleStartFailedIssue,
		watchFailedIssue.Id():        watchFailedIssue,
		permissionDeniedIssue.Id():   permissionDeniedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

// Get returns the entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

// Classify picks the catalog entry matching an engine failure, or 0.
func Classify(err error) Id {
	var (
		parseErr *parser.Error
		lexErr   *lexer.Error
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &parseErr), errors.As(err, &lexErr):
		return ScriptParseErrorId
	case errors.Is(err, vars.ErrCircularReference):
		return CircularReferenceId
	case errors.Is(err, engine.ErrRedirection):
		return RedirectionFailedId
	case errors.Is(err, engine.ErrLibraryLoad), errors.Is(err, engine.ErrSymbolNotFound), errors.Is(err, engine.ErrSymbolSignature):
		return ExternLoadFailedId
	default:
		return 0
	}
}
