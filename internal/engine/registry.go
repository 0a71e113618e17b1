// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"mxcmd/internal/ast"
	"mxcmd/internal/vars"
	"mxcmd/pkg/types"
)

// Command tiers, in lookup order.
const (
	TierTyped Tier = iota
	TierSimple
	TierExtern
	TierUser
)

// maxSuggestions bounds the "did you mean" candidates logged for unknown names.
const maxSuggestions = 3

type (
	// CommandFunc is a simple command: it receives resolved argument strings.
	CommandFunc func(ctx context.Context, args []string, in io.Reader, out io.Writer) types.ExitCode

	// TypedCommandFunc is a typed command: it receives the raw arguments and
	// resolves them itself through GetHandlerContext(ctx).
	TypedCommandFunc func(ctx context.Context, args []ast.Argument, in io.Reader, out io.Writer) types.ExitCode

	// Tier identifies which table a command lives in.
	Tier int

	// Entry describes one registered command.
	Entry struct {
		Name    string
		Tier    Tier
		Summary string
		Usage   string
	}

	// Option configures a registration.
	Option func(*Entry)

	// RegistryOption configures a Registry.
	RegistryOption func(*Registry)

	simpleCommand struct {
		entry Entry
		fn    CommandFunc
	}

	typedCommand struct {
		entry Entry
		fn    TypedCommandFunc
	}

	// Registry maps command names to handlers in four tiers.
	// It is safe for concurrent use, although an Executor is not.
	Registry struct {
		mu      sync.RWMutex
		store   *vars.Store
		typed   map[string]typedCommand
		simple  map[string]simpleCommand
		user    map[string]*UserCommand
		externs map[string]*externCommand
		libs    *libraryCache
		loader  LibraryLoader
		logger  *log.Logger
		// owner is false for clones; only the owner closes libraries.
		owner bool
	}
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierTyped:
		return "typed"
	case TierSimple:
		return "simple"
	case TierExtern:
		return "extern"
	case TierUser:
		return "user"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// WithSummary sets the one-line description shown by listings.
func WithSummary(s string) Option {
	return func(e *Entry) { e.Summary = s }
}

// WithUsage sets the usage line shown by help.
func WithUsage(u string) Option {
	return func(e *Entry) { e.Usage = u }
}

// WithLogger sets the registry logger. Executors created for the registry
// share it.
func WithLogger(l *log.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithLibraryLoader replaces the loader used by RegisterExternCommand.
func WithLibraryLoader(l LibraryLoader) RegistryOption {
	return func(r *Registry) { r.loader = l }
}

// NewRegistry creates an empty registry resolving variables in store.
func NewRegistry(store *vars.Store, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:   store,
		typed:   make(map[string]typedCommand),
		simple:  make(map[string]simpleCommand),
		user:    make(map[string]*UserCommand),
		externs: make(map[string]*externCommand),
		libs:    newLibraryCache(),
		loader:  PluginLoader{},
		logger:  log.New(io.Discard),
		owner:   true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the variable store the registry resolves against.
func (r *Registry) Store() *vars.Store { return r.store }

// Logger returns the registry logger.
func (r *Registry) Logger() *log.Logger { return r.logger }

// RegisterCommand adds or replaces a simple command.
func (r *Registry) RegisterCommand(name string, fn CommandFunc, opts ...Option) error {
	if err := types.CommandName(name).Validate(); err != nil {
		return &RegistrationError{Name: name, Err: err}
	}
	entry := newEntry(name, TierSimple, opts)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.simple[name] = simpleCommand{entry: entry, fn: fn}
	delete(r.externs, name)
	return nil
}

// RegisterTypedCommand adds or replaces a typed command.
func (r *Registry) RegisterTypedCommand(name string, fn TypedCommandFunc, opts ...Option) error {
	if err := types.CommandName(name).Validate(); err != nil {
		return &RegistrationError{Name: name, Err: err}
	}
	entry := newEntry(name, TierTyped, opts)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.typed[name] = typedCommand{entry: entry, fn: fn}
	return nil
}

// RegisterUserDefinedCommand adds or replaces a command whose body is a
// stored tree run with params bound to the call arguments.
func (r *Registry) RegisterUserDefinedCommand(name string, params []string, body ast.Node, opts ...Option) error {
	if err := types.CommandName(name).Validate(); err != nil {
		return &RegistrationError{Name: name, Err: err}
	}
	if body == nil {
		return &RegistrationError{Name: name, Err: ErrEmptySubstitution}
	}
	entry := newEntry(name, TierUser, opts)
	if entry.Summary == "" {
		entry.Summary = body.String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.user[name] = &UserCommand{
		Name:   name,
		Params: slices.Clone(params),
		Body:   body,
		entry:  entry,
	}
	return nil
}

// Unregister removes name from every tier. It reports whether anything was
// removed. Libraries of removed extern commands stay loaded until Close.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, t := r.typed[name]
	_, s := r.simple[name]
	_, u := r.user[name]
	delete(r.typed, name)
	delete(r.simple, name)
	delete(r.user, name)
	delete(r.externs, name)
	return t || s || u
}

// Lookup returns the entry name resolves to, following tier order.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.typed[name]; ok {
		return c.entry, true
	}
	if c, ok := r.simple[name]; ok {
		return c.entry, true
	}
	if c, ok := r.user[name]; ok {
		return c.entry, true
	}
	return Entry{}, false
}

// UserCommand returns the stored definition of a user-defined command.
func (r *Registry) UserCommand(name string) (*UserCommand, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uc, ok := r.user[name]
	return uc, ok
}

// Entries lists every registered command grouped by tier, names sorted
// within each tier. A name registered in several tiers appears once per tier.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.typed)+len(r.simple)+len(r.user))
	for _, name := range slices.Sorted(maps.Keys(r.typed)) {
		out = append(out, r.typed[name].entry)
	}
	for _, name := range slices.Sorted(maps.Keys(r.simple)) {
		out = append(out, r.simple[name].entry)
	}
	for _, name := range slices.Sorted(maps.Keys(r.user)) {
		out = append(out, r.user[name].entry)
	}
	return out
}

// Names returns the distinct names of every registered command, sorted.
func (r *Registry) Names() []string {
	seen := make(map[string]struct{})
	for _, e := range r.Entries() {
		seen[e.Name] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// PrintInfo writes every tier as a braced block of tab-indented names.
func (r *Registry) PrintInfo(w io.Writer) error {
	groups := []struct {
		title string
		tiers []Tier
	}{
		{"Commands", []Tier{TierSimple, TierExtern}},
		{"Typed Commands", []Tier{TierTyped}},
		{"User Defined Commands", []Tier{TierUser}},
	}
	entries := r.Entries()
	for _, g := range groups {
		if _, err := fmt.Fprintf(w, "%s {\n", g.title); err != nil {
			return err
		}
		for _, e := range entries {
			if slices.Contains(g.tiers, e.Tier) {
				fmt.Fprintf(w, "\t%s\n", e.Name)
			}
		}
		if _, err := io.WriteString(w, "}\n"); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a registry sharing the store, logger and loaded libraries
// with r and holding copies of every tier. Registrations made on the clone
// do not affect r. Closing a clone releases nothing.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Registry{
		store:   r.store,
		typed:   maps.Clone(r.typed),
		simple:  maps.Clone(r.simple),
		user:    maps.Clone(r.user),
		externs: maps.Clone(r.externs),
		libs:    r.libs,
		loader:  r.loader,
		logger:  r.logger,
	}
}

// IsEmpty reports whether no command is registered.
func (r *Registry) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.typed) == 0 && len(r.simple) == 0 && len(r.user) == 0
}

// ExecuteCommand runs name with args. Resolution failures of simple-command
// arguments are written to out as "<name>: <error>" with status 1; use an
// Executor to have them returned as errors instead.
func (r *Registry) ExecuteCommand(ctx context.Context, name string, args []ast.Argument, in io.Reader, out io.Writer) types.ExitCode {
	e := executorFor(ctx, r)
	code, err := r.dispatch(e.bind(ctx), e, name, args, in, out)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", name, err)
		return types.ExitFailure
	}
	return code
}

// dispatch resolves name in tier order and runs it. The returned error is
// non-nil only when resolving arguments for a simple command failed.
func (r *Registry) dispatch(ctx context.Context, e *Executor, name string, args []ast.Argument, in io.Reader, out io.Writer) (types.ExitCode, error) {
	r.mu.RLock()
	typed, isTyped := r.typed[name]
	simple, isSimple := r.simple[name]
	user, isUser := r.user[name]
	r.mu.RUnlock()

	switch {
	case isTyped:
		r.logger.Debug("dispatch", "command", name, "tier", TierTyped, "args", len(args))
		return typed.fn(ctx, args, in, out), nil
	case isSimple:
		r.logger.Debug("dispatch", "command", name, "tier", simple.entry.Tier, "args", len(args))
		resolved, err := e.ResolveAll(ctx, args)
		if err != nil {
			return types.ExitFailure, err
		}
		return simple.fn(ctx, resolved, in, out), nil
	case isUser:
		r.logger.Debug("dispatch", "command", name, "tier", TierUser, "params", user.Params)
		return r.runUserDefined(ctx, e, user, args, in, out), nil
	default:
		r.logger.Debug("command not found", "command", name, "suggestions", r.Suggest(name))
		fmt.Fprintf(out, "Command not found: %s\n", name)
		return types.ExitFailure, nil
	}
}

// Suggest returns up to three registered names closest to name.
func (r *Registry) Suggest(name string) []string {
	ranks := fuzzy.RankFindFold(name, r.Names())
	if len(ranks) == 0 {
		// Reverse direction, so a name with extra characters such as
		// "echoo" still finds "echo".
		for _, candidate := range r.Names() {
			if fuzzy.MatchFold(candidate, name) {
				ranks = append(ranks, fuzzy.Rank{Source: name, Target: candidate, Distance: fuzzy.LevenshteinDistance(name, candidate)})
			}
		}
	}
	sort.Sort(ranks)

	out := make([]string, 0, maxSuggestions)
	for _, rank := range ranks {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, rank.Target)
	}
	return out
}

func newEntry(name string, tier Tier, opts []Option) Entry {
	e := Entry{Name: name, Tier: tier}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}
