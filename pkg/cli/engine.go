package cli

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"launcher/pkg/common"
)

//go:embed cli.def
var DefaultDSL string

// Mutable
type Engine struct {
	GlobalFlags []*Flag
	Commands    []*Command
	Topics      []*Topic
	Handlers    map[string]Handler
	Theme       *Theme
	Out         io.Writer
}

func NewEngine(dsl string) (*Engine, error) {
	e := &Engine{
		Handlers: make(map[string]Handler),
		Out:      os.Stdout,
	}
	e.Theme = NewTheme(e.Out)
	if err := e.parseDSL(dsl); err != nil {
		return nil, err
	}
	e.Commands = append(e.Commands, &Command{
		Name: "help",
		Desc: "Show help information",
	})
	return e, nil
}

// SetOutput redirects help output to w.
func (e *Engine) SetOutput(w io.Writer) {
	e.Out = w
	e.Theme = NewTheme(w)
}

func (e *Engine) Register(cmdPath string, h Handler) {
	e.Handlers[cmdPath] = h
}

func (e *Engine) parseDSL(dsl string) error {
	p := newParser(dsl, e)
	return p.parse()
}

type ParseResult struct {
	Invocation *Invocation
	Help       bool
	HelpArgs   []string
	Error      error
}

func (e *Engine) Run(ctx context.Context, args []string) (*common.ExecutionResult, error) {
	res := e.Parse(args)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.Help {
		e.PrintHelp(res.HelpArgs...)
		return &common.ExecutionResult{ExitCode: 0}, nil
	}
	return e.Execute(ctx, res.Invocation)
}

// Parse splits args into global flags, a command with its flags and
// arguments, and the words after "--", which are never interpreted.
func (e *Engine) Parse(args []string) *ParseResult {
	inv := &Invocation{
		Args:   make(map[string]string),
		Flags:  make(map[string]any),
		Global: make(map[string]any),
	}
	res := &ParseResult{Invocation: inv}
	dashes := slices.Index(args, "--")
	if dashes >= 0 {
		inv.Rest = slices.Clone(args[dashes+1:])
		args = args[:dashes]
	}

	var remaining []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--help" || arg == "-h" {
			res.Help = true
			continue
		}
		f, value, hasValue := matchFlag(e.GlobalFlags, arg)
		if f == nil {
			remaining = append(remaining, arg)
			continue
		}
		v, consumed, err := flagValue(f, value, hasValue, args[i+1:])
		if err != nil {
			res.Error = err
			return res
		}
		inv.Global[f.Name] = v
		i += consumed
	}

	if res.Help || len(remaining) == 0 {
		res.Help = true
		res.HelpArgs = remaining
		return res
	}
	if c, _ := match(e.Commands, remaining[0]); c != nil && c.Name == "help" {
		res.Help = true
		res.HelpArgs = remaining[1:]
		return res
	}

	if _, err := e.resolve(inv, e.Commands, remaining, true); err != nil {
		res.Error = err
		return res
	}
	if dashes >= 0 && inv.Command.Rest == nil {
		res.Error = fmt.Errorf("command %s takes no arguments after --", getCmdPath(inv.Command))
	}
	return res
}

func (e *Engine) Execute(ctx context.Context, inv *Invocation) (*common.ExecutionResult, error) {
	if inv == nil || inv.Command == nil {
		return nil, fmt.Errorf("no command given")
	}
	path := getCmdPath(inv.Command)
	if h, ok := e.Handlers[path]; ok {
		return h.Execute(ctx, inv)
	}
	return nil, fmt.Errorf("no handler registered for command: %s", path)
}

// match finds the command named word. An exact name wins over prefixes; more
// than one prefix match is an error.
func match(cmds []*Command, word string) (*Command, error) {
	var matches []*Command
	for _, c := range cmds {
		if c.Name == word {
			return c, nil
		}
		if strings.HasPrefix(c.Name, word) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	}
	return nil, ambiguous(word, matches)
}

func ambiguous(word string, matches []*Command) error {
	var names []string
	for _, m := range matches {
		names = append(names, getCmdPath(m))
	}
	return fmt.Errorf("ambiguous command: %s (candidates: %s)", word, strings.Join(names, ", "))
}

func (e *Engine) resolve(inv *Invocation, cmds []*Command, args []string, top bool) (*Invocation, error) {
	word := args[0]
	cmd, err := match(cmds, word)
	if err != nil {
		return nil, err
	}
	// Omitted parent support
	if cmd == nil && top {
		var subMatches []*Command
		for _, c := range cmds {
			for _, s := range c.Subs {
				if strings.HasPrefix(s.Name, word) {
					subMatches = append(subMatches, s)
				}
			}
		}
		if len(subMatches) > 1 {
			return nil, ambiguous(word, subMatches)
		}
		if len(subMatches) == 1 {
			cmd = subMatches[0]
		}
	}
	if cmd == nil {
		return nil, fmt.Errorf("unknown command: %s", word)
	}

	rest := args[1:]
	if len(cmd.Subs) > 0 {
		if len(rest) == 0 {
			return nil, fmt.Errorf("command %s needs a subcommand", getCmdPath(cmd))
		}
		return e.resolve(inv, cmd.Subs, rest, false)
	}
	inv.Command = cmd
	if err := e.parseParams(inv, cmd, rest); err != nil {
		return nil, err
	}
	return inv, nil
}

func (e *Engine) parseParams(inv *Invocation, cmd *Command, args []string) error {
	argIdx := 0
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") && arg != "-" {
			f, value, hasValue := matchFlag(cmd.Flags, arg)
			if f == nil {
				return fmt.Errorf("unknown flag %s for %s", arg, getCmdPath(cmd))
			}
			v, consumed, err := flagValue(f, value, hasValue, args[i+1:])
			if err != nil {
				return err
			}
			inv.Flags[f.Name] = v
			i += consumed
			continue
		}
		if argIdx >= len(cmd.Args) {
			return fmt.Errorf("unexpected argument %q for %s", arg, getCmdPath(cmd))
		}
		inv.Args[cmd.Args[argIdx].Name] = arg
		argIdx++
	}

	// Check for missing required arguments
	if argIdx < len(cmd.Args) {
		return fmt.Errorf("argument %s is missing", cmd.Args[argIdx].Name)
	}
	return nil
}

// matchFlag accepts --name, -s and their --name=value forms.
func matchFlag(flags []*Flag, arg string) (*Flag, string, bool) {
	name, value, hasValue := strings.Cut(arg, "=")
	for _, f := range flags {
		if name == "--"+f.Name || (f.Short != "" && name == "-"+f.Short) {
			return f, value, hasValue
		}
	}
	return nil, "", false
}

// flagValue returns the value of f and how many of the following words it
// consumed.
func flagValue(f *Flag, value string, hasValue bool, following []string) (any, int, error) {
	switch f.Type {
	case "bool":
		if !hasValue {
			return true, 0, nil
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, 0, fmt.Errorf("flag --%s: invalid boolean %q", f.Name, value)
		}
		return b, 0, nil
	case "string":
		if hasValue {
			return value, 0, nil
		}
		if len(following) == 0 {
			return nil, 0, fmt.Errorf("flag --%s needs a value", f.Name)
		}
		return following[0], 1, nil
	}
	return nil, 0, fmt.Errorf("flag --%s has unsupported type %s", f.Name, f.Type)
}

func (e *Engine) PrintHelp(args ...string) {
	t := e.Theme
	w := e.Out
	if len(args) > 0 {
		subject := args[0]
		// Try topic
		for _, topic := range e.Topics {
			if topic.Name == subject || strings.HasPrefix(topic.Name, subject) {
				e.PrintTopicHelp(topic)
				return
			}
		}
		// Find command in hierarchy
		curr := e.Commands
		var found *Command
		for _, arg := range args {
			m, _ := match(curr, arg)
			if m == nil {
				break
			}
			found = m
			curr = m.Subs
		}
		if found != nil {
			e.PrintCommandHelp(found)
			return
		}
	}
	fmt.Fprintf(w, "%s\n", t.Styled(t.Cyan.Bold(true), "launcher - hermetic interpreter actions"))
	fmt.Fprintf(w, "\n%s\n", t.Styled(t.Bold, "Usage:"))
	fmt.Fprintf(w, "  launcher %s\n", t.Styled(t.Yellow, "[flags] <command> [command flags] -- ARGV0 ARGS..."))
	fmt.Fprintf(w, "\n%s\n", t.Styled(t.Bold, "Global Flags:"))
	fmt.Fprintf(w, "  %-16s %s\n", t.Styled(t.Cyan, "--help, -h"), t.Styled(t.Dim, "Show help [command | topic]"))
	for _, f := range e.GlobalFlags {
		fmt.Fprintf(w, "  %-16s %s\n", t.Styled(t.Cyan, flagLabel(f)), t.Styled(t.Dim, f.Desc))
	}
	categories := []struct {
		name string
		icon string
		cmds []string
	}{
		{"RUN", t.IconRun, []string{"emacs", "binary"}},
		{"TEST", t.IconTest, []string{"test"}},
		{"INSPECT", t.IconInspect, []string{"inspect"}},
	}
	shown := make(map[string]bool)
	fmt.Fprintln(w)
	for _, cat := range categories {
		var cmds []*Command
		for _, name := range cat.cmds {
			for _, c := range e.Commands {
				if c.Name == name {
					cmds = append(cmds, c)
				}
			}
		}
		if len(cmds) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", cat.icon, t.Styled(t.Bold, cat.name))
		for i, c := range cmds {
			e.printCommandTree(c, "", i == len(cmds)-1)
			shown[c.Name] = true
		}
		fmt.Fprintln(w)
	}
	var misc []*Command
	for _, c := range e.Commands {
		if !shown[c.Name] && c.Name != "help" {
			misc = append(misc, c)
		}
	}
	if len(misc) > 0 {
		fmt.Fprintf(w, "%s %s\n", t.Bullet, t.Styled(t.Bold, "MISC"))
		for i, c := range misc {
			e.printCommandTree(c, "", i == len(misc)-1)
		}
		fmt.Fprintln(w)
	}
	if len(e.Topics) > 0 {
		fmt.Fprintf(w, "%s %s\n", t.IconHelp, t.Styled(t.Bold, "Topics:"))
		for _, topic := range e.Topics {
			fmt.Fprintf(w, "  %s %s %s\n", t.Styled(t.Cyan, topic.Name), e.getPadding(topic.Name, 20), t.Styled(t.Dim, topic.Desc))
		}
	}
	fmt.Fprintf(w, "\nType '%s' for more details.\n", t.Styled(t.Yellow, "launcher help <command>"))
}

func (e *Engine) getPadding(name string, target int) string {
	t := e.Theme
	dots := max(target-len(name), 2)
	return t.Styled(t.Dim, strings.Repeat(".", dots))
}

func (e *Engine) printCommandTree(c *Command, indent string, isLast bool) {
	t := e.Theme
	prefix := t.BoxTree
	if isLast {
		prefix = t.BoxLast
	}
	// 3 for the box prefix and 1 for the space
	visualLen := len(indent) + 4 + len(c.Name)
	padding := e.getPadding(strings.Repeat(" ", visualLen), 30)
	fmt.Fprintf(e.Out, "%s%s %s %s %s\n", indent, prefix, t.Styled(t.Cyan, c.Name), padding, t.Styled(t.Dim, c.Desc))
	newIndent := indent
	if isLast {
		newIndent += "    "
	} else {
		newIndent += t.BoxItem + " "
	}
	for i, s := range c.Subs {
		e.printCommandTree(s, newIndent, i == len(c.Subs)-1)
	}
}

func (e *Engine) PrintCommandHelp(c *Command) {
	t := e.Theme
	w := e.Out
	fmt.Fprintf(w, "\n%s %s\n", t.Styled(t.Bold, "Command:"), t.Styled(t.Cyan, getCmdPath(c)))
	fmt.Fprintf(w, "%s %s\n", t.Styled(t.Bold, "Description:"), t.Styled(t.Dim, c.Desc))
	fmt.Fprintf(w, "%s launcher %s\n", t.Styled(t.Bold, "Usage:"), t.Styled(t.Yellow, usage(c)))
	fmt.Fprintln(w)
	if len(c.Subs) > 0 {
		fmt.Fprintf(w, "%s\n", t.Styled(t.Bold, "Subcommands:"))
		for i, s := range c.Subs {
			prefix := t.BoxTree
			if i == len(c.Subs)-1 {
				prefix = t.BoxLast
			}
			fmt.Fprintf(w, "  %s %-12s %s\n", prefix, t.Styled(t.Cyan, s.Name), t.Styled(t.Dim, s.Desc))
		}
		fmt.Fprintln(w)
	}
	if len(c.Args) > 0 || c.Rest != nil {
		fmt.Fprintf(w, "%s\n", t.Styled(t.Bold, "Arguments:"))
		for _, a := range c.Args {
			fmt.Fprintf(w, "  %-15s %s\n", t.Styled(t.Yellow, "<"+a.Name+">"), t.Styled(t.Dim, a.Desc))
		}
		if c.Rest != nil {
			fmt.Fprintf(w, "  %-15s %s\n", t.Styled(t.Yellow, "-- <"+c.Rest.Name+"...>"), t.Styled(t.Dim, c.Rest.Desc))
		}
		fmt.Fprintln(w)
	}
	if len(c.Flags) > 0 {
		fmt.Fprintf(w, "%s\n", t.Styled(t.Bold, "Flags:"))
		for _, f := range c.Flags {
			fmt.Fprintf(w, "  %-15s %s\n", t.Styled(t.Cyan, flagLabel(f)), t.Styled(t.Dim, f.Desc))
		}
		fmt.Fprintln(w)
	}
	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "%s\n", t.Styled(t.Bold, "Examples:"))
		for _, ex := range c.Examples {
			fmt.Fprintf(w, "  %s %s\n", t.Styled(t.Green, "$"), ex)
		}
		fmt.Fprintln(w)
	}
}

func (e *Engine) PrintTopicHelp(topic *Topic) {
	t := e.Theme
	fmt.Fprintf(e.Out, "\n%s %s\n", t.Styled(t.Bold, "Topic:"), t.Styled(t.Cyan, topic.Name))
	fmt.Fprintf(e.Out, "%s %s\n", t.Styled(t.Bold, "Description:"), t.Styled(t.Dim, topic.Desc))
	fmt.Fprintln(e.Out)
	fmt.Fprintf(e.Out, "%s\n\n", topic.Text)
}

// usage renders the synopsis of c.
func usage(c *Command) string {
	parts := strings.Split(getCmdPath(c), "/")
	if len(c.Flags) > 0 {
		parts = append(parts, "[flags]")
	}
	for _, a := range c.Args {
		parts = append(parts, "<"+a.Name+">")
	}
	if c.Rest != nil {
		parts = append(parts, "--", "<"+c.Rest.Name+"...>")
	}
	return strings.Join(parts, " ")
}

func flagLabel(f *Flag) string {
	label := "--" + f.Name
	if f.Short != "" {
		label += ", -" + f.Short
	}
	return label
}

func getCmdPath(c *Command) string {
	if c.Parent == nil {
		return c.Name
	}
	return getCmdPath(c.Parent) + "/" + c.Name
}
