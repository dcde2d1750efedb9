package cli

import (
	"context"

	"launcher/pkg/common"
)

type Flag struct {
	Name  string
	Short string
	Type  string // "bool", "string"
	Desc  string
}

type Arg struct {
	Name string
	Type string // "string", "path"; "argv" for the words after "--"
	Desc string
}

type Command struct {
	Name     string
	Desc     string
	Args     []*Arg
	Flags    []*Flag
	Rest     *Arg // nil when the command takes nothing after "--"
	Subs     []*Command
	Parent   *Command
	Examples []string
}

type Topic struct {
	Name string
	Desc string
	Text string
}

// Invocation is one parsed command line. Rest holds every word after the
// first "--", unparsed.
type Invocation struct {
	Command *Command
	Args    map[string]string
	Flags   map[string]any
	Global  map[string]any
	Rest    []string
}

// Flag returns the value of a string flag, or "" when it was not given.
func (inv *Invocation) Flag(name string) string {
	s, _ := inv.Flags[name].(string)
	return s
}

// GlobalString returns the value of a global string flag.
func (inv *Invocation) GlobalString(name string) string {
	s, _ := inv.Global[name].(string)
	return s
}

// GlobalBool returns the value of a global bool flag.
func (inv *Invocation) GlobalBool(name string) bool {
	b, _ := inv.Global[name].(bool)
	return b
}

type Handler interface {
	Execute(ctx context.Context, inv *Invocation) (*common.ExecutionResult, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, inv *Invocation) (*common.ExecutionResult, error)

func (f HandlerFunc) Execute(ctx context.Context, inv *Invocation) (*common.ExecutionResult, error) {
	return f(ctx, inv)
}
