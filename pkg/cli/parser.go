package cli

import (
	"fmt"
	"slices"
)

var (
	flagTypes = []string{"bool", "string"}
	argTypes  = []string{"string", "path"}
)

// parser builds the command tree of an Engine from a definition. Statements
// attach to the most recent cmd or topic; "global" resets that scope.
type parser struct {
	lex       *lexer
	tok       token
	engine    *Engine
	lastCmd   *Command
	lastTopic *Topic
	lexErr    error
}

func newParser(dsl string, engine *Engine) *parser {
	p := &parser{
		lex:    newLexer(dsl),
		engine: engine,
	}
	p.next()
	return p
}

func (p *parser) next() {
	p.tok = p.lex.nextToken()
	if p.tok.kind == tokError && p.lexErr == nil {
		p.lexErr = fmt.Errorf("line %d: %s", p.tok.line, p.tok.value)
	}
}

// expect consumes a token of the given kind and returns its value.
func (p *parser) expect(kind tokenKind, what string) (string, error) {
	if p.tok.kind != kind {
		return "", fmt.Errorf("line %d: expected %s", p.tok.line, what)
	}
	v := p.tok.value
	p.next()
	return v, nil
}

// expectType consumes a type name, which must be one of allowed.
func (p *parser) expectType(owner, name string, allowed []string) (string, error) {
	line := p.tok.line
	typ, err := p.expect(tokIdentifier, owner+" type")
	if err != nil {
		return "", err
	}
	if !slices.Contains(allowed, typ) {
		return "", fmt.Errorf("line %d: %s %s has unsupported type %s", line, owner, name, typ)
	}
	return typ, nil
}

// command returns the command the current statement attaches to.
func (p *parser) command(keyword string) (*Command, error) {
	if p.lastCmd == nil {
		return nil, fmt.Errorf("line %d: '%s' must follow a 'cmd'", p.tok.line, keyword)
	}
	return p.lastCmd, nil
}

func (p *parser) parse() error {
	for p.tok.kind != tokEOF {
		if p.tok.kind == tokError {
			return p.lexErr
		}
		if err := p.parseStatement(); err != nil {
			if p.lexErr != nil {
				return p.lexErr
			}
			return err
		}
	}
	return nil
}

func (p *parser) parseStatement() error {
	if p.tok.kind != tokIdentifier {
		return fmt.Errorf("line %d: expected keyword, got %v", p.tok.line, p.tok.value)
	}

	keyword := p.tok.value
	switch keyword {
	case "global":
		p.lastCmd = nil
		p.lastTopic = nil
		p.next()
		return nil
	case "cmd":
		return p.parseCommand()
	case "flag":
		return p.parseFlag()
	case "arg":
		return p.parseArg()
	case "rest":
		return p.parseRest()
	case "example":
		return p.parseExample()
	case "topic":
		return p.parseTopic()
	case "text":
		return p.parseText()
	default:
		return fmt.Errorf("line %d: unknown keyword %q", p.tok.line, keyword)
	}
}

func (p *parser) parseFlag() error {
	p.next() // skip 'flag'
	name, err := p.expect(tokIdentifier, "flag name")
	if err != nil {
		return err
	}
	typ, err := p.expectType("flag", name, flagTypes)
	if err != nil {
		return err
	}
	desc, err := p.expect(tokString, "flag description")
	if err != nil {
		return err
	}
	f := &Flag{Name: name, Type: typ, Desc: desc}

	// An optional single-letter identifier names the short form.
	if p.tok.kind == tokIdentifier && len(p.tok.value) == 1 {
		f.Short = p.tok.value
		p.next()
	}

	if p.lastCmd == nil {
		p.engine.GlobalFlags = append(p.engine.GlobalFlags, f)
	} else {
		p.lastCmd.Flags = append(p.lastCmd.Flags, f)
	}
	return nil
}

func (p *parser) parseCommand() error {
	p.next() // skip 'cmd'

	var path []string
	for p.tok.kind == tokIdentifier {
		path = append(path, p.tok.value)
		p.next()
	}
	if len(path) == 0 {
		return fmt.Errorf("line %d: expected command name or path", p.tok.line)
	}

	desc := ""
	if p.tok.kind == tokString {
		desc = p.tok.value
		p.next()
	}

	list := &p.engine.Commands
	var current *Command
	for _, name := range path {
		i := slices.IndexFunc(*list, func(c *Command) bool { return c.Name == name })
		if i < 0 {
			*list = append(*list, &Command{Name: name, Parent: current})
			i = len(*list) - 1
		}
		current = (*list)[i]
		list = &current.Subs
	}
	if desc != "" {
		current.Desc = desc
	}

	p.lastCmd = current
	return nil
}

func (p *parser) parseArg() error {
	cmd, err := p.command("arg")
	if err != nil {
		return err
	}
	p.next() // skip 'arg'
	name, err := p.expect(tokIdentifier, "arg name")
	if err != nil {
		return err
	}
	typ, err := p.expectType("arg", name, argTypes)
	if err != nil {
		return err
	}
	desc, err := p.expect(tokString, "arg description")
	if err != nil {
		return err
	}
	cmd.Args = append(cmd.Args, &Arg{Name: name, Type: typ, Desc: desc})
	return nil
}

// parseRest declares that the command takes the words after "--".
func (p *parser) parseRest() error {
	cmd, err := p.command("rest")
	if err != nil {
		return err
	}
	line := p.tok.line
	p.next() // skip 'rest'
	if cmd.Rest != nil {
		return fmt.Errorf("line %d: command %s already declares rest %s", line, getCmdPath(cmd), cmd.Rest.Name)
	}
	name, err := p.expect(tokIdentifier, "rest name")
	if err != nil {
		return err
	}
	desc, err := p.expect(tokString, "rest description")
	if err != nil {
		return err
	}
	cmd.Rest = &Arg{Name: name, Type: "argv", Desc: desc}
	return nil
}

func (p *parser) parseExample() error {
	cmd, err := p.command("example")
	if err != nil {
		return err
	}
	p.next() // skip 'example'
	ex, err := p.expect(tokString, "example string")
	if err != nil {
		return err
	}
	cmd.Examples = append(cmd.Examples, ex)
	return nil
}

func (p *parser) parseTopic() error {
	p.next() // skip 'topic'
	name, err := p.expect(tokIdentifier, "topic name")
	if err != nil {
		return err
	}
	desc, err := p.expect(tokString, "topic description")
	if err != nil {
		return err
	}
	t := &Topic{Name: name, Desc: desc}
	p.engine.Topics = append(p.engine.Topics, t)
	p.lastTopic = t
	return nil
}

func (p *parser) parseText() error {
	if p.lastTopic == nil {
		return fmt.Errorf("line %d: 'text' must follow a 'topic'", p.tok.line)
	}
	p.next() // skip 'text'
	text, err := p.expect(tokString, "text string")
	if err != nil {
		return err
	}
	p.lastTopic.Text = text
	return nil
}
