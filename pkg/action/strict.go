package action

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
)

// ParamDef defines a single keyword parameter for a strict builtin.
type ParamDef struct {
	Name     string
	Type     string // "string", "list[string]", "list[int]"
	Desc     string
	Required bool
}

// CommandDef defines the schema for a strict builtin function.
type CommandDef struct {
	Name   string
	Desc   string
	Params []ParamDef
}

// StrictAction is the implementation of a strict builtin.
type StrictAction func(kwargs map[string]starlark.Value) (starlark.Value, error)

// NewStrictBuiltin creates a Starlark builtin that mandates keyword-only arguments.
func NewStrictBuiltin(def CommandDef, action StrictAction) *starlark.Builtin {
	return starlark.NewBuiltin(def.Name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("%s: takes keyword-only arguments\n%s", def.Name, generateUsage(def))
		}

		kwMap := make(map[string]starlark.Value)
		for _, pair := range kwargs {
			kwMap[pair[0].(starlark.String).GoString()] = pair[1]
		}

		if err := validateArgs(def, kwMap); err != nil {
			return nil, fmt.Errorf("%s: %w\n%s", def.Name, err, generateUsage(def))
		}

		return action(kwMap)
	})
}

func validateArgs(def CommandDef, kwMap map[string]starlark.Value) error {
	var missing []string
	for _, p := range def.Params {
		if _, ok := kwMap[p.Name]; !ok && p.Required {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing mandatory arguments: %v", missing)
	}

	for k, v := range kwMap {
		var param *ParamDef
		for i := range def.Params {
			if def.Params[i].Name == k {
				param = &def.Params[i]
				break
			}
		}
		if param == nil {
			return fmt.Errorf("unknown argument '%s'", k)
		}
		if err := checkType(param.Type, v); err != nil {
			return fmt.Errorf("argument '%s': %w", k, err)
		}
	}
	return nil
}

func checkType(typ string, v starlark.Value) error {
	switch typ {
	case "string":
		if _, ok := v.(starlark.String); !ok {
			return fmt.Errorf("want string, got %s", v.Type())
		}
	case "list[string]":
		_, err := toStrings(v)
		return err
	case "list[int]":
		_, err := toInts(v)
		return err
	}
	return nil
}

func toStrings(v starlark.Value) ([]string, error) {
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("want list of strings, got %s", v.Type())
	}
	iter := iterable.Iterate()
	defer iter.Done()
	res := []string{}
	var x starlark.Value
	for iter.Next(&x) {
		s, ok := x.(starlark.String)
		if !ok {
			return nil, fmt.Errorf("want list of strings, got element of type %s", x.Type())
		}
		res = append(res, s.GoString())
	}
	return res, nil
}

func toInts(v starlark.Value) ([]int, error) {
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("want list of ints, got %s", v.Type())
	}
	iter := iterable.Iterate()
	defer iter.Done()
	res := []int{}
	var x starlark.Value
	for iter.Next(&x) {
		i, err := starlark.AsInt32(x)
		if err != nil {
			return nil, fmt.Errorf("want list of ints: %w", err)
		}
		res = append(res, i)
	}
	return res, nil
}

func generateUsage(def CommandDef) string {
	var sb strings.Builder
	sb.WriteString("\nDescription:\n  " + def.Desc + "\n")
	sb.WriteString("\nUsage:\n  " + def.Name + "(\n")
	for _, p := range def.Params {
		req := ""
		if p.Required {
			req = ", required"
		}
		sb.WriteString(fmt.Sprintf("    %-15s # (%s%s) %s\n", p.Name+"=", p.Type, req, p.Desc))
	}
	sb.WriteString("  )\n")
	return sb.String()
}
