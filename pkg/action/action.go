// Package action loads action descriptors. A descriptor is a Starlark file
// that calls exactly one of the builtins binary(...) or test(...).
package action

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"go.starlark.net/starlark"

	"launcher/pkg/common"
)

// Kind distinguishes scripted binaries from tests.
type Kind string

const (
	KindBinary Kind = "binary"
	KindTest   Kind = "test"
)

// Action is the declarative description of one interpreter invocation.
// Immutable
type Action struct {
	Kind    Kind
	Wrapper string
	Mode    common.Mode

	LoadPath  []string
	LoadFiles []string // binaries: files passed with --load; tests: test sources
	DataFiles []string
	Tags      []string

	InputArgs  []int
	OutputArgs []int

	SkipTests []string
	SkipTags  []string
}

var commonParams = []ParamDef{
	{Name: "wrapper", Type: "string", Desc: "Runfile of the interpreter wrapper binary", Required: true},
	{Name: "mode", Type: "string", Desc: "\"direct\" or \"wrap\""},
	{Name: "load_path", Type: "list[string]", Desc: "Logical load-path directories, in order"},
	{Name: "data", Type: "list[string]", Desc: "Logical data files"},
	{Name: "tags", Type: "list[string]", Desc: "Rule tags recorded in the manifest"},
}

var binaryDef = CommandDef{
	Name: "binary",
	Desc: "Declares a scripted binary run by the interpreter",
	Params: append(append([]ParamDef{}, commonParams...),
		ParamDef{Name: "load_files", Type: "list[string]", Desc: "Logical files to load, in order"},
		ParamDef{Name: "input_args", Type: "list[int]", Desc: "Indices of arguments naming input files"},
		ParamDef{Name: "output_args", Type: "list[int]", Desc: "Indices of arguments naming output files"},
	),
}

var testDef = CommandDef{
	Name: "test",
	Desc: "Declares a test run by the interpreter's test runner",
	Params: append(append([]ParamDef{}, commonParams...),
		ParamDef{Name: "srcs", Type: "list[string]", Desc: "Logical test source files, in order"},
		ParamDef{Name: "skip_tests", Type: "list[string]", Desc: "Names of tests to skip"},
		ParamDef{Name: "skip_tags", Type: "list[string]", Desc: "Test tags to skip"},
	),
}

// Load reads and evaluates the descriptor at path.
func Load(path string) (*Action, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &common.OSError{Op: "open", Path: path, Err: err}
	}
	return LoadSource(filepath.Base(path), src)
}

// LoadSource evaluates descriptor source code. name is used in error positions.
func LoadSource(name string, src []byte) (*Action, error) {
	var declared []*Action
	declare := func(kind Kind) StrictAction {
		return func(kwargs map[string]starlark.Value) (starlark.Value, error) {
			a, err := fromKwargs(kind, kwargs)
			if err != nil {
				return nil, err
			}
			declared = append(declared, a)
			return starlark.None, nil
		}
	}

	thread := &starlark.Thread{
		Name: name,
		Print: func(thread *starlark.Thread, msg string) {
			slog.Info(msg, "descriptor", thread.Name)
		},
	}
	builtins := starlark.StringDict{
		"binary": NewStrictBuiltin(binaryDef, declare(KindBinary)),
		"test":   NewStrictBuiltin(testDef, declare(KindTest)),
	}
	if _, err := starlark.ExecFile(thread, name, src, builtins); err != nil {
		return nil, fmt.Errorf("%w: action %s: %v", common.ErrMalformed, name, err)
	}

	switch len(declared) {
	case 0:
		return nil, common.Malformedf("action %s declares neither binary() nor test()", name)
	case 1:
		return declared[0], nil
	default:
		return nil, common.Malformedf("action %s declares %d actions, want one", name, len(declared))
	}
}

func fromKwargs(kind Kind, kw map[string]starlark.Value) (*Action, error) {
	a := &Action{Kind: kind, Mode: common.ModeDirect}
	a.Wrapper = kw["wrapper"].(starlark.String).GoString()
	if a.Wrapper == "" {
		return nil, fmt.Errorf("%s: wrapper must not be empty", kind)
	}
	if v, ok := kw["mode"]; ok {
		m, err := common.ParseMode(v.(starlark.String).GoString())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		a.Mode = m
	}

	strs := func(key string) []string {
		v, ok := kw[key]
		if !ok {
			return nil
		}
		res, _ := toStrings(v)
		return res
	}
	ints := func(key string) []int {
		v, ok := kw[key]
		if !ok {
			return nil
		}
		res, _ := toInts(v)
		return res
	}

	a.LoadPath = strs("load_path")
	a.DataFiles = strs("data")
	a.Tags = strs("tags")
	switch kind {
	case KindBinary:
		a.LoadFiles = strs("load_files")
		a.InputArgs = ints("input_args")
		a.OutputArgs = ints("output_args")
	case KindTest:
		a.LoadFiles = strs("srcs")
		a.SkipTests = sortedUnique(strs("skip_tests"))
		a.SkipTags = sortedUnique(strs("skip_tags"))
	}
	return a, nil
}

func sortedUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	var res []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			res = append(res, s)
		}
	}
	sort.Strings(res)
	return res
}
