package action

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"launcher/pkg/common"
)

func TestLoadBinary(t *testing.T) {
	src := `
lisp = ["ws/lisp", "ws/vendor"]
binary(
    wrapper = "ws/emacs/wrapper",
    mode = "wrap",
    load_path = lisp,
    load_files = ["ws/lisp/main.elc"],
    data = ["ws/data/b", "ws/data/a"],
    tags = ["local"],
    input_args = [1],
    output_args = [-1],
)
`
	a, err := LoadSource("bin.star", []byte(src))
	if err != nil {
		t.Fatalf("LoadSource failed: %v", err)
	}
	want := &Action{
		Kind:       KindBinary,
		Wrapper:    "ws/emacs/wrapper",
		Mode:       common.ModeWrap,
		LoadPath:   []string{"ws/lisp", "ws/vendor"},
		LoadFiles:  []string{"ws/lisp/main.elc"},
		DataFiles:  []string{"ws/data/b", "ws/data/a"},
		Tags:       []string{"local"},
		InputArgs:  []int{1},
		OutputArgs: []int{-1},
	}
	if diff := cmp.Diff(want, a); diff != "" {
		t.Errorf("action mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTestDefaults(t *testing.T) {
	a, err := LoadSource("t.star", []byte(`test(wrapper = "w", srcs = ["t.el"], skip_tests = ["b", "a", "b"])`))
	if err != nil {
		t.Fatalf("LoadSource failed: %v", err)
	}
	if a.Kind != KindTest || a.Mode != common.ModeDirect {
		t.Errorf("Expected direct test, got %s/%s", a.Kind, a.Mode)
	}
	if diff := cmp.Diff([]string{"a", "b"}, a.SkipTests); diff != "" {
		t.Errorf("skip tests should be sorted sets (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"t.el"}, a.LoadFiles); diff != "" {
		t.Errorf("srcs mismatch:\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]struct {
		src  string
		want string
	}{
		"positional": {`binary("w")`, "keyword-only"},
		"missing":    {`binary(mode = "wrap")`, "missing mandatory arguments"},
		"unknown":    {`binary(wrapper = "w", srcs = [])`, "unknown argument 'srcs'"},
		"wrong type": {`binary(wrapper = "w", load_files = "a.el")`, "want list of strings"},
		"bad int":    {`binary(wrapper = "w", input_args = ["1"])`, "want list of ints"},
		"bad mode":   {`binary(wrapper = "w", mode = "fast")`, "unsupported mode"},
		"none":       {`x = 1`, "neither"},
		"two":        {"binary(wrapper = \"w\")\ntest(wrapper = \"w\")", "declares 2 actions"},
		"syntax":     {`binary(`, "bin.star"},
		"empty wrap": {`test(wrapper = "")`, "wrapper must not be empty"},
	}
	for name, tc := range cases {
		_, err := LoadSource("bin.star", []byte(tc.src))
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		if !errors.Is(err, common.ErrMalformed) {
			t.Errorf("%s: expected ErrMalformed, got %v", name, err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: expected error containing %q, got: %v", name, tc.want, err)
		}
	}
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "action.star")
	if err := os.WriteFile(p, []byte(`print("hi")
test(wrapper = "w", tags = ["x"])`), 0644); err != nil {
		t.Fatal(err)
	}
	a, err := Load(p)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if a.Wrapper != "w" || len(a.Tags) != 1 {
		t.Errorf("Unexpected action %+v", a)
	}

	var osErr *common.OSError
	if _, err := Load(filepath.Join(t.TempDir(), "missing.star")); !errors.As(err, &osErr) {
		t.Errorf("Expected OSError, got %v", err)
	}
}
