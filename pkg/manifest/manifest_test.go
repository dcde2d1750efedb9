package manifest

import (
	"bytes"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"launcher/pkg/common"
)

func sampleDeclaration() Declaration {
	return Declaration{
		LoadPath:    []string{"ws/lisp", "ws/vendor"},
		LoadFiles:   []string{"ws/lisp/b.elc", "ws/lisp/a.elc"},
		DataFiles:   []string{"ws/data/z.txt", "ws/data/a.txt", "ws/data/z.txt"},
		Tags:        []string{"slow", "local", "slow"},
		ExtraInputs: []string{"in/arg.txt", "ws/lisp/a.elc"},
		Outputs:     []string{"/tmp/report.json", "out/arg.txt"},
	}
}

func TestBuildOrdering(t *testing.T) {
	m, err := Build(sampleDeclaration())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := &Manifest{
		Version:     1,
		Root:        "RUNFILES_ROOT",
		LoadPath:    []string{"ws/lisp", "ws/vendor"},
		InputFiles:  []string{"ws/lisp/b.elc", "ws/lisp/a.elc", "ws/data/a.txt", "ws/data/z.txt", "in/arg.txt"},
		OutputFiles: []string{"/tmp/report.json", "out/arg.txt"},
		Tags:        []string{"local", "slow"},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	d := sampleDeclaration()
	var buf bytes.Buffer
	written, err := Write(&buf, d)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !bytes.Equal(written, buf.Bytes()) {
		t.Errorf("Returned bytes differ from written bytes")
	}

	m, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if diff := cmp.Diff(d.LoadPath, m.LoadPath); diff != "" {
		t.Errorf("load path mismatch:\n%s", diff)
	}
	if diff := cmp.Diff(d.Outputs, m.OutputFiles); diff != "" {
		t.Errorf("outputs mismatch:\n%s", diff)
	}
	sortStrings := cmpopts.SortSlices(func(a, b string) bool { return a < b })
	wantInputs := append(append(append([]string{}, d.LoadFiles...), d.DataFiles...), d.ExtraInputs...)
	if diff := cmp.Diff(setOf(wantInputs), m.InputFiles, sortStrings); diff != "" {
		t.Errorf("inputs mismatch (as set):\n%s", diff)
	}
	if diff := cmp.Diff(setOf(d.Tags), m.Tags, sortStrings); diff != "" {
		t.Errorf("tags mismatch (as set):\n%s", diff)
	}
}

func setOf(in []string) []string {
	seen := map[string]bool{}
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

func TestDeterministicBytes(t *testing.T) {
	var a, b bytes.Buffer
	if _, err := Write(&a, sampleDeclaration()); err != nil {
		t.Fatal(err)
	}
	d := sampleDeclaration()
	d.DataFiles = []string{"ws/data/a.txt", "ws/data/z.txt"}
	d.Tags = []string{"slow", "local"}
	if _, err := Write(&b, d); err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Errorf("Equivalent declarations gave different bytes:\n%s\n%s", a.String(), b.String())
	}
	if Digest(a.Bytes()) != Digest(b.Bytes()) {
		t.Errorf("Digest differs for identical bytes")
	}
	if len(Digest(a.Bytes())) != 64 {
		t.Errorf("Expected 64 hex digits, got %s", Digest(a.Bytes()))
	}
}

func TestEmptyListsSerializeAsArrays(t *testing.T) {
	m, err := Build(Declaration{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(b, []byte("null")) {
		t.Errorf("Expected no null fields, got %s", b)
	}
	if _, err := Parse(b); err != nil {
		t.Errorf("Empty manifest should parse, got %v", err)
	}
}

func TestAbsoluteEntriesAreInvariantViolations(t *testing.T) {
	cases := map[string]Declaration{
		"load path": {LoadPath: []string{"/abs/lisp"}},
		"load file": {LoadFiles: []string{"/abs/a.elc"}},
		"data file": {DataFiles: []string{"ok", "/abs/data"}},
		"empty":     {LoadFiles: []string{""}},
	}
	for name, d := range cases {
		var buf bytes.Buffer
		_, err := Write(&buf, d)
		if !common.IsInvariant(err) {
			t.Errorf("%s: expected invariant error, got %v", name, err)
		}
		if buf.Len() != 0 {
			t.Errorf("%s: nothing should be written, got %q", name, buf.String())
		}
	}

	if _, err := Build(Declaration{Outputs: []string{"/abs/out"}}); err != nil {
		t.Errorf("Absolute outputs are allowed, got %v", err)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"wrong version": `{"version":2,"root":"RUNFILES_ROOT","loadPath":[],"inputFiles":[],"outputFiles":[],"tags":[]}`,
		"missing field": `{"version":1,"root":"RUNFILES_ROOT","loadPath":[],"inputFiles":[],"outputFiles":[]}`,
		"extra field":   `{"version":1,"root":"RUNFILES_ROOT","loadPath":[],"inputFiles":[],"outputFiles":[],"tags":[],"x":1}`,
		"wrong type":    `{"version":1,"root":"RUNFILES_ROOT","loadPath":"ws","inputFiles":[],"outputFiles":[],"tags":[]}`,
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); !errors.Is(err, common.ErrMalformed) {
			t.Errorf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}
