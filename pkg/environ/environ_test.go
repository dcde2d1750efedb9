package environ

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFromList(t *testing.T) {
	s := FromList([]string{"A=1", "B=x=y", "BROKEN", "A=2", "EMPTY="})
	if got := s.Get("A"); got != "2" {
		t.Errorf("Expected later duplicate to win, got %s", got)
	}
	if got := s.Get("B"); got != "x=y" {
		t.Errorf("Expected x=y, got %s", got)
	}
	if _, ok := s.Lookup("BROKEN"); ok {
		t.Errorf("Entry without '=' should be ignored")
	}
	if v, ok := s.Lookup("EMPTY"); !ok || v != "" {
		t.Errorf("Expected EMPTY to be set and empty, got %q,%v", v, ok)
	}
}

func TestSnapshotIsImmutable(t *testing.T) {
	src := map[string]string{"K": "v"}
	s := FromMap(src)
	src["K"] = "changed"
	m := s.Map()
	m["K"] = "mutated"
	if got := s.Get("K"); got != "v" {
		t.Errorf("Snapshot changed through an alias, got %s", got)
	}
}

func TestMergePrecedence(t *testing.T) {
	runfiles := map[string]string{"RUNFILES_DIR": "/rf", "SHARED": "runfiles", "LOW": "1"}
	overrides := map[string]string{"SHARED": "override", "EMACSPATH": "/x"}
	orig := map[string]string{"SHARED": "orig", "HOME": "/home/u"}

	got := Merge(runfiles, overrides, orig)
	want := map[string]string{
		"RUNFILES_DIR": "/rf",
		"SHARED":       "orig",
		"LOW":          "1",
		"EMACSPATH":    "/x",
		"HOME":         "/home/u",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}

	got = Merge(runfiles, overrides)
	if got["SHARED"] != "override" {
		t.Errorf("Expected override to beat runfiles, got %s", got["SHARED"])
	}
}

func TestFlattenDeterministic(t *testing.T) {
	a := map[string]string{"ZED": "1", "A-B": "2", "A": "3"}
	b := map[string]string{"M": "4", "A": "5"}
	c := map[string]string{"Q": "6"}

	first := Flatten(Merge(a, b, c))
	want := []string{"A=5", "A-B=2", "M=4", "Q=6", "ZED=1"}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("Flatten mismatch (-want +got):\n%s", diff)
	}
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first, Flatten(Merge(a, b, c))); diff != "" {
			t.Fatalf("Flatten not deterministic on run %d:\n%s", i, diff)
		}
	}
}

func TestFlattenEmpty(t *testing.T) {
	if got := Flatten(nil); len(got) != 0 {
		t.Errorf("Expected empty list, got %v", got)
	}
}
