package argfiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLastIndex(t *testing.T) {
	for n := 1; n <= 5; n++ {
		argv := make([]string, n)
		for i := range argv {
			argv[i] = filepath.Join("/abs", string(rune('a'+i)))
		}
		got, err := Extract(argv, "", []int{-1})
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if len(got) != 1 || got[0] != argv[n-1] {
			t.Errorf("n=%d: expected [%s], got %v", n, argv[n-1], got)
		}
	}
}

func TestOutOfRangeDropped(t *testing.T) {
	argv := []string{"/bin/prog", "/in.txt"}
	got, err := Extract(argv, "", []int{2, 5, -3, 1})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if diff := cmp.Diff([]string{"/in.txt"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSortedAndUnique(t *testing.T) {
	argv := []string{"/p", "/a", "/b", "/c"}
	got, err := Extract(argv, "", []int{3, -3, 1, -1, 2})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if diff := cmp.Diff([]string{"/a", "/b", "/c"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLiteralPrefixAndRelative(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	const root = "/launcher-test-root"
	argv := []string{"prog", "/:" + root + "/out/file.txt", "rel/in.txt", "/elsewhere/x", root + "/../escape"}

	got, err := Extract(argv, root, []int{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	want := []string{"out/file.txt", filepath.Join(wd, "rel", "in.txt"), "/elsewhere/x", root + "/../escape"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	got, err = Extract(argv, "", []int{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	want = []string{root + "/out/file.txt", filepath.Join(wd, "rel", "in.txt")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("without root (-want +got):\n%s", diff)
	}
}

func TestEmptyArgv(t *testing.T) {
	got, err := Extract(nil, "", []int{-1, 0})
	if err != nil || len(got) != 0 {
		t.Errorf("Expected nothing, got %v (%v)", got, err)
	}
}
