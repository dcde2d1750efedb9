package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"launcher/pkg/common"
)

func TestMakeAbsolute(t *testing.T) {
	got, err := MakeAbsolute("/already/abs")
	if err != nil || got != "/already/abs" {
		t.Errorf("Expected /already/abs, got %s (%v)", got, err)
	}

	wd, _ := os.Getwd()
	got, err = MakeAbsolute("foo/bar")
	if err != nil {
		t.Fatalf("MakeAbsolute failed: %v", err)
	}
	if want := filepath.Join(wd, "foo", "bar"); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestRelativeTo(t *testing.T) {
	tests := []struct {
		root, p string
		want    string
		ok      bool
	}{
		{"/r", "/r/a/b", "a/b", true},
		{"/r", "/r", ".", true},
		{"/r", "/other/x", "", false},
		{"/r/sub", "/r/subdir/x", "", false},
		{"/r", "/r/..foo", "..foo", true},
	}
	for _, tt := range tests {
		got, ok := RelativeTo(tt.root, tt.p)
		if ok != tt.ok || got != tt.want {
			t.Errorf("RelativeTo(%s, %s) = %q,%v; want %q,%v", tt.root, tt.p, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStripLiteral(t *testing.T) {
	if got := StripLiteral("/:/tmp/x"); got != "/tmp/x" {
		t.Errorf("Expected /tmp/x, got %s", got)
	}
	if got := StripLiteral("plain"); got != "plain" {
		t.Errorf("Expected plain, got %s", got)
	}
	if got := Literal("/tmp/x"); got != "/:/tmp/x" {
		t.Errorf("Expected /:/tmp/x, got %s", got)
	}
}

func TestFindUniqueDir(t *testing.T) {
	dir := t.TempDir()
	for _, d := range []string{"29.1", "site-lisp"} {
		if err := os.Mkdir(filepath.Join(dir, d), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "30.0"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	got, err := FindUniqueDir(dir, `[0-9][.0-9]*`)
	if err != nil {
		t.Fatalf("FindUniqueDir failed: %v", err)
	}
	if want := filepath.Join(dir, "29.1"); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	if err := os.Mkdir(filepath.Join(dir, "28.2"), 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := FindUniqueDir(dir, `[0-9][.0-9]*`); !errors.Is(err, common.ErrPrecondition) {
		t.Errorf("Expected precondition error for two versions, got %v", err)
	}

	if _, err := FindUniqueDir(dir, `nothing`); !errors.Is(err, common.ErrPrecondition) {
		t.Errorf("Expected precondition error for no match, got %v", err)
	}
}

func TestFileSize(t *testing.T) {
	p := filepath.Join(t.TempDir(), "report.json")
	if err := os.WriteFile(p, []byte(`{"tests":[]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if got := FileSize(p); got != 12 {
		t.Errorf("Expected 12, got %d", got)
	}
	if got := FileSize(p + ".missing"); got != 0 {
		t.Errorf("Expected 0 for a missing file, got %d", got)
	}
}

func TestCompileAnchored(t *testing.T) {
	re, err := CompileAnchored(`[0-9]+`)
	if err != nil {
		t.Fatal(err)
	}
	if re.MatchString("a12") || !re.MatchString("12") {
		t.Errorf("pattern should be anchored, got %s", re.String())
	}
}
