package tempfile

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func TestTempName(t *testing.T) {
	r := NewRandomSeeded(1, 2)
	name, err := r.TempName("manifest-*.json")
	if err != nil {
		t.Fatalf("TempName failed: %v", err)
	}
	if !regexp.MustCompile(`^manifest-[0-9a-f]{16}\.json$`).MatchString(name) {
		t.Errorf("Unexpected name %s", name)
	}

	again, _ := NewRandomSeeded(1, 2).TempName("manifest-*.json")
	if again != name {
		t.Errorf("Same seed should give same name, got %s and %s", name, again)
	}

	if _, err := r.TempName("no-star"); err == nil {
		t.Errorf("Expected error for template without *")
	}
}

func TestCreateAndClose(t *testing.T) {
	dir := t.TempDir()
	f, err := Create(dir, "test-report-*.json", NewRandom())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if filepath.Dir(f.Path()) != dir {
		t.Errorf("Expected file in %s, got %s", dir, f.Path())
	}
	info, err := os.Stat(f.Path())
	if err != nil {
		t.Fatalf("Temp file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	if _, err := f.Write([]byte("{}")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	b, err := f.ReadAll()
	if err != nil || string(b) != "{}" {
		t.Errorf("Expected {}, got %q (%v)", b, err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(f.Path()); !os.IsNotExist(err) {
		t.Errorf("Temp file should be removed after Close")
	}
	if err := f.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
}

func TestCreateRetriesOnCollision(t *testing.T) {
	dir := t.TempDir()
	// Occupy the first name the seeded generator produces.
	first, _ := NewRandomSeeded(7, 7).TempName("x-*")
	if err := os.WriteFile(filepath.Join(dir, first), nil, 0644); err != nil {
		t.Fatal(err)
	}
	f, err := Create(dir, "x-*", NewRandomSeeded(7, 7))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()
	if filepath.Base(f.Path()) == first {
		t.Errorf("Create reused an existing name")
	}
}
