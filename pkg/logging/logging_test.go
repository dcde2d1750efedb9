package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSetup(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	id, err := Setup(&buf, "info", "json")
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if len(id) != 26 {
		t.Errorf("Expected a 26 character ULID, got %q", id)
	}

	slog.Debug("hidden message")
	slog.Info("visible message", "binary", "/bin/emacs")
	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("Debug record should be filtered at info level: %s", out)
	}
	for _, want := range []string{"visible message", "/bin/emacs", id} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got: %s", want, out)
		}
	}
}

func TestSetupRejectsBadValues(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	if _, err := Setup(&buf, "loud", "text"); err == nil {
		t.Errorf("Expected error for bad level")
	}
	if _, err := Setup(&buf, "info", "xml"); err == nil {
		t.Errorf("Expected error for bad format")
	}
}
