package common

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		err  bool
	}{
		{"direct", ModeDirect, false},
		{"", ModeDirect, false},
		{"WRAP", ModeWrap, false},
		{"sandboxed", ModeWrap, false},
		{"bogus", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestExitCodeFor(t *testing.T) {
	if got := ExitCodeFor(nil); got != 0 {
		t.Errorf("Expected 0 for nil error, got %d", got)
	}
	wrapped := fmt.Errorf("writing manifest: %w", Invariantf("absolute path %s", "/etc"))
	if got := ExitCodeFor(wrapped); got != ExitAbort {
		t.Errorf("Expected %d for invariant, got %d", ExitAbort, got)
	}
	osErr := &OSError{Op: "fork/exec", Path: "/bin/emacs", Err: os.ErrPermission}
	if got := ExitCodeFor(osErr); got != ExitLauncherFailure {
		t.Errorf("Expected %d for OS error, got %d", ExitLauncherFailure, got)
	}
	if !errors.Is(osErr, os.ErrPermission) {
		t.Errorf("OSError should unwrap to its cause")
	}
	if ExitLauncherFailure == ExitSignaled {
		t.Errorf("launcher failure code must differ from the signal code")
	}
}

func TestSentinelWrapping(t *testing.T) {
	if err := Preconditionf("found %d dirs", 2); !errors.Is(err, ErrPrecondition) {
		t.Errorf("Expected ErrPrecondition, got %v", err)
	}
	if err := Malformedf("bad json"); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed, got %v", err)
	}
}
