// Package common provides shared types used across the launcher.
// It includes the action mode variant, process exit codes and the error
// taxonomy used for communication between components.
package common

import (
	"fmt"
	"strings"
)

// Mode selects how the interpreter accesses files.
type Mode string

const (
	// ModeDirect trusts the child with direct filesystem access. No manifest is written.
	ModeDirect Mode = "direct"
	// ModeWrap constrains the child to the files declared in a manifest.
	ModeWrap Mode = "wrap"
)

// ParseMode converts a string representation of a mode into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "direct":
		return ModeDirect, nil
	case "wrap", "wrapped", "sandboxed":
		return ModeWrap, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", s)
	}
}

// String returns the string representation of the Mode.
func (m Mode) String() string {
	return string(m)
}

const (
	// ExitSignaled is reported when the child was terminated by a signal.
	ExitSignaled = 0xFF
	// ExitLauncherFailure is reported when the launcher itself failed to run the action.
	ExitLauncherFailure = 0xFE
	// ExitAbort is reported after an invariant violation, like abort(3).
	ExitAbort = 134
)

// ExecutionResult represents the outcome of a launcher command.
type ExecutionResult struct {
	// ExitCode is the status code the launcher process exits with.
	ExitCode int
}
