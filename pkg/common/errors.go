package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a logical path has no resolution.
	ErrNotFound = errors.New("not found")
	// ErrPrecondition is returned when the environment is ambiguous or incomplete.
	ErrPrecondition = errors.New("precondition failed")
	// ErrMalformed is returned when a manifest or report fails to parse.
	ErrMalformed = errors.New("malformed input")
)

// OSError records a failed system operation and its target.
type OSError struct {
	Op   string
	Path string
	Err  error
}

func (e *OSError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OSError) Unwrap() error { return e.Err }

// InvariantError marks inputs that are invalid by construction, such as an
// absolute path where only relative paths are allowed. The top level turns it
// into a process abort instead of a regular failure.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "invariant violated: " + e.Msg
}

// Invariantf builds an InvariantError from a format string.
func Invariantf(format string, args ...any) error {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}

// IsInvariant reports whether err carries an InvariantError.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// Preconditionf builds an error wrapping ErrPrecondition.
func Preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// Malformedf builds an error wrapping ErrMalformed.
func Malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// ExitCodeFor maps a launcher error to the process exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if IsInvariant(err) {
		return ExitAbort
	}
	return ExitLauncherFailure
}
