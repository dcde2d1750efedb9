// Package report converts the JSON test report written by the interpreter's
// test runner into a JUnit-style XML report.
package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the outcome of a single test.
type Status string

const (
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
	StatusAborted Status = "ABORTED"
	StatusError   Status = "ERROR"
)

// Duration is a seconds and nanoseconds pair, encoded in JSON as "1.5s".
type Duration struct {
	Seconds int64
	Nanos   int32
}

// Float returns the duration in fractional seconds.
func (d Duration) Float() float64 {
	return float64(d.Seconds) + float64(d.Nanos)/1e9
}

// String renders d with the shortest exact decimal, like "1.25".
func (d Duration) String() string {
	return strconv.FormatFloat(d.Float(), 'f', -1, 64)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String() + "s")
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDuration parses "<seconds>[.<fraction>]s" with up to nine fraction digits.
func ParseDuration(s string) (Duration, error) {
	body, ok := strings.CutSuffix(s, "s")
	if !ok || body == "" {
		return Duration{}, fmt.Errorf("invalid duration %q", s)
	}
	neg := strings.HasPrefix(body, "-")
	body = strings.TrimPrefix(body, "-")
	whole, frac, _ := strings.Cut(body, ".")
	if len(frac) > 9 {
		return Duration{}, fmt.Errorf("invalid duration %q: more than nine fraction digits", s)
	}
	secs, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Duration{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	var nanos int64
	if frac != "" {
		nanos, err = strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 32)
		if err != nil {
			return Duration{}, fmt.Errorf("invalid duration %q: %w", s, err)
		}
	}
	if neg {
		secs, nanos = -secs, -nanos
	}
	return Duration{Seconds: secs, Nanos: int32(nanos)}, nil
}

// Test is one test record.
type Test struct {
	Name     string   `json:"name"`
	Expected bool     `json:"expected"`
	Status   Status   `json:"status"`
	Elapsed  Duration `json:"elapsed"`
	Message  string   `json:"message,omitempty"`
}

// Report is the document written by the test runner.
type Report struct {
	StartTime time.Time `json:"startTime"`
	Elapsed   Duration  `json:"elapsed"`
	Tests     []Test    `json:"tests"`
}

// Summary holds the aggregate counts of a report.
type Summary struct {
	Total      int
	Unexpected int
	Failures   int
	Errors     int
}

// Summarize counts unexpected tests. Unexpected tests with status FAILED are
// failures; every other unexpected test is an error.
func (r *Report) Summarize() Summary {
	s := Summary{Total: len(r.Tests)}
	for _, t := range r.Tests {
		if t.Expected {
			continue
		}
		s.Unexpected++
		if t.Status == StatusFailed {
			s.Failures++
		}
	}
	s.Errors = s.Unexpected - s.Failures
	return s
}
