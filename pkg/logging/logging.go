// Package logging installs the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"
)

// Setup makes a logger writing to w the default slog logger. Every record
// carries the invocation id, which is returned as well.
func Setup(w io.Writer, level, format string) (string, error) {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return "", fmt.Errorf("invalid log level %q: %w", level, err)
	}
	var formatter log.Formatter
	switch strings.ToLower(format) {
	case "", "text":
		formatter = log.TextFormatter
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		return "", fmt.Errorf("invalid log format %q", format)
	}

	handler := log.NewWithOptions(w, log.Options{
		Prefix:          "launcher",
		Level:           lvl,
		Formatter:       formatter,
		ReportTimestamp: lvl == log.DebugLevel,
	})
	id := ulid.Make().String()
	slog.SetDefault(slog.New(handler).With("invocation", id))
	return id, nil
}
