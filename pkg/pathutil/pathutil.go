// Package pathutil holds lexical path helpers and small directory lookups.
// Nothing here resolves symlinks.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"launcher/pkg/common"
)

// LiteralPrefix marks a filename that the interpreter must not expand.
const LiteralPrefix = "/:"

// IsAbsolute reports whether p is an absolute path.
func IsAbsolute(p string) bool {
	return filepath.IsAbs(p)
}

// MakeAbsolute returns p joined onto the working directory when it is relative.
// Absolute paths are returned unchanged.
func MakeAbsolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", &common.OSError{Op: "getcwd", Path: p, Err: err}
	}
	return filepath.Join(wd, p), nil
}

// Join is filepath.Join, exported so callers don't mix separators.
func Join(elem ...string) string {
	return filepath.Join(elem...)
}

// RelativeTo rewrites p relative to root. The second result is false when p
// lies outside root.
func RelativeTo(root, p string) (string, bool) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// StripLiteral removes a leading LiteralPrefix.
func StripLiteral(s string) string {
	return strings.TrimPrefix(s, LiteralPrefix)
}

// Literal prefixes an absolute filename with LiteralPrefix.
func Literal(abs string) string {
	return LiteralPrefix + abs
}

// SubDirs lists the names of the immediate subdirectories of dir, sorted.
func SubDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &common.OSError{Op: "readdir", Path: dir, Err: err}
	}
	var res []string
	for _, e := range entries {
		if e.IsDir() {
			res = append(res, e.Name())
		}
	}
	return res, nil
}

// FindUniqueDir returns the single subdirectory of dir whose name matches the
// anchored pattern. Zero or several matches are a precondition failure.
func FindUniqueDir(dir, pattern string) (string, error) {
	re, err := CompileAnchored(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	names, err := SubDirs(dir)
	if err != nil {
		return "", err
	}
	var found []string
	for _, n := range names {
		if re.MatchString(n) {
			found = append(found, n)
		}
	}
	switch len(found) {
	case 0:
		return "", common.Preconditionf("no directory matching %s in %s", pattern, dir)
	case 1:
		return filepath.Join(dir, found[0]), nil
	default:
		return "", common.Preconditionf("expected exactly one directory matching %s in %s, got %v", pattern, dir, found)
	}
}

// FileSize returns the size of a file, or zero if it can't be read. Only
// used for log attributes.
func FileSize(p string) uint64 {
	info, err := os.Stat(p)
	if err != nil || info.Size() < 0 {
		return 0
	}
	return uint64(info.Size())
}
