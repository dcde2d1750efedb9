// Package runfiles maps logical, workspace-relative file references to real
// paths. It reads the runfiles layout the build tool leaves next to a binary:
// either a manifest file with one "logical target" pair per line, or a
// directory tree mirroring the logical names.
package runfiles

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"launcher/pkg/common"
	"launcher/pkg/environ"
)

// Source is the runfile lookup service consumed by the launcher.
type Source interface {
	// Rlocation returns the real path of a logical file. found is false when
	// the file is legitimately absent; err is reserved for lookup failures.
	Rlocation(logical string) (target string, found bool, err error)
	// Env returns the variables that let a child locate the same runfiles.
	Env() map[string]string
	// Root returns the runfiles directory, or "" when only a manifest is known.
	Root() string
}

// New discovers runfiles for the binary argv0 using the variables in env.
func New(env environ.Snapshot, argv0 string) (Source, error) {
	if m := env.Get("RUNFILES_MANIFEST_FILE"); m != "" {
		return newManifest(m, env.Get("RUNFILES_DIR"))
	}
	for _, key := range []string{"RUNFILES_DIR", "TEST_SRCDIR"} {
		if d := env.Get(key); d != "" {
			return newDirectory(d), nil
		}
	}
	if argv0 != "" {
		if isFile(argv0 + ".runfiles_manifest") {
			return newManifest(argv0+".runfiles_manifest", "")
		}
		if isDir(argv0 + ".runfiles") {
			return newDirectory(argv0 + ".runfiles"), nil
		}
	}
	return nil, common.Preconditionf("couldn't create runfiles for %q: no manifest or directory found", argv0)
}

// Mutable
type manifest struct {
	file    string
	dir     string
	entries map[string]string
}

func newManifest(file, dir string) (*manifest, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, &common.OSError{Op: "open", Path: file, Err: err}
	}
	entries, err := parseManifest(string(data))
	if err != nil {
		return nil, fmt.Errorf("runfiles manifest %s: %w", file, err)
	}
	return &manifest{file: file, dir: dir, entries: entries}, nil
}

func parseManifest(data string) (map[string]string, error) {
	entries := make(map[string]string)
	for i, line := range strings.Split(data, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		escaped := strings.HasPrefix(line, " ")
		if escaped {
			line = line[1:]
		}
		logical, target, ok := strings.Cut(line, " ")
		if !ok {
			// Entries without a target denote empty files.
			logical, target = line, ""
		}
		if escaped {
			logical = unescape(logical, true)
			target = unescape(target, false)
		}
		if logical == "" {
			return nil, common.Malformedf("line %d: empty logical path", i+1)
		}
		entries[logical] = target
	}
	return entries, nil
}

// unescape reverses the manifest escaping: \s is a space (names only),
// \n a newline and \b a backslash.
func unescape(s string, name bool) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case 's':
			if !name {
				sb.WriteString(`\s`)
				i++
				continue
			}
			sb.WriteByte(' ')
		case 'n':
			sb.WriteByte('\n')
		case 'b':
			sb.WriteByte('\\')
		default:
			sb.WriteByte(s[i])
			continue
		}
		i++
	}
	return sb.String()
}

func (m *manifest) Rlocation(logical string) (string, bool, error) {
	key, err := normalize(logical)
	if err != nil {
		return "", false, err
	}
	if path.IsAbs(key) {
		return key, true, nil
	}
	target, ok := m.entries[key]
	if !ok || target == "" {
		return "", false, nil
	}
	return target, true, nil
}

func (m *manifest) Env() map[string]string {
	env := map[string]string{"RUNFILES_MANIFEST_FILE": m.file}
	if m.dir != "" {
		env["RUNFILES_DIR"] = m.dir
		env["JAVA_RUNFILES"] = m.dir
	}
	return env
}

func (m *manifest) Root() string { return m.dir }

type directory struct {
	dir string
}

func newDirectory(dir string) *directory {
	return &directory{dir: dir}
}

func (d *directory) Rlocation(logical string) (string, bool, error) {
	key, err := normalize(logical)
	if err != nil {
		return "", false, err
	}
	if path.IsAbs(key) {
		return key, true, nil
	}
	p := path.Join(d.dir, key)
	if _, err := os.Lstat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, &common.OSError{Op: "lstat", Path: p, Err: err}
	}
	return p, true, nil
}

func (d *directory) Env() map[string]string {
	return map[string]string{
		"RUNFILES_DIR":  d.dir,
		"JAVA_RUNFILES": d.dir,
	}
}

func (d *directory) Root() string { return d.dir }

func normalize(logical string) (string, error) {
	if logical == "" {
		return "", fmt.Errorf("empty runfile name")
	}
	clean := path.Clean(logical)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("runfile name %q escapes the runfiles tree", logical)
	}
	return clean, nil
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
