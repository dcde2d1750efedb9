// Package tempfile creates private temporary files with unique names drawn
// from a per-process pseudo-random generator.
package tempfile

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"launcher/pkg/common"
)

const maxAttempts = 10

// Random produces temporary file names. Not cryptographically strong.
// Mutable
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns a generator seeded from the clock and process id.
func NewRandom() *Random {
	return NewRandomSeeded(uint64(time.Now().UnixNano()), uint64(os.Getpid()))
}

// NewRandomSeeded returns a generator with a fixed seed.
func NewRandomSeeded(seed1, seed2 uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// TempName replaces the last '*' in tmpl with sixteen random hex digits.
func (r *Random) TempName(tmpl string) (string, error) {
	pos := strings.LastIndex(tmpl, "*")
	if pos < 0 {
		return "", fmt.Errorf("no * in template %s", tmpl)
	}
	r.mu.Lock()
	n := r.rng.Uint64()
	r.mu.Unlock()
	return fmt.Sprintf("%s%016x%s", tmpl[:pos], n, tmpl[pos+1:]), nil
}

// File is an exclusively created temporary file. Close removes it.
// Mutable
type File struct {
	f      *os.File
	path   string
	closed bool
}

// Create makes a new file in dir named after tmpl. It retries a few times
// when a name is already taken.
func Create(dir, tmpl string, r *Random) (*File, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	for range maxAttempts {
		name, err := r.TempName(tmpl)
		if err != nil {
			return nil, err
		}
		p := filepath.Join(dir, name)
		f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
		if err == nil {
			return &File{f: f, path: p}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, &common.OSError{Op: "open", Path: p, Err: err}
		}
	}
	return nil, &common.OSError{
		Op:   "open",
		Path: filepath.Join(dir, tmpl),
		Err:  fmt.Errorf("can't create temporary file after %d attempts: %w", maxAttempts, os.ErrExist),
	}
}

// Path returns the absolute location of the file.
func (t *File) Path() string { return t.path }

// Write writes b and flushes it to the file.
func (t *File) Write(b []byte) (int, error) {
	n, err := t.f.Write(b)
	if err != nil {
		return n, &common.OSError{Op: "write", Path: t.path, Err: err}
	}
	if err := t.f.Sync(); err != nil {
		return n, &common.OSError{Op: "fsync", Path: t.path, Err: err}
	}
	return n, nil
}

// ReadAll reads the current content from disk, including data written by
// other processes.
func (t *File) ReadAll() ([]byte, error) {
	b, err := os.ReadFile(t.path)
	if err != nil {
		return nil, &common.OSError{Op: "read", Path: t.path, Err: err}
	}
	return b, nil
}

// Close closes and deletes the file. Calling it again is a no-op.
func (t *File) Close() error {
	if t == nil || t.closed {
		return nil
	}
	t.closed = true
	err := t.f.Close()
	if rerr := os.Remove(t.path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) && err == nil {
		err = rerr
	}
	if err != nil {
		return &common.OSError{Op: "close", Path: t.path, Err: err}
	}
	return nil
}
