// Package loadpath turns logical load-path entries into interpreter flags.
package loadpath

import (
	"errors"
	"fmt"
	"log/slog"

	"launcher/pkg/common"
)

// HandlerPrefix marks a directory that the runtime handler resolves through
// the runfiles library instead of the filesystem.
const HandlerPrefix = "/bazel-runfile:"

// Resolver resolves logical names to absolute paths. A missing name must
// yield an error wrapping common.ErrNotFound.
type Resolver interface {
	Resolve(logical string) (string, error)
}

// Handler names the shim that installs the runfiles file-name handler.
type Handler struct {
	// Shim is the logical name of the compiled shim file.
	Shim string
	// Function is called after loading Shim.
	Function string
}

// Assembler builds --directory flags in load-path order.
type Assembler struct {
	res     Resolver
	handler Handler
}

func New(res Resolver, handler Handler) *Assembler {
	return &Assembler{res: res, handler: handler}
}

// Args returns the flags for entries. Directories that don't exist on disk
// are passed by logical name; the handler shim is loaded once, right before
// the first of them.
func (a *Assembler) Args(entries []string) ([]string, error) {
	var args []string
	installed := false
	for _, entry := range entries {
		var err error
		args, installed, err = a.appendEntry(args, entry, installed)
		if err != nil {
			return nil, err
		}
	}
	return args, nil
}

func (a *Assembler) appendEntry(args []string, entry string, installed bool) ([]string, bool, error) {
	dir, err := a.res.Resolve(entry)
	if err == nil {
		return append(args, "--directory="+dir), installed, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, installed, err
	}
	if !installed {
		shim, err := a.res.Resolve(a.handler.Shim)
		if err != nil {
			return nil, installed, fmt.Errorf("runfiles handler: %w", err)
		}
		slog.Debug("installing runfiles handler", "shim", shim, "first", entry)
		args = append(args, "--load="+shim, "--funcall="+a.handler.Function)
		installed = true
	}
	return append(args, "--directory="+HandlerPrefix+entry), installed, nil
}
