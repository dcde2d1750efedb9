package runfiles

import (
	"fmt"

	"launcher/pkg/common"
	"launcher/pkg/pathutil"
)

// Adapter turns a Source into absolute paths with a typed not-found outcome.
type Adapter struct {
	src Source
}

// NewAdapter wraps src.
func NewAdapter(src Source) *Adapter {
	return &Adapter{src: src}
}

// Resolve returns the absolute path of a logical file. A missing file yields
// an error wrapping common.ErrNotFound. The result is not canonicalized:
// wrapper scripts find their runfiles through the literal path.
func (a *Adapter) Resolve(logical string) (string, error) {
	target, found, err := a.src.Rlocation(logical)
	if err != nil {
		return "", fmt.Errorf("resolving runfile %s: %w", logical, err)
	}
	if !found {
		return "", fmt.Errorf("runfile %s: %w", logical, common.ErrNotFound)
	}
	return pathutil.MakeAbsolute(target)
}

// Env returns the variables of the underlying source.
func (a *Adapter) Env() map[string]string {
	return a.src.Env()
}

// Root returns the runfiles directory of the underlying source.
func (a *Adapter) Root() string {
	return a.src.Root()
}
