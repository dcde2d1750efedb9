// Package environ captures the process environment once and builds child
// environments from layered mappings.
package environ

import (
	"fmt"
	"maps"
	"os"
	"sort"
	"strings"
)

// Snapshot is an immutable copy of an environment.
type Snapshot struct {
	vars map[string]string
}

// Capture snapshots the current process environment.
func Capture() Snapshot {
	return FromList(os.Environ())
}

// FromList builds a snapshot from KEY=VALUE entries. Entries without '=' are
// ignored; later duplicates win.
func FromList(list []string) Snapshot {
	vars := make(map[string]string, len(list))
	for _, env := range list {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) == 2 {
			vars[pair[0]] = pair[1]
		}
	}
	return Snapshot{vars: vars}
}

// FromMap builds a snapshot holding a copy of m.
func FromMap(m map[string]string) Snapshot {
	return Snapshot{vars: maps.Clone(m)}
}

// Get returns the value of key, or "" when unset.
func (s Snapshot) Get(key string) string {
	return s.vars[key]
}

// Lookup returns the value of key and whether it is set.
func (s Snapshot) Lookup(key string) (string, bool) {
	v, ok := s.vars[key]
	return v, ok
}

// Len returns the number of variables.
func (s Snapshot) Len() int { return len(s.vars) }

// Map returns a copy of the variables.
func (s Snapshot) Map() map[string]string {
	if s.vars == nil {
		return map[string]string{}
	}
	return maps.Clone(s.vars)
}

// Merge layers mappings from lowest to highest precedence. A key present in a
// later layer replaces the value from an earlier one.
func Merge(layers ...map[string]string) map[string]string {
	res := make(map[string]string)
	for _, layer := range layers {
		maps.Copy(res, layer)
	}
	return res
}

// Flatten renders m as KEY=VALUE entries ordered by key.
func Flatten(m map[string]string) []string {
	res := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		res = append(res, fmt.Sprintf("%s=%s", k, m[k]))
	}
	return res
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
