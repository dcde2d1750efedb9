// Package manifest writes and reads the document that tells a sandboxed
// interpreter which files it may load, read and write.
package manifest

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"launcher/pkg/common"
	"launcher/pkg/pathutil"
)

const (
	// Version is the only manifest format version written and accepted.
	Version = 1
	// RootSentinel stands for the runfiles root in the "root" field.
	RootSentinel = "RUNFILES_ROOT"
)

// Manifest is the serialized form.
type Manifest struct {
	Version     int      `json:"version"`
	Root        string   `json:"root"`
	LoadPath    []string `json:"loadPath"`
	InputFiles  []string `json:"inputFiles"`
	OutputFiles []string `json:"outputFiles"`
	Tags        []string `json:"tags"`
}

// Declaration lists what an action declares. LoadPath, LoadFiles and
// DataFiles are logical runfile names and must be relative. ExtraInputs and
// Outputs come from concrete locations and may be absolute.
type Declaration struct {
	LoadPath    []string
	LoadFiles   []string
	DataFiles   []string
	Tags        []string
	ExtraInputs []string
	Outputs     []string
}

// Build validates d and assembles the manifest.
func Build(d Declaration) (*Manifest, error) {
	if err := checkRelative("load path", d.LoadPath); err != nil {
		return nil, err
	}
	if err := checkRelative("load file", d.LoadFiles); err != nil {
		return nil, err
	}
	if err := checkRelative("data file", d.DataFiles); err != nil {
		return nil, err
	}
	for _, list := range [][]string{d.ExtraInputs, d.Outputs} {
		for _, p := range list {
			if p == "" || strings.ContainsRune(p, 0) {
				return nil, common.Invariantf("invalid file name %q", p)
			}
		}
	}

	inputs := make([]string, 0, len(d.LoadFiles)+len(d.DataFiles)+len(d.ExtraInputs))
	inputs = append(inputs, d.LoadFiles...)
	inputs = append(inputs, sortedUnique(d.DataFiles)...)
	inputs = append(inputs, d.ExtraInputs...)

	return &Manifest{
		Version:     Version,
		Root:        RootSentinel,
		LoadPath:    nonNil(d.LoadPath),
		InputFiles:  unique(inputs),
		OutputFiles: nonNil(d.Outputs),
		Tags:        sortedUnique(d.Tags),
	}, nil
}

// Marshal serializes m. Equal manifests give identical bytes.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Write builds the manifest for d and writes it to w. It returns the bytes
// written so callers can log a digest.
func Write(w io.Writer, d Declaration) ([]byte, error) {
	m, err := Build(d)
	if err != nil {
		return nil, err
	}
	b, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	return b, nil
}

// Parse validates and decodes a serialized manifest.
func Parse(b []byte) (*Manifest, error) {
	if err := validate(b); err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, common.Malformedf("manifest: %v", err)
	}
	if m.Version != Version {
		return nil, common.Malformedf("manifest version %d, want %d", m.Version, Version)
	}
	return &m, nil
}

// Digest returns the hex BLAKE3-256 sum of serialized manifest bytes.
func Digest(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func checkRelative(kind string, paths []string) error {
	for _, p := range paths {
		if p == "" || strings.ContainsRune(p, 0) {
			return common.Invariantf("invalid %s %q", kind, p)
		}
		if pathutil.IsAbsolute(p) {
			return common.Invariantf("%s %s is absolute", kind, p)
		}
	}
	return nil
}

func sortedUnique(in []string) []string {
	res := unique(in)
	sort.Strings(res)
	return res
}

// unique drops repeated entries, keeping the first occurrence.
func unique(in []string) []string {
	seen := make(map[string]bool, len(in))
	res := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			res = append(res, s)
		}
	}
	return res
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string(nil), in...)
}
