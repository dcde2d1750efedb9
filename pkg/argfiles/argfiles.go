// Package argfiles recovers file names that an action received as
// command-line arguments rather than as declared attributes.
package argfiles

import (
	"sort"

	"launcher/pkg/pathutil"
)

// Extract returns the files named by argv at the given indices. Negative
// indices count from the end; out-of-range indices are skipped. Indices are
// visited in ascending order and each at most once. When root is non-empty,
// files below root are returned relative to it.
func Extract(argv []string, root string, indices []int) ([]string, error) {
	if root != "" {
		var err error
		if root, err = pathutil.MakeAbsolute(root); err != nil {
			return nil, err
		}
	}
	var files []string
	for _, i := range normalize(len(argv), indices) {
		abs, err := pathutil.MakeAbsolute(pathutil.StripLiteral(argv[i]))
		if err != nil {
			return nil, err
		}
		if root != "" {
			if rel, ok := pathutil.RelativeTo(root, abs); ok {
				files = append(files, rel)
				continue
			}
		}
		files = append(files, abs)
	}
	return files, nil
}

func normalize(n int, indices []int) []int {
	seen := make(map[int]bool, len(indices))
	var res []int
	for _, i := range indices {
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		res = append(res, i)
	}
	sort.Ints(res)
	return res
}
