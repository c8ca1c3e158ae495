package utils

import (
	"fmt"
	"path/filepath"
	"slices"
)

// CanonicalPath returns the absolute, cleaned form of p
func CanonicalPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s: %w", p, err)
	}

	return filepath.Clean(abs), nil
}

// CanonicalPaths canonicalizes every path, dropping empty entries and duplicates
// while keeping the order of first appearance
func CanonicalPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))

	for _, p := range paths {
		if p == "" {
			continue
		}

		c, err := CanonicalPath(p)
		if err != nil {
			return nil, err
		}

		if seen[c] {
			continue
		}

		seen[c] = true
		out = append(out, c)
	}

	return out, nil
}

// SortedKeys returns the keys of m in lexical order
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
