// Package source finds corpus files by glob and reads them as documents.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover expands the doublestar patterns (for example "corpus/**/*.txt")
// and returns the matching regular files, sorted and without duplicates.
// The order is the document ID order of a build.
func Discover(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePathPattern(filepath.ToSlash(pattern)) {
			return nil, fmt.Errorf("invalid source pattern %q", pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", pattern, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Document is one corpus file.
type Document struct {
	Name string
	Body string
}

// Read loads path; the document is named by its path.
func Read(path string) (Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Document{Name: filepath.ToSlash(path), Body: string(b)}, nil
}
