// Package validation checks local paths derived from server data.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is wrapped by every rejection.
var ErrUnsafePath = errors.New("unsafe path")

// Filename rejects names that cannot be used as a single path element.
// Names such as "foo..bar.txt" are allowed; "." and ".." are not.
func Filename(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty filename", ErrUnsafePath)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: filename contains null byte: %q", ErrUnsafePath, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: filename contains a path separator: %q", ErrUnsafePath, name)
	case name == "." || name == "..":
		return fmt.Errorf("%w: filename %q", ErrUnsafePath, name)
	}
	return nil
}

// InDirectory checks that path, resolved against baseDir when relative,
// stays inside baseDir.
func InDirectory(path, baseDir string) error {
	if path == "" || baseDir == "" {
		return fmt.Errorf("%w: empty path or base directory", ErrUnsafePath)
	}
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}
	resolved := filepath.Clean(path)
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(base, resolved)
	}

	rel, err := filepath.Rel(base, resolved)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s escapes %s", ErrUnsafePath, path, baseDir)
	}
	return nil
}
