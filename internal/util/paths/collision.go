// Package paths resolves local destinations for downloads.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// WithID inserts id before the extension: "file.zip" -> "file_ABC123.zip".
func WithID(path, id string) string {
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	return fmt.Sprintf("%s_%s%s", base, id, ext)
}

// Resolve returns a path in dir for name that does not exist yet. If name is
// taken the file id is appended; if that is taken too a counter follows.
func Resolve(dir, name, id string) (string, error) {
	candidate := filepath.Join(dir, name)
	free, err := available(candidate)
	if err != nil || free {
		return candidate, err
	}

	candidate = WithID(candidate, id)
	for i := 2; ; i++ {
		free, err := available(candidate)
		if err != nil || free {
			return candidate, err
		}
		candidate = WithID(filepath.Join(dir, name), fmt.Sprintf("%s_%d", id, i))
	}
}

func available(path string) (bool, error) {
	_, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	return false, err
}
