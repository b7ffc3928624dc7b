// Package sanitize cleans names received from the server before they touch
// the local filesystem.
package sanitize

import (
	"path/filepath"
	"strings"
	"unicode"
)

var invisibleChars = []string{
	"\u200B", // Zero-width space
	"\u200C", // Zero-width non-joiner
	"\u200D", // Zero-width joiner
	"\uFEFF", // BOM
	"\u00AD", // Soft hyphen
	"\u2060", // Word joiner
	"\u180E", // Mongolian vowel separator
}

// RemoveInvisible strips zero-width and other invisible characters.
func RemoveInvisible(s string) string {
	for _, char := range invisibleChars {
		s = strings.ReplaceAll(s, char, "")
	}
	return s
}

// Filename reduces name to a safe base name: surrounding quotes and
// whitespace are trimmed, directories dropped, invisible and control
// characters removed. It returns "" if nothing usable remains.
func Filename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, `"'`)
	name = RemoveInvisible(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	// Server names may use either separator regardless of the local OS.
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)

	switch name {
	case ".", "..", "":
		return ""
	}
	return filepath.Clean(name)
}
