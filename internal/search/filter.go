// Package search filters loaded listings locally and runs debounced
// server-side searches.
package search

import (
	"strings"

	"github.com/notanas/notanas-cli/internal/constants"
	"github.com/notanas/notanas-cli/internal/models"
)

// Filter returns the entries whose name contains query, ignoring case. The
// query "folder" also matches every plain folder regardless of its name, so a
// file whose name contains "folder" still matches it. An empty query returns entries unchanged. entries is never modified.
func Filter(entries []models.FileEntry, query string) []models.FileEntry {
	if query == "" {
		return entries
	}
	needle := strings.ToLower(query)
	folders := strings.EqualFold(query, constants.FolderKeyword)

	out := make([]models.FileEntry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Name), needle) || (folders && e.IsPlainFolder()) {
			out = append(out, e)
		}
	}
	return out
}

// Extensions returns the distinct type labels of entries in order of first
// appearance, with "Folder" standing for entries without an extension.
func Extensions(entries []models.FileEntry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		label := e.TypeLabel(constants.FolderLabel)
		if !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}
	return out
}
