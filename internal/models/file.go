// Package models holds the wire types exchanged with the NAS server.
package models

import (
	"strings"
	"time"
)

// RootID is the reserved identifier of the root folder. No real entry may use it.
const RootID = ""

// FileEntry is one node of the NAS folder hierarchy.
type FileEntry struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Ext     string    `json:"ext"`
	IsDir   bool      `json:"isDir"`
	Path    string    `json:"path,omitempty"`
	LastMod time.Time `json:"lastMod,omitempty"`
	Parent  string    `json:"parent,omitempty"`
}

// IsPlainFolder reports whether the entry is a directory without an extension.
func (f FileEntry) IsPlainFolder() bool {
	return f.IsDir && f.Ext == ""
}

// TypeLabel returns the display label of the entry type: the extension without
// its dot, or label when there is none.
func (f FileEntry) TypeLabel(label string) string {
	if f.Ext == "" {
		return label
	}
	return strings.TrimPrefix(f.Ext, ".")
}

// ListingResponse is the envelope of listing and search endpoints.
type ListingResponse struct {
	Files []FileEntry `json:"Files"`
}
