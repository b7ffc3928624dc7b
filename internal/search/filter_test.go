package search

import (
	"reflect"
	"testing"

	"github.com/notanas/notanas-cli/internal/models"
)

var listing = []models.FileEntry{
	{ID: "r1", Name: "Docs", IsDir: true},
	{ID: "r2", Name: "a.txt", Ext: "txt"},
	{ID: "r3", Name: "folder-notes.md", Ext: "md"},
	{ID: "r4", Name: "Photos", IsDir: true},
	{ID: "r5", Name: "bundle.app", IsDir: true, Ext: "app"},
}

func ids(entries []models.FileEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty query keeps everything", "", []string{"r1", "r2", "r3", "r4", "r5"}},
		{"case-insensitive substring", "DOC", []string{"r1"}},
		{"extension in name", ".txt", []string{"r2"}},
		{"folder keyword", "folder", []string{"r1", "r3", "r4"}},
		{"folder keyword any case", "Folder", []string{"r1", "r3", "r4"}},
		{"no match", "zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(listing, tt.query))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestFilterFolderKeywordMatchesOnlyPlainFolders(t *testing.T) {
	entries := []models.FileEntry{
		{ID: "1", Name: "x", IsDir: true},
		{ID: "2", Name: "y", IsDir: true, Ext: "pkg"},
		{ID: "3", Name: "z"},
	}
	if got := ids(Filter(entries, "folder")); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("got %v", got)
	}
}

func TestFilterIdempotent(t *testing.T) {
	for _, q := range []string{"", "o", "folder", "txt"} {
		once := Filter(listing, q)
		twice := Filter(once, q)
		if !reflect.DeepEqual(ids(once), ids(twice)) {
			t.Errorf("Filter not idempotent for %q: %v vs %v", q, ids(once), ids(twice))
		}
	}
}

func TestFilterDoesNotMutate(t *testing.T) {
	before := append([]models.FileEntry(nil), listing...)
	_ = Filter(listing, "a")
	if !reflect.DeepEqual(before, listing) {
		t.Error("Filter modified its input")
	}
}

func TestExtensions(t *testing.T) {
	got := Extensions(listing)
	want := []string{"Folder", "txt", "md", "app"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extensions = %v, want %v", got, want)
	}
	if Extensions(nil) != nil {
		t.Error("expected nil for no entries")
	}
}
