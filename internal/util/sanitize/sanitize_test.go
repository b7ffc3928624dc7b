package sanitize

import "testing"

func TestFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "report.pdf", "report.pdf"},
		{"double quotes", `"report.pdf"`, "report.pdf"},
		{"single quotes", `'report.pdf'`, "report.pdf"},
		{"zero-width space", "rep\u200Bort.pdf", "report.pdf"},
		{"BOM", "\uFEFFnotes.txt", "notes.txt"},
		{"unix traversal", "../../etc/passwd", "passwd"},
		{"windows traversal", `..\..\boot.ini`, "boot.ini"},
		{"control characters", "a\x00b\nc.txt", "abc.txt"},
		{"trailing slash", "dir/", ""},
		{"only dots", "..", ""},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.input); got != tt.expected {
				t.Errorf("Filename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRemoveInvisible(t *testing.T) {
	if got := RemoveInvisible("a\u200Cb\u200Dc\u2060d\u00ADe"); got != "abcde" {
		t.Errorf("got %q", got)
	}
}
