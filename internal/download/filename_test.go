package download

import "testing"

func TestResolveFilename(t *testing.T) {
	tests := []struct {
		name   string
		header string
		id     string
		want   string
	}{
		{"quoted", `attachment; filename="report.pdf"`, "f1", "report.pdf"},
		{"unquoted", `attachment; filename=notes.txt`, "f2", "notes.txt"},
		{"with spaces", `attachment; filename="Q3 results.xlsx"`, "f3", "Q3 results.xlsx"},
		{"malformed falls back to split", `attachment; filename="a b.txt`, "f4", "a b.txt"},
		{"bare filename", `filename='x.bin'`, "f5", "x.bin"},
		{"path stripped", `attachment; filename="../../etc/passwd"`, "f6", "passwd"},
		{"missing header", "", "f7", "downloaded-file-f7"},
		{"no filename", "attachment", "f8", "downloaded-file-f8"},
		{"empty filename", `attachment; filename=""`, "f9", "downloaded-file-f9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveFilename(tt.header, tt.id); got != tt.want {
				t.Errorf("ResolveFilename(%q, %q) = %q, want %q", tt.header, tt.id, got, tt.want)
			}
		})
	}
}

func TestDefaultFilenameSanitizesID(t *testing.T) {
	if got := DefaultFilename("../x"); got != "x" {
		t.Errorf("got %q", got)
	}
}
