package progress

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestTextDownloadBar(t *testing.T) {
	var out bytes.Buffer
	bar := NewTextDownloadBar(&out, "report.pdf", 11)

	var dst bytes.Buffer
	if _, err := io.Copy(&dst, bar.ProxyReader(strings.NewReader("hello world"))); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if bar.Written() != 11 {
		t.Errorf("expected 11 bytes written, got %d", bar.Written())
	}
	bar.Finish("/tmp/report.pdf", nil)

	text := out.String()
	if !strings.Contains(text, "Downloading report.pdf") {
		t.Errorf("missing start line: %q", text)
	}
	if !strings.Contains(text, "✓ /tmp/report.pdf") {
		t.Errorf("missing completion line: %q", text)
	}
}

func TestTextDownloadBarFailure(t *testing.T) {
	var out bytes.Buffer
	bar := NewTextDownloadBar(&out, "notes.txt", -1)
	bar.Finish("", errors.New("boom"))
	if !strings.Contains(out.String(), "✗ notes.txt: boom") {
		t.Errorf("unexpected output: %q", out.String())
	}
}
