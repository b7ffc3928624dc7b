package otl

import (
	"encoding/base64"
	"fmt"
	"io"

	"github.com/skip2/go-qrcode"
)

// QRCode renders link as a QR code made of block characters for a terminal.
func QRCode(link string) (string, error) {
	q, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return q.ToSmallString(false), nil
}

// WriteQRPNG writes link as a PNG QR code to path.
func WriteQRPNG(link, path string, size int) error {
	if size <= 0 {
		size = 256
	}
	if err := qrcode.WriteFile(link, qrcode.Medium, size, path); err != nil {
		return fmt.Errorf("failed to write QR code: %w", err)
	}
	return nil
}

// TerminalClipboard sets the system clipboard through the OSC 52 escape
// sequence, which most terminal emulators honour, including over SSH.
type TerminalClipboard struct {
	W io.Writer
}

func (c TerminalClipboard) WriteText(text string) error {
	_, err := fmt.Fprintf(c.W, "\x1b]52;c;%s\a", base64.StdEncoding.EncodeToString([]byte(text)))
	return err
}

// PrintClipboard writes the text on its own line, for when no terminal
// clipboard is available.
type PrintClipboard struct {
	W io.Writer
}

func (c PrintClipboard) WriteText(text string) error {
	_, err := fmt.Fprintln(c.W, text)
	return err
}
