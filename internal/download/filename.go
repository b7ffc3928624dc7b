// Package download saves streamed file payloads to the local filesystem.
package download

import (
	"mime"
	"strings"

	"github.com/notanas/notanas-cli/internal/constants"
	"github.com/notanas/notanas-cli/internal/util/sanitize"
)

// ResolveFilename picks the local name for a payload: the filename parameter
// of the Content-Disposition header when it parses, else whatever follows
// "filename=", else "downloaded-file-{id}".
func ResolveFilename(contentDisposition, id string) string {
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
			if name := sanitize.Filename(params["filename"]); name != "" {
				return name
			}
		}
		if i := strings.Index(strings.ToLower(contentDisposition), "filename="); i >= 0 {
			raw := contentDisposition[i+len("filename="):]
			if j := strings.Index(raw, ";"); j >= 0 {
				raw = raw[:j]
			}
			if name := sanitize.Filename(raw); name != "" {
				return name
			}
		}
	}
	return DefaultFilename(id)
}

// DefaultFilename is the name used when the server does not provide one.
func DefaultFilename(id string) string {
	name := sanitize.Filename(constants.DefaultDownloadName + id)
	if name == "" {
		return constants.DefaultDownloadName
	}
	return name
}
