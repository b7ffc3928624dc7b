package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/notanas/notanas-cli/internal/constants"
	"github.com/notanas/notanas-cli/internal/diskspace"
	"github.com/notanas/notanas-cli/internal/util/buffers"
	"github.com/notanas/notanas-cli/internal/util/paths"
	"github.com/notanas/notanas-cli/internal/validation"
)

// Source is a streamed payload as returned by the API client.
type Source struct {
	Body               io.Reader
	ContentDisposition string
	Size               int64 // -1 when unknown
}

// Progress observes a save.
type Progress interface {
	ProxyReader(r io.Reader) io.Reader
	Finish(path string, err error)
}

// Options configures Save.
type Options struct {
	// NewProgress is called once the filename is known. Nil disables progress.
	NewProgress func(name string, size int64) Progress
}

// Result describes a saved file.
type Result struct {
	Path  string
	Name  string
	Bytes int64
}

// Save streams src into destDir. The body is written to a temporary file in
// destDir that is removed on every exit path; on success it is renamed to
// the resolved filename, suffixed with id if that name is taken.
func Save(ctx context.Context, src Source, id, destDir string, opts Options) (res *Result, err error) {
	if destDir == "" {
		destDir = "."
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination: %w", err)
	}
	if src.Size > 0 {
		if err := diskspace.CheckAvailableSpace(destDir, src.Size, constants.DiskSpaceBufferPercent); err != nil {
			return nil, err
		}
	}

	name := ResolveFilename(src.ContentDisposition, id)
	if err := validation.Filename(name); err != nil {
		return nil, err
	}

	var prog Progress
	if opts.NewProgress != nil {
		prog = opts.NewProgress(name, src.Size)
	}
	finalPath := ""
	defer func() {
		if prog != nil {
			prog.Finish(finalPath, err)
		}
	}()

	tmp, err := os.CreateTemp(destDir, ".notanas-*.part")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	var body io.Reader = &ctxReader{ctx: ctx, r: src.Body}
	if prog != nil {
		body = prog.ProxyReader(body)
	}

	buf := buffers.GetCopyBuffer()
	written, copyErr := io.CopyBuffer(tmp, body, *buf)
	buffers.PutCopyBuffer(buf)
	closeErr := tmp.Close()
	if copyErr != nil {
		return nil, fmt.Errorf("failed to write %s: %w", name, copyErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to write %s: %w", name, closeErr)
	}

	dest, err := paths.Resolve(destDir, name, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination: %w", err)
	}
	if err := validation.InDirectory(dest, destDir); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return nil, fmt.Errorf("failed to move download into place: %w", err)
	}
	_ = os.Chmod(dest, 0644)

	finalPath = dest
	return &Result{Path: dest, Name: filepath.Base(dest), Bytes: written}, nil
}

// ctxReader stops a copy once ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
