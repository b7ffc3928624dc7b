package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// DownloadBar shows progress for a single file download. On a terminal it
// draws an mpb bar on stderr; otherwise it prints one line at start and one at
// completion.
type DownloadBar struct {
	progress  *mpb.Progress
	bar       *mpb.Bar
	out       io.Writer
	name      string
	size      int64
	written   int64
	startTime time.Time
}

// NewDownloadBar creates a bar for name. size may be unknown (<= 0).
func NewDownloadBar(name string, size int64) *DownloadBar {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		enableANSI(os.Stderr)
		return newDownloadBar(os.Stderr, name, size, true)
	}
	return newDownloadBar(os.Stderr, name, size, false)
}

// NewTextDownloadBar creates a plain-text bar writing to w.
func NewTextDownloadBar(w io.Writer, name string, size int64) *DownloadBar {
	return newDownloadBar(w, name, size, false)
}

func newDownloadBar(w io.Writer, name string, size int64, tty bool) *DownloadBar {
	d := &DownloadBar{out: w, name: name, size: size, startTime: time.Now()}
	if !tty {
		if size > 0 {
			fmt.Fprintf(w, "Downloading %s (%.1f MiB)\n", name, float64(size)/(1024*1024))
		} else {
			fmt.Fprintf(w, "Downloading %s\n", name)
		}
		return d
	}

	d.progress = mpb.New(
		mpb.WithOutput(w),
		mpb.WithRefreshRate(250*time.Millisecond),
		mpb.WithWidth(60),
	)
	total := size
	if total < 0 {
		total = 0
	}
	d.bar = d.progress.New(total,
		mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(name, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
			decor.Name("  "),
			decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 60, decor.WCSyncSpace),
		),
		mpb.BarRemoveOnComplete(),
	)
	return d
}

// ProxyReader wraps r so that reads advance the bar.
func (d *DownloadBar) ProxyReader(r io.Reader) io.Reader {
	return &countingReader{r: r, d: d}
}

type countingReader struct {
	r io.Reader
	d *DownloadBar
}

func (c *countingReader) Read(p []byte) (int, error) {
	start := time.Now()
	n, err := c.r.Read(p)
	if n > 0 {
		c.d.written += int64(n)
		if c.d.bar != nil {
			c.d.bar.EwmaIncrBy(n, time.Since(start))
		}
	}
	return n, err
}

// Written returns the number of bytes read through the proxy.
func (d *DownloadBar) Written() int64 {
	return d.written
}

// Finish completes the bar and prints a summary line.
func (d *DownloadBar) Finish(path string, err error) {
	if d.bar != nil {
		if err == nil {
			d.bar.SetTotal(d.written, true)
		} else {
			d.bar.Abort(true)
		}
		d.progress.Wait()
	}

	if err != nil {
		fmt.Fprintf(d.out, "✗ %s: %v\n", d.name, err)
		return
	}
	elapsed := time.Since(d.startTime)
	speed := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		speed = float64(d.written) / secs / (1024 * 1024)
	}
	fmt.Fprintf(d.out, "✓ %s (%.1f MiB, %s, %.1f MiB/s)\n",
		path, float64(d.written)/(1024*1024), elapsed.Round(time.Millisecond), speed)
}
