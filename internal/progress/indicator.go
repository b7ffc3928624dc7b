// Package progress renders the loading indicator and download progress bars.
package progress

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/notanas/notanas-cli/internal/constants"
)

// Renderer draws indicator values.
type Renderer interface {
	Render(value int)
	Clear()
}

// Oscillate advances value by step in direction dir (+1 or -1), reversing at
// 0 and max. It returns the new value and direction.
func Oscillate(value, dir, step, max int) (int, int) {
	if dir == 0 {
		dir = 1
	}
	next := value + dir*step
	if next >= max {
		return max, -1
	}
	if next <= 0 {
		return 0, 1
	}
	return next, dir
}

// Indicator is the indeterminate loading animation: a value bouncing between
// 0 and 100 while something is loading. Start and Stop are idempotent, and
// Stop always releases the ticker.
type Indicator struct {
	tick     time.Duration
	step     int
	max      int
	renderer Renderer

	mu      sync.Mutex
	running bool
	value   int
	dir     int
	stop    chan struct{}
	done    chan struct{}
}

// NewIndicator creates an indicator with the standard 100ms tick and step 5.
// renderer may be nil.
func NewIndicator(renderer Renderer) *Indicator {
	return NewIndicatorWithTick(renderer, constants.IndicatorTick)
}

// NewIndicatorWithTick creates an indicator with a custom tick.
func NewIndicatorWithTick(renderer Renderer, tick time.Duration) *Indicator {
	if renderer == nil {
		renderer = NopRenderer{}
	}
	return &Indicator{
		tick:     tick,
		step:     constants.IndicatorStep,
		max:      constants.IndicatorMax,
		renderer: renderer,
		dir:      1,
	}
}

// Start begins animating. Calling Start while running does nothing.
func (ind *Indicator) Start() {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.running {
		return
	}
	ind.running = true
	ind.value = 0
	ind.dir = 1
	ind.stop = make(chan struct{})
	ind.done = make(chan struct{})
	go ind.loop(ind.stop, ind.done)
}

func (ind *Indicator) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(ind.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ind.mu.Lock()
			ind.value, ind.dir = Oscillate(ind.value, ind.dir, ind.step, ind.max)
			v := ind.value
			ind.mu.Unlock()
			ind.renderer.Render(v)
		}
	}
}

// Stop halts the animation and clears the rendering. It waits for the ticker
// goroutine to exit. Calling Stop while stopped does nothing.
func (ind *Indicator) Stop() {
	ind.mu.Lock()
	if !ind.running {
		ind.mu.Unlock()
		return
	}
	ind.running = false
	stop, done := ind.stop, ind.done
	ind.mu.Unlock()

	close(stop)
	<-done
	ind.renderer.Clear()
}

// Running reports whether the indicator is animating.
func (ind *Indicator) Running() bool {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	return ind.running
}

// Value returns the current indicator value.
func (ind *Indicator) Value() int {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	return ind.value
}

// NopRenderer discards indicator output.
type NopRenderer struct{}

func (NopRenderer) Render(int) {}
func (NopRenderer) Clear()     {}

// BarRenderer draws the indicator as a progressbar/v3 bar.
type BarRenderer struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
	w   io.Writer
}

// NewBarRenderer returns a bar renderer on stderr, or a NopRenderer when
// stderr is not a terminal.
func NewBarRenderer(description string) Renderer {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return NopRenderer{}
	}
	enableANSI(os.Stderr)
	return NewBarRendererTo(os.Stderr, description)
}

// NewBarRendererTo draws on w regardless of terminal detection.
func NewBarRendererTo(w io.Writer, description string) *BarRenderer {
	return &BarRenderer{
		w: w,
		bar: progressbar.NewOptions(constants.IndicatorMax,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetElapsedTime(false),
			progressbar.OptionSetPredictTime(false),
		),
	}
}

func (r *BarRenderer) Render(value int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.bar.Set(value)
}

func (r *BarRenderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.bar.Clear()
	r.bar.Reset()
}
