// Package otl creates, shares and redeems one-time download links.
package otl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/notanas/notanas-cli/internal/constants"
	"github.com/notanas/notanas-cli/internal/events"
	"github.com/notanas/notanas-cli/internal/logging"
	"github.com/notanas/notanas-cli/internal/models"
)

var (
	// ErrNoLink is returned by Copy before a link has been generated.
	ErrNoLink = errors.New("no one-time link to copy")

	// ErrInvalidOptions is returned for a non-positive expiry or download limit.
	ErrInvalidOptions = errors.New("one-time link expiry and download limit must be positive")

	// ErrBusy is returned by Generate while another generation is running.
	ErrBusy = errors.New("one-time link generation already in progress")
)

// Generator creates one-time link tokens.
type Generator interface {
	CreateOTL(ctx context.Context, grant models.OTLGrant) (string, error)
}

// Clipboard receives the shareable link.
type Clipboard interface {
	WriteText(text string) error
}

// Options of a generated link.
type Options struct {
	Expiry       time.Duration
	MaxDownloads int
}

// DefaultOptions returns a 60 minute link usable 5 times.
func DefaultOptions() Options {
	return Options{Expiry: constants.DefaultOTLExpiry, MaxDownloads: constants.DefaultOTLMaxDownloads}
}

// Validate checks that both limits are positive.
func (o Options) Validate() error {
	if o.Expiry <= 0 || o.MaxDownloads <= 0 {
		return fmt.Errorf("%w: expiry %s, max downloads %d", ErrInvalidOptions, o.Expiry, o.MaxDownloads)
	}
	return nil
}

// State of a Dialog.
type State int

const (
	StateClosed State = iota
	StateGenerating
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateGenerating:
		return "generating"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Dialog holds one link grant between generation and copy. Copy is only
// possible once a token has been received.
type Dialog struct {
	gen       Generator
	serverURL string
	bus       *events.EventBus
	logger    *logging.Logger

	mu      sync.Mutex
	state   State
	fileID  string
	token   string
	attempt uint64 // bumped by Generate and Close; a result for an older attempt is dropped
}

// NewDialog creates a closed dialog building links on serverURL. bus and
// logger may be nil.
func NewDialog(gen Generator, serverURL string, bus *events.EventBus, logger *logging.Logger) *Dialog {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Dialog{
		gen:       gen,
		serverURL: strings.TrimRight(serverURL, "/"),
		bus:       bus,
		logger:    logger,
	}
}

// Generate requests a token for fileID. On failure the dialog stays open in
// StateFailed with no token, and the error is logged and returned.
func (d *Dialog) Generate(ctx context.Context, fileID string, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	if d.state == StateGenerating {
		d.mu.Unlock()
		return ErrBusy
	}
	d.state = StateGenerating
	d.fileID = fileID
	d.token = ""
	d.attempt++
	attempt := d.attempt
	d.mu.Unlock()

	token, err := d.gen.CreateOTL(ctx, models.OTLGrant{
		FileID:       fileID,
		Expiry:       opts.Expiry,
		MaxDownloads: opts.MaxDownloads,
	})

	d.mu.Lock()
	if d.attempt != attempt {
		// Closed, and possibly regenerated, while the request was in flight.
		d.mu.Unlock()
		return err
	}
	if err != nil {
		d.state = StateFailed
		d.mu.Unlock()
		d.logger.Error().Err(err).Str("file_id", fileID).Msg("Failed to generate one-time link")
		return err
	}
	d.state = StateReady
	d.token = token
	link := d.linkLocked()
	d.mu.Unlock()

	d.logger.Info().Str("file_id", fileID).Int("max_downloads", opts.MaxDownloads).
		Dur("expiry", opts.Expiry).Msg("One-time link generated")
	d.bus.PublishOTL(fileID, link)
	return nil
}

// State returns the current state.
func (d *Dialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Token returns the generated token, empty until ready.
func (d *Dialog) Token() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.token
}

// Link returns the shareable URL, empty until ready.
func (d *Dialog) Link() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.linkLocked()
}

func (d *Dialog) linkLocked() string {
	if d.token == "" {
		return ""
	}
	return BuildLink(d.serverURL, d.token)
}

// CanCopy reports whether a link is available.
func (d *Dialog) CanCopy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.token != ""
}

// Copy writes the link to clip and closes the dialog.
func (d *Dialog) Copy(clip Clipboard) error {
	d.mu.Lock()
	link := d.linkLocked()
	d.mu.Unlock()
	if link == "" {
		return ErrNoLink
	}
	if err := clip.WriteText(link); err != nil {
		return fmt.Errorf("failed to copy link: %w", err)
	}
	d.Close()
	return nil
}

// Close discards the token and returns to StateClosed.
func (d *Dialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateClosed
	d.fileID = ""
	d.token = ""
	d.attempt++
}

// BuildLink returns {serverURL}/onetimelink/{token}.
func BuildLink(serverURL, token string) string {
	return strings.TrimRight(serverURL, "/") + constants.OTLShareLinkRoute + token
}
