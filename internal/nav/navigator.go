// Package nav implements folder navigation with a back stack.
//
// Listings are fetched asynchronously and may resolve in any order. Every
// navigation takes a ticket from a state.Sequencer, and its result (listing,
// current folder and history together) is installed only if no newer
// navigation has been installed first.
package nav

import (
	"context"
	"errors"
	"sync"

	"github.com/notanas/notanas-cli/internal/events"
	"github.com/notanas/notanas-cli/internal/logging"
	"github.com/notanas/notanas-cli/internal/models"
	"github.com/notanas/notanas-cli/internal/session"
	"github.com/notanas/notanas-cli/internal/state"
)

// ErrSuperseded is returned when a navigation completed after a newer one had
// already been installed. Its result was discarded.
var ErrSuperseded = errors.New("navigation superseded by a newer one")

// Lister fetches folder listings. An empty folderID lists the root.
type Lister interface {
	List(ctx context.Context, folderID string) ([]models.FileEntry, error)
}

// Loader is driven while any fetch is outstanding.
type Loader interface {
	Start()
	Stop()
}

// Options configures a Navigator. All fields are optional.
type Options struct {
	EventBus  *events.EventBus
	Logger    *logging.Logger
	Indicator Loader
}

// Navigator owns the current folder, its history and its listing.
type Navigator struct {
	lister    Lister
	listing   *state.FileListState
	seq       state.Sequencer
	indicator Loader
	logger    *logging.Logger

	mu          sync.Mutex
	current     string
	history     History // installed
	target      History // what the most recently issued navigation installs
	outstanding int
}

// New creates a Navigator positioned at the root with an empty listing.
// Nothing is fetched until Open is called.
func New(lister Lister, opts Options) *Navigator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Navigator{
		lister:    lister,
		listing:   state.NewFileListState(state.SourceBrowse, opts.EventBus),
		indicator: opts.Indicator,
		logger:    logger,
		current:   models.RootID,
		history:   NewHistory(),
		target:    NewHistory(),
	}
}

// Listing returns the observable listing of the current folder.
func (n *Navigator) Listing() *state.FileListState {
	return n.listing
}

// Current returns the id of the folder whose listing is displayed.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// History returns the installed history.
func (n *Navigator) History() History {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.history
}

// Loading reports whether any fetch is outstanding.
func (n *Navigator) Loading() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.outstanding > 0
}

// Open navigates into folder id. Opening the root resets the history to [""].
func (n *Navigator) Open(ctx context.Context, id string) error {
	n.mu.Lock()
	next := n.target.Push(id)
	n.target = next
	seq := n.seq.Next()
	n.mu.Unlock()
	return n.fetch(ctx, seq, id, next)
}

// GoBack opens the parent of the current folder and drops the top of the
// history. Once the history is exhausted it opens the root and leaves the
// history empty.
func (n *Navigator) GoBack(ctx context.Context) error {
	n.mu.Lock()
	id, ok := n.target.Parent()
	var next History
	if ok {
		next = n.target.Pop()
	} else {
		id = models.RootID
	}
	n.target = next
	seq := n.seq.Next()
	n.mu.Unlock()
	return n.fetch(ctx, seq, id, next)
}

// Refresh re-fetches the current folder without touching the history.
func (n *Navigator) Refresh(ctx context.Context) error {
	n.mu.Lock()
	id := n.current
	next := n.history
	n.target = next
	seq := n.seq.Next()
	n.mu.Unlock()
	return n.fetch(ctx, seq, id, next)
}

// OpenEntry drills into entry if it is a folder other than the current one.
// Anything else is a no-op.
func (n *Navigator) OpenEntry(ctx context.Context, entry models.FileEntry) error {
	if !entry.IsDir || entry.ID == n.Current() {
		return nil
	}
	return n.Open(ctx, entry.ID)
}

func (n *Navigator) fetch(ctx context.Context, seq uint64, id string, next History) error {
	n.begin()
	defer n.end()

	log := n.logger.With().Str("folder", id).Uint64("seq", seq).Logger()

	entries, err := n.lister.List(ctx, id)
	if err != nil {
		n.abandon(seq)
		if session.IsAuthError(err) {
			log.Debug().Err(err).Msg("Navigation dropped, session required")
			return err
		}
		applied := n.seq.TryApply(seq, func() {
			n.listing.SetError(err, seq)
		})
		if applied {
			log.Warn().Err(err).Msg("Failed to load folder")
		}
		return err
	}

	applied := n.seq.TryApply(seq, func() {
		n.listing.Clear(seq)
		n.mu.Lock()
		n.current = id
		n.history = next
		n.mu.Unlock()
		n.listing.SetItems(id, "", entries, seq)
	})
	if !applied {
		log.Debug().Msg("Discarded stale listing")
		return ErrSuperseded
	}
	log.Debug().Int("entries", len(entries)).Msg("Folder loaded")
	return nil
}

// abandon resets the pending history when the latest navigation fails.
func (n *Navigator) abandon(seq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if seq == n.seq.Latest() {
		n.target = n.history
	}
}

func (n *Navigator) begin() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outstanding++
	if n.outstanding == 1 {
		n.listing.SetLoading(true)
		if n.indicator != nil {
			n.indicator.Start()
		}
	}
}

func (n *Navigator) end() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outstanding--
	if n.outstanding == 0 {
		n.listing.SetLoading(false)
		if n.indicator != nil {
			n.indicator.Stop()
		}
	}
}
