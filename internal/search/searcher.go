package search

import (
	"context"
	"sync"
	"time"

	"github.com/notanas/notanas-cli/internal/constants"
	"github.com/notanas/notanas-cli/internal/events"
	"github.com/notanas/notanas-cli/internal/logging"
	"github.com/notanas/notanas-cli/internal/models"
	"github.com/notanas/notanas-cli/internal/session"
	"github.com/notanas/notanas-cli/internal/state"
)

// Backend runs server-side searches.
type Backend interface {
	Search(ctx context.Context, query string) ([]models.FileEntry, error)
}

// Options configures a Searcher. All fields are optional.
type Options struct {
	Debounce time.Duration
	EventBus *events.EventBus
	Logger   *logging.Logger
	// OnResult is called after every debounced search completes, applied or not.
	OnResult func(query string, err error)
}

// Searcher issues a remote search once typing has been quiet for the
// debounce window. Results are installed in Results only if no newer search
// has been installed first.
type Searcher struct {
	backend  Backend
	debounce time.Duration
	results  *state.FileListState
	seq      state.Sequencer
	logger   *logging.Logger
	onResult func(string, error)

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	idle        *sync.Cond
	timer       *time.Timer
	pending     string
	scheduled   int // debounced searches scheduled or running
	outstanding int
}

// NewSearcher creates a Searcher. Debounced searches run under ctx until Stop.
func NewSearcher(ctx context.Context, backend Backend, opts Options) *Searcher {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = constants.SearchDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Searcher{
		backend:  backend,
		debounce: debounce,
		results:  state.NewFileListState(state.SourceSearch, opts.EventBus),
		logger:   logger,
		onResult: opts.OnResult,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Results returns the observable search results.
func (s *Searcher) Results() *state.FileListState {
	return s.results
}

// Type records a keystroke. Any pending search is cancelled and, unless query
// is empty, a new one is scheduled after the debounce window.
func (s *Searcher) Type(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	if query == "" || s.ctx.Err() != nil {
		return
	}
	s.pending = query
	s.scheduled++
	s.timer = time.AfterFunc(s.debounce, func() { s.fire(query) })
}

// Flush runs the pending search, if any, without waiting for the debounce
// window, then blocks until no debounced search is scheduled or running.
func (s *Searcher) Flush() {
	s.mu.Lock()
	if s.timer != nil && s.timer.Stop() {
		s.timer = nil
		query := s.pending
		s.mu.Unlock()
		s.fire(query)
		s.mu.Lock()
	}
	for s.scheduled > 0 {
		s.idle.Wait()
	}
	s.mu.Unlock()
}

func (s *Searcher) fire(query string) {
	_, err := s.run(s.ctx, query)
	if s.onResult != nil {
		s.onResult(query, err)
	}
	s.mu.Lock()
	s.scheduled--
	s.idle.Broadcast()
	s.mu.Unlock()
}

// stopTimerLocked cancels a scheduled search that has not fired yet.
func (s *Searcher) stopTimerLocked() {
	if s.timer != nil && s.timer.Stop() {
		s.scheduled--
		s.idle.Broadcast()
	}
	s.timer = nil
}

// Now searches immediately, installs the results and returns them.
func (s *Searcher) Now(ctx context.Context, query string) ([]models.FileEntry, error) {
	if query == "" {
		return nil, nil
	}
	return s.run(ctx, query)
}

// Stop cancels the pending search and any search still in flight.
func (s *Searcher) Stop() {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()
	s.cancel()
}

func (s *Searcher) run(ctx context.Context, query string) ([]models.FileEntry, error) {
	seq := s.seq.Next()
	s.begin()
	defer s.end()

	log := s.logger.With().Str("query", query).Uint64("seq", seq).Logger()

	entries, err := s.backend.Search(ctx, query)
	if err != nil {
		if session.IsAuthError(err) || ctx.Err() != nil {
			log.Debug().Err(err).Msg("Search dropped")
			return nil, err
		}
		if s.seq.TryApply(seq, func() { s.results.SetError(err, seq) }) {
			log.Warn().Err(err).Msg("Search failed")
		}
		return nil, err
	}

	if !s.seq.TryApply(seq, func() { s.results.SetItems("", query, entries, seq) }) {
		log.Debug().Msg("Discarded stale search results")
		return entries, nil
	}
	log.Debug().Int("entries", len(entries)).Msg("Search done")
	return entries, nil
}

func (s *Searcher) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding++
	if s.outstanding == 1 {
		s.results.SetLoading(true)
	}
}

func (s *Searcher) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding--
	if s.outstanding == 0 {
		s.results.SetLoading(false)
	}
}
