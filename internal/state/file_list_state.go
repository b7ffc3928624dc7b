// Package state provides observable state containers for listings.
package state

import (
	"sort"
	"strings"
	"sync"

	"github.com/notanas/notanas-cli/internal/events"
	"github.com/notanas/notanas-cli/internal/models"
)

// Listing sources
const (
	SourceBrowse = "browse"
	SourceSearch = "search"
)

// FileListState is an observable listing container.
// It holds the entries on display and publishes events on changes.
// Thread-safe for concurrent access.
type FileListState struct {
	source   string
	eventBus *events.EventBus

	items     []models.FileEntry
	folderID  string
	query     string
	loading   bool
	lastError error

	mu sync.RWMutex
}

// NewFileListState creates a new FileListState. eventBus may be nil.
func NewFileListState(source string, eventBus *events.EventBus) *FileListState {
	return &FileListState{
		source:   source,
		eventBus: eventBus,
		items:    make([]models.FileEntry, 0),
	}
}

// Source returns the listing source name.
func (s *FileListState) Source() string {
	return s.source
}

// Items returns a copy of the current entries.
func (s *FileListState) Items() []models.FileEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.FileEntry, len(s.items))
	copy(result, s.items)
	return result
}

// SetItems installs a listing for folderID (or query, for search results),
// clears any error and publishes a change event tagged with seq.
func (s *FileListState) SetItems(folderID, query string, items []models.FileEntry, seq uint64) {
	sorted := make([]models.FileEntry, len(items))
	copy(sorted, items)
	sortEntries(sorted)

	s.mu.Lock()
	s.items = sorted
	s.folderID = folderID
	s.query = query
	s.lastError = nil
	count := len(s.items)
	s.mu.Unlock()

	s.eventBus.PublishListing(events.ListingEvent{
		Source:   s.source,
		FolderID: folderID,
		Query:    query,
		Count:    count,
		Seq:      seq,
	})
}

// SetLoading marks the list as loading and publishes an event.
func (s *FileListState) SetLoading(loading bool) {
	s.mu.Lock()
	changed := s.loading != loading
	s.loading = loading
	s.mu.Unlock()

	if changed {
		s.eventBus.PublishLoading(s.source, loading)
	}
}

// IsLoading returns whether the list is currently loading.
func (s *FileListState) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetError records a failed refresh. The entries stay, flagged as stale by Err.
func (s *FileListState) SetError(err error, seq uint64) {
	s.mu.Lock()
	s.lastError = err
	folderID := s.folderID
	query := s.query
	s.mu.Unlock()

	if err != nil {
		s.eventBus.PublishListing(events.ListingEvent{
			Source:   s.source,
			FolderID: folderID,
			Query:    query,
			Seq:      seq,
			Error:    err,
		})
	}
}

// Err returns the error of the last failed refresh, nil after a successful one.
func (s *FileListState) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// FolderID returns the folder whose entries are held.
func (s *FileListState) FolderID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.folderID
}

// Query returns the search query whose results are held.
func (s *FileListState) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Clear empties the listing and publishes a cleared event tagged with seq.
func (s *FileListState) Clear(seq uint64) {
	s.mu.Lock()
	s.items = make([]models.FileEntry, 0)
	s.lastError = nil
	folderID := s.folderID
	query := s.query
	s.mu.Unlock()

	s.eventBus.PublishListing(events.ListingEvent{
		Source:   s.source,
		FolderID: folderID,
		Query:    query,
		Seq:      seq,
		Cleared:  true,
	})
}

// FindByID returns the entry with the given id.
func (s *FileListState) FindByID(id string) (models.FileEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return models.FileEntry{}, false
}

// FindByName returns the first entry whose name equals name, ignoring case.
func (s *FileListState) FindByName(name string) (models.FileEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if strings.EqualFold(item.Name, name) {
			return item, true
		}
	}
	return models.FileEntry{}, false
}

// Count returns the number of entries.
func (s *FileListState) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// sortEntries puts folders first, then orders by name case-insensitively.
func sortEntries(items []models.FileEntry) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsDir != items[j].IsDir {
			return items[i].IsDir
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
}
