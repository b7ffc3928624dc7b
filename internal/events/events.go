// Package events provides the in-process event bus that connects the
// navigation, search and session components to whatever renders them.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/notanas/notanas-cli/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventLog EventType = "log"

	EventSessionRequired EventType = "session.required" // credentials missing, login needed
	EventSessionExpired  EventType = "session.expired"  // server answered 401
	EventSessionLogin    EventType = "session.login"

	EventListingLoading EventType = "listing.loading"
	EventListingLoaded  EventType = "listing.loaded"
	EventListingCleared EventType = "listing.cleared" // emptied just before a new listing is installed
	EventListingError   EventType = "listing.error"
	EventSearchResults  EventType = "search.results"

	EventOTLGenerated  EventType = "otl.generated"
	EventFileDeleted   EventType = "file.deleted"
	EventFileDownload  EventType = "file.downloaded"
)

// LogLevel defines log severity levels
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

func newBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// LogEvent represents log messages
type LogEvent struct {
	BaseEvent
	Level   LogLevel
	Message string
	Error   error
}

// SessionEvent reports login state changes.
type SessionEvent struct {
	BaseEvent
	ServerURL string
	Username  string
	Reason    string
}

// LoadingEvent reports the loading flag of a listing source ("browse" or "search").
type LoadingEvent struct {
	BaseEvent
	Source  string
	Loading bool
}

// ListingEvent reports an applied listing, or the error that replaced it.
type ListingEvent struct {
	BaseEvent
	Source   string
	FolderID string
	Query    string
	Count    int
	Seq      uint64
	Error    error
	Cleared  bool
}

// OTLEvent reports a generated share link.
type OTLEvent struct {
	BaseEvent
	FileID string
	Link   string
}

// FileEvent reports a completed file action.
type FileEvent struct {
	BaseEvent
	FileID string
	Name   string
	Path   string
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking.
// Events for full subscribers are dropped and counted.
// Publishing on a nil bus is a no-op.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishLog publishes a log event
func (eb *EventBus) PublishLog(level LogLevel, message string, err error) {
	eb.Publish(&LogEvent{
		BaseEvent: newBase(EventLog),
		Level:     level,
		Message:   message,
		Error:     err,
	})
}

// PublishSession publishes a session event of the given type
func (eb *EventBus) PublishSession(t EventType, serverURL, username, reason string) {
	eb.Publish(&SessionEvent{
		BaseEvent: newBase(t),
		ServerURL: serverURL,
		Username:  username,
		Reason:    reason,
	})
}

// PublishLoading publishes a loading flag change
func (eb *EventBus) PublishLoading(source string, loading bool) {
	eb.Publish(&LoadingEvent{
		BaseEvent: newBase(EventListingLoading),
		Source:    source,
		Loading:   loading,
	})
}

// PublishListing publishes an applied listing
func (eb *EventBus) PublishListing(e ListingEvent) {
	if e.Error != nil {
		e.BaseEvent = newBase(EventListingError)
	} else if e.Cleared {
		e.BaseEvent = newBase(EventListingCleared)
	} else if e.Source == "search" {
		e.BaseEvent = newBase(EventSearchResults)
	} else {
		e.BaseEvent = newBase(EventListingLoaded)
	}
	eb.Publish(&e)
}

// PublishOTL publishes a generated share link
func (eb *EventBus) PublishOTL(fileID, link string) {
	eb.Publish(&OTLEvent{
		BaseEvent: newBase(EventOTLGenerated),
		FileID:    fileID,
		Link:      link,
	})
}

// PublishFile publishes a completed file action of the given type
func (eb *EventBus) PublishFile(t EventType, fileID, name, path string) {
	eb.Publish(&FileEvent{
		BaseEvent: newBase(t),
		FileID:    fileID,
		Name:      name,
		Path:      path,
	})
}

// Unsubscribe removes a subscription channel from a specific event type
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// UnsubscribeAll removes a subscription channel from all event types
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	for eventType, subscribers := range eb.subscribers {
		for i, subCh := range subscribers {
			if subCh == ch {
				subscribers[i] = subscribers[len(subscribers)-1]
				eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
				break
			}
		}
	}

	for i, subCh := range eb.all {
		if subCh == ch {
			eb.all[i] = eb.all[len(eb.all)-1]
			eb.all = eb.all[:len(eb.all)-1]
			break
		}
	}
}

// DroppedEventCount returns the number of events dropped due to full buffers
func (eb *EventBus) DroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
