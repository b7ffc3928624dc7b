package cli

import (
	"sync"

	"github.com/notanas/notanas-cli/internal/events"
	"github.com/notanas/notanas-cli/internal/logging"
)

// eventTrace logs every bus event at debug level, so that --verbose shows
// listings, searches, link grants and file actions as they happen.
type eventTrace struct {
	bus    *events.EventBus
	logger *logging.Logger
	sub    <-chan events.Event
	stopC  chan struct{}
	wg     sync.WaitGroup
}

func startEventTrace(bus *events.EventBus, logger *logging.Logger) *eventTrace {
	t := &eventTrace{
		bus:    bus,
		logger: logger,
		sub:    bus.SubscribeAll(),
		stopC:  make(chan struct{}),
	}
	t.wg.Add(1)
	go t.loop()
	return t
}

// Stop logs the events already published and ends the trace.
func (t *eventTrace) Stop() {
	close(t.stopC)
	t.wg.Wait()
	t.bus.UnsubscribeAll(t.sub)
}

func (t *eventTrace) loop() {
	defer t.wg.Done()
	for {
		select {
		case e, ok := <-t.sub:
			if !ok {
				return
			}
			t.log(e)
		case <-t.stopC:
			for {
				select {
				case e, ok := <-t.sub:
					if !ok {
						return
					}
					t.log(e)
				default:
					return
				}
			}
		}
	}
}

func (t *eventTrace) log(e events.Event) {
	// Log events came from the logger itself.
	if e.Type() == events.EventLog {
		return
	}
	ev := t.logger.Debug().Str("event", string(e.Type()))
	switch v := e.(type) {
	case *events.ListingEvent:
		ev = ev.Str("source", v.Source).Str("folder_id", v.FolderID).Str("query", v.Query).
			Int("count", v.Count).Uint64("seq", v.Seq).Err(v.Error)
	case *events.LoadingEvent:
		ev = ev.Str("source", v.Source).Bool("loading", v.Loading)
	case *events.SessionEvent:
		ev = ev.Str("server", v.ServerURL).Str("user", v.Username).Str("reason", v.Reason)
	case *events.OTLEvent:
		ev = ev.Str("file_id", v.FileID).Str("link", v.Link)
	case *events.FileEvent:
		ev = ev.Str("file_id", v.FileID).Str("name", v.Name).Str("path", v.Path)
	}
	ev.Msg("Event")
}

