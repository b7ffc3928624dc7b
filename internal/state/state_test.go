package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/notanas/notanas-cli/internal/events"
	"github.com/notanas/notanas-cli/internal/models"
)

func TestSequencerLastIssuedWins(t *testing.T) {
	var s Sequencer
	first := s.Next()
	second := s.Next()

	if !s.TryApply(second, nil) {
		t.Fatal("newest ticket should apply")
	}
	if s.TryApply(first, func() { t.Error("stale apply ran") }) {
		t.Error("stale ticket must be discarded")
	}
	if s.Applied() != second || s.Latest() != second {
		t.Errorf("unexpected applied=%d latest=%d", s.Applied(), s.Latest())
	}
}

func TestSequencerConcurrent(t *testing.T) {
	var s Sequencer
	tickets := make([]uint64, 50)
	for i := range tickets {
		tickets[i] = s.Next()
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var order []uint64
	for _, seq := range tickets {
		wg.Add(1)
		go func(seq uint64) {
			defer wg.Done()
			s.TryApply(seq, func() {
				mu.Lock()
				order = append(order, seq)
				mu.Unlock()
			})
		}(seq)
	}
	wg.Wait()

	for i := 1; i < len(order); i++ {
		if order[i] <= order[i-1] {
			t.Fatalf("applied tickets must increase, got %v", order)
		}
	}
	if s.Applied() != tickets[len(tickets)-1] {
		t.Errorf("expected last ticket applied, got %d", s.Applied())
	}
}

func TestFileListStateSetItems(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(events.EventListingLoaded)

	s := NewFileListState(SourceBrowse, bus)
	s.SetItems("r1", "", []models.FileEntry{
		{ID: "3", Name: "zeta.txt"},
		{ID: "1", Name: "Beta", IsDir: true},
		{ID: "2", Name: "alpha.txt"},
	}, 1)

	if s.Count() != 3 {
		t.Errorf("Got %d items, want 3", s.Count())
	}
	items := s.Items()
	if items[0].ID != "1" || items[1].ID != "2" || items[2].ID != "3" {
		t.Errorf("expected folders first then by name, got %+v", items)
	}
	if s.FolderID() != "r1" {
		t.Errorf("expected folder r1, got %s", s.FolderID())
	}
	if _, ok := s.FindByName("ALPHA.TXT"); !ok {
		t.Error("FindByName should ignore case")
	}
	if _, ok := s.FindByID("3"); !ok {
		t.Error("FindByID failed")
	}

	select {
	case ev := <-ch:
		if ev.(*events.ListingEvent).Count != 3 {
			t.Error("expected count 3 in event")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for listing event")
	}
}

func TestFileListStateErrorKeepsItems(t *testing.T) {
	s := NewFileListState(SourceBrowse, nil)
	s.SetItems("r1", "", []models.FileEntry{{ID: "a", Name: "a"}}, 1)

	s.SetError(errors.New("network down"), 2)
	if s.Err() == nil {
		t.Fatal("expected error to be visible")
	}
	if s.Count() != 1 {
		t.Error("items should be retained alongside the error")
	}

	s.SetItems("r1", "", nil, 3)
	if s.Err() != nil {
		t.Error("successful refresh clears the error")
	}
}

func TestFileListStateLoadingEvents(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(events.EventListingLoading)

	s := NewFileListState(SourceSearch, bus)
	s.SetLoading(true)
	s.SetLoading(true)
	s.SetLoading(false)

	got := 0
	for {
		select {
		case <-ch:
			got++
			continue
		case <-time.After(50 * time.Millisecond):
		}
		break
	}
	if got != 2 {
		t.Errorf("expected 2 loading transitions, got %d", got)
	}
	if s.IsLoading() {
		t.Error("expected not loading")
	}
}

func TestItemsReturnsCopy(t *testing.T) {
	s := NewFileListState(SourceBrowse, nil)
	s.SetItems("r1", "", []models.FileEntry{{ID: "a", Name: "a"}}, 1)
	items := s.Items()
	items[0].Name = "changed"
	if got, _ := s.FindByID("a"); got.Name != "a" {
		t.Error("Items must return a copy")
	}
}

func TestClearPublishes(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(events.EventListingCleared)

	s := NewFileListState(SourceBrowse, bus)
	s.SetItems("r1", "", []models.FileEntry{{ID: "a", Name: "a"}}, 1)
	s.Clear(2)

	if s.Count() != 0 {
		t.Errorf("expected empty listing, got %d", s.Count())
	}
	select {
	case e := <-ch:
		le := e.(*events.ListingEvent)
		if !le.Cleared || le.Seq != 2 || le.FolderID != "r1" {
			t.Errorf("unexpected cleared event %+v", le)
		}
	case <-time.After(time.Second):
		t.Fatal("no cleared event")
	}
}
