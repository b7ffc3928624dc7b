package state

import (
	"sync"
	"sync/atomic"
)

// Sequencer orders asynchronous results so that the most recently issued
// request wins, whatever order the responses arrive in.
//
// Every request takes a ticket from Next. A result is applied through
// TryApply only if its ticket is newer than the last applied one.
type Sequencer struct {
	issued atomic.Uint64

	mu      sync.Mutex
	applied uint64
}

// Next issues a new ticket.
func (s *Sequencer) Next() uint64 {
	return s.issued.Add(1)
}

// Latest returns the most recently issued ticket.
func (s *Sequencer) Latest() uint64 {
	return s.issued.Load()
}

// Applied returns the ticket of the last applied result.
func (s *Sequencer) Applied() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// TryApply runs apply and records seq if seq is newer than the last applied
// ticket. apply runs under the sequencer lock so that installs are atomic
// with respect to each other. It reports whether apply ran.
func (s *Sequencer) TryApply(seq uint64, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.applied {
		return false
	}
	s.applied = seq
	if apply != nil {
		apply()
	}
	return true
}
