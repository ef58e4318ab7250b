package ai

import "sync"

// Sequencer hands out monotonic tickets per card id. Concurrent
// in-flight generations targeting the same card otherwise race by
// callback arrival order, letting a slow stale response overwrite a
// fresher one; a result is only applied while its ticket is still the
// newest one issued for the card.
type Sequencer struct {
	mu     sync.Mutex
	latest map[string]uint64
}

// NewSequencer returns an empty sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{latest: make(map[string]uint64)}
}

// Begin issues the next ticket for a card, superseding all earlier
// ones. Every in-flight operation targeting the card must hold its
// own ticket.
func (s *Sequencer) Begin(cardID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[cardID]++
	return s.latest[cardID]
}

// Accept reports whether a result holding the given ticket is still
// current. Results from superseded tickets are dropped.
func (s *Sequencer) Accept(cardID string, ticket uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ticket >= s.latest[cardID]
}

// Forget drops all tracking for a card, used when the card is
// deleted.
func (s *Sequencer) Forget(cardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.latest, cardID)
}
