// Package sequence assigns per-alert logical versions and serializes
// mutations per alert id so concurrent writers cannot interleave.
package sequence

import "sync"

// Sequencer hands out strictly increasing version numbers per alert id and
// provides a per-id critical section for mutations. Versions start at 1 for a
// freshly created alert. Serialization is per id, never global: mutations on
// distinct alerts proceed in parallel.
type Sequencer struct {
	mu     sync.Mutex
	alerts map[string]*alertEntry
}

type alertEntry struct {
	mu    sync.Mutex
	floor int64
	refs  int
}

// New constructs an empty sequencer.
func New() *Sequencer {
	return &Sequencer{alerts: make(map[string]*alertEntry)}
}

// Do runs fn while holding the lock for the given alert id. Calls for the
// same id are linearized; calls for different ids do not contend.
func (s *Sequencer) Do(alertID string, fn func() error) error {
	entry := s.acquire(alertID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		s.release(alertID, entry)
	}()
	return fn()
}

// Next returns the next version for the alert: one greater than both the
// highest version this sequencer has issued for the id and the version the
// caller observed in the store. The returned value is recorded so it is never
// issued twice, even if the observing write later fails.
func (s *Sequencer) Next(alertID string, observed int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.alerts[alertID]
	if !ok {
		// No mutation in flight for this id; the persisted version is the
		// only floor that matters.
		return observed + 1
	}
	next := entry.floor
	if observed > next {
		next = observed
	}
	next++
	entry.floor = next
	return next
}

func (s *Sequencer) acquire(alertID string) *alertEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.alerts[alertID]
	if !ok {
		entry = &alertEntry{}
		s.alerts[alertID] = entry
	}
	entry.refs++
	return entry
}

func (s *Sequencer) release(alertID string, entry *alertEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.refs--
	if entry.refs <= 0 {
		delete(s.alerts, alertID)
	}
}
