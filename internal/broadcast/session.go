package broadcast

import (
	"sync"

	"github.com/example/emergency-alerts/internal/application"
)

// State tracks where a session is in its delivery lifecycle.
type State int

const (
	// StateConnecting is the initial state before the first resync.
	StateConnecting State = iota
	// StateResyncing means the session is catching up from the store.
	StateResyncing
	// StateLive means the session consumes the broadcast queue directly.
	StateLive
	// StateDisconnected is terminal; a reconnecting observer starts over
	// with a fresh session.
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateResyncing:
		return "resyncing"
	case StateLive:
		return "live"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session is one observer's live connection state: a bounded event queue plus
// the highest version delivered per alert. Sessions are owned by the
// broadcaster and never persisted. The transport drives delivery by reading
// Events and ResyncRequests; the broadcaster only ever enqueues.
type Session struct {
	id     string
	queue  chan application.Event
	resync chan struct{}
	done   chan struct{}

	mu            sync.Mutex
	state         State
	lastDelivered map[string]int64
}

func newSession(id string, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Session{
		id:            id,
		queue:         make(chan application.Event, queueSize),
		resync:        make(chan struct{}, 1),
		done:          make(chan struct{}),
		state:         StateConnecting,
		lastDelivered: make(map[string]int64),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginResync moves the session into the resyncing state. It is a no-op on a
// disconnected session.
func (s *Session) BeginResync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return
	}
	s.state = StateResyncing
}

// GoLive marks the resync batch complete. It is a no-op on a disconnected
// session.
func (s *Session) GoLive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return
	}
	s.state = StateLive
}

// Disconnect terminates the session. Subsequent enqueues are discarded and
// state transitions are ignored.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return
	}
	s.state = StateDisconnected
	close(s.done)
}

// Done is closed when the session disconnects.
func (s *Session) Done() <-chan struct{} { return s.done }

// Events exposes the live broadcast queue.
func (s *Session) Events() <-chan application.Event { return s.queue }

// ResyncRequests signals that buffered events were dropped and the transport
// must re-run the resync protocol before resuming live delivery.
func (s *Session) ResyncRequests() <-chan struct{} { return s.resync }

// RequestResync asks the transport to run the resync protocol. Used when an
// observer reports its known versions after the stream is already open.
func (s *Session) RequestResync() {
	select {
	case s.resync <- struct{}{}:
	default:
	}
}

// SeedVersions records the versions an observer reported on connect so the
// resync batch and the dedup guard start from its actual knowledge.
func (s *Session) SeedVersions(versions map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for alertID, version := range versions {
		if version > s.lastDelivered[alertID] {
			s.lastDelivered[alertID] = version
		}
	}
}

// ShouldDeliver reports whether the event advances the session's view of the
// alert. Duplicates and stale versions, such as live events that raced a
// resync batch, are dropped here, keyed by (alert id, version).
func (s *Session) ShouldDeliver(event application.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return event.Alert.Version > s.lastDelivered[event.Alert.ID]
}

// MarkDelivered records a successful push. The recorded version never
// decreases.
func (s *Session) MarkDelivered(alertID string, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version > s.lastDelivered[alertID] {
		s.lastDelivered[alertID] = version
	}
}

// LastDeliveredVersions returns a copy of the per-alert delivery watermark,
// used to compute the batch when the session re-enters resync.
func (s *Session) LastDeliveredVersions() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions := make(map[string]int64, len(s.lastDelivered))
	for alertID, version := range s.lastDelivered {
		versions[alertID] = version
	}
	return versions
}

// enqueue offers an event to the session without ever blocking the caller.
// When the queue is full the session has fallen too far behind for in-order
// delivery: its buffer is dropped wholesale and a resync is requested.
func (s *Session) enqueue(event application.Event) bool {
	s.mu.Lock()
	disconnected := s.state == StateDisconnected
	s.mu.Unlock()
	if disconnected {
		return false
	}

	select {
	case s.queue <- event:
		return true
	default:
	}

	s.dropBuffer()
	select {
	case s.resync <- struct{}{}:
	default:
	}
	return false
}

func (s *Session) dropBuffer() {
	for {
		select {
		case <-s.queue:
		default:
			return
		}
	}
}
