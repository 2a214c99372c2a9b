package broadcast

import (
	"log/slog"
	"sync"

	"github.com/example/emergency-alerts/internal/application"
)

// defaultQueueSize bounds a session's live queue when no size is configured.
const defaultQueueSize = 64

// Broadcaster fans alert events out to every open session. Publish never
// blocks: a session whose queue is full has its buffer dropped and is forced
// back through the resync protocol instead of slowing the other observers.
type Broadcaster struct {
	queueSize int
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New constructs a Broadcaster whose sessions buffer up to queueSize events.
func New(queueSize int, logger *slog.Logger) *Broadcaster {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		queueSize: queueSize,
		logger:    logger,
		sessions:  make(map[string]*Session),
	}
}

// Open registers a new session for the given identifier. An existing session
// with the same identifier is disconnected first; a reconnecting observer
// always starts from a fresh state.
func (b *Broadcaster) Open(sessionID string) *Session {
	session := newSession(sessionID, b.queueSize)

	b.mu.Lock()
	previous := b.sessions[sessionID]
	b.sessions[sessionID] = session
	b.mu.Unlock()

	if previous != nil {
		previous.Disconnect()
	}
	return session
}

// Close removes the session from the fan-out set and disconnects it. Closing
// an unknown session is a no-op.
func (b *Broadcaster) Close(sessionID string) {
	b.mu.Lock()
	session := b.sessions[sessionID]
	delete(b.sessions, sessionID)
	b.mu.Unlock()

	if session != nil {
		session.Disconnect()
	}
}

// Publish offers the event to every open session without blocking. Sessions
// that cannot keep up are logged and pushed into resync by their own queue.
func (b *Broadcaster) Publish(event application.Event) {
	b.mu.RLock()
	sessions := make([]*Session, 0, len(b.sessions))
	for _, session := range b.sessions {
		sessions = append(sessions, session)
	}
	b.mu.RUnlock()

	for _, session := range sessions {
		if session.enqueue(event) {
			continue
		}
		if session.State() == StateDisconnected {
			continue
		}
		b.logger.Warn("session queue overflowed, forcing resync",
			"session_id", session.ID(),
			"alert_id", event.Alert.ID,
			"version", event.Alert.Version,
		)
	}
}

// SessionCount returns the number of registered sessions.
func (b *Broadcaster) SessionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}
