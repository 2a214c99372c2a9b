package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/emergency-alerts/internal/application"
	"github.com/example/emergency-alerts/internal/broadcast"
)

// helloWait bounds how long the server waits for the observer's opening
// frame before starting a full-snapshot resync.
const helloWait = 2 * time.Second

type streamService interface {
	ChangesSince(ctx context.Context, lastVersions map[string]int64) ([]application.Alert, error)
}

// SessionRegistry is the broadcaster surface the stream transport needs.
type SessionRegistry interface {
	Open(sessionID string) *broadcast.Session
	Close(sessionID string)
}

// StreamHandler serves GET /alerts/stream: it upgrades the connection to a
// WebSocket, registers a broadcast session, replays the resync batch, and then
// relays live events until either side disconnects.
type StreamHandler struct {
	service     streamService
	sessions    SessionRegistry
	idGenerator func() string
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

func NewStreamHandler(service streamService, sessions SessionRegistry, idGenerator func() string, logger *slog.Logger) *StreamHandler {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &StreamHandler{
		service:     service,
		sessions:    sessions,
		idGenerator: idGenerator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Observers connect from arbitrary origins; the stream carries
			// no credentials and is read-only.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: defaultLogger(logger),
	}
}

func (h *StreamHandler) log(ctx context.Context, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "StreamHandler", "Serve", attrs...)
}

// Serve runs one observer connection to completion.
func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log(r.Context()).ErrorContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := h.idGenerator()
	logger := h.log(r.Context(), "session_id", sessionID)

	// Subscribe before computing the resync batch so no committed mutation
	// can fall between the batch read and live delivery.
	session := h.sessions.Open(sessionID)
	defer h.sessions.Close(sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	hello := make(chan map[string]int64, 1)
	go h.readLoop(conn, session, hello, cancel)

	select {
	case seed := <-hello:
		session.SeedVersions(seed)
	case <-time.After(helloWait):
	case <-ctx.Done():
		return
	}

	logger.InfoContext(ctx, "observer connected")

	if err := h.resync(ctx, conn, session); err != nil {
		logger.ErrorContext(ctx, "resync failed", "error", err, "error_kind", application.ErrorKind(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "observer disconnected")
			return
		case <-session.Done():
			return
		case <-session.ResyncRequests():
			if err := h.resync(ctx, conn, session); err != nil {
				logger.ErrorContext(ctx, "resync failed", "error", err, "error_kind", application.ErrorKind(err))
				return
			}
		case event := <-session.Events():
			if !session.ShouldDeliver(event) {
				continue
			}
			if err := h.writeEvent(conn, event); err != nil {
				logger.InfoContext(ctx, "observer write failed", "error", err)
				return
			}
			session.MarkDelivered(event.Alert.ID, event.Alert.Version)
		}
	}
}

// resync replays every alert the observer has not seen yet as a single merged
// event per alert. Live events that raced the batch are dropped afterwards by
// the per-alert version guard.
func (h *StreamHandler) resync(ctx context.Context, conn *websocket.Conn, session *broadcast.Session) error {
	session.BeginResync()

	batch, err := h.service.ChangesSince(ctx, session.LastDeliveredVersions())
	if err != nil {
		return err
	}

	for _, alert := range batch {
		event := application.EventFor(alert)
		if !session.ShouldDeliver(event) {
			continue
		}
		if err := h.writeEvent(conn, event); err != nil {
			return err
		}
		session.MarkDelivered(event.Alert.ID, event.Alert.Version)
	}

	session.GoLive()
	return nil
}

// readLoop consumes observer frames for the lifetime of the connection. The
// first frame seeds the resync watermark; later frames carrying last_versions
// trigger a fresh resync. Any read error ends the connection.
func (h *StreamHandler) readLoop(conn *websocket.Conn, session *broadcast.Session, hello chan<- map[string]int64, cancel context.CancelFunc) {
	defer cancel()
	first := true
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame streamClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if first {
			first = false
			select {
			case hello <- frame.LastVersions:
			default:
			}
			continue
		}
		if frame.LastVersions != nil {
			session.SeedVersions(frame.LastVersions)
			session.RequestResync()
		}
	}
}

func (h *StreamHandler) writeEvent(conn *websocket.Conn, event application.Event) error {
	return conn.WriteJSON(streamEventDTO{
		Kind:  string(event.Kind),
		Alert: toAlertDTO(event.Alert),
	})
}

// streamClientFrame is the observer-to-server message. The zero value (an
// empty frame) requests a full snapshot.
type streamClientFrame struct {
	LastVersions map[string]int64 `json:"last_versions"`
}

type streamEventDTO struct {
	Kind  string   `json:"kind"`
	Alert alertDTO `json:"alert"`
}
