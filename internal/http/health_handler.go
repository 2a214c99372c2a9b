package http

import (
	"context"
	"log/slog"
	"net/http"
)

// StorePinger reports whether the backing store is reachable.
type StorePinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	store     StorePinger
	responder responder
}

func NewHealthHandler(store StorePinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, responder: newResponder(defaultLogger(logger))}
}

// Check handles GET /healthz: process liveness plus a store ping.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	status := healthResponse{Status: "ok", Store: "ok"}
	code := http.StatusOK
	if h.store != nil {
		if err := h.store.PingContext(r.Context()); err != nil {
			status.Status = "degraded"
			status.Store = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}

	h.responder.writeJSON(r.Context(), w, code, status)
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}
