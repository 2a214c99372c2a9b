package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/emergency-alerts/internal/application"
)

type alertService interface {
	Create(ctx context.Context, params application.CreateAlertParams) (application.Alert, error)
	Resolve(ctx context.Context, params application.ResolveAlertParams) (application.Alert, error)
	Query(ctx context.Context, filter application.QueryFilter) ([]application.Alert, error)
}

type AlertHandler struct {
	service   alertService
	responder responder
	logger    *slog.Logger
}

func NewAlertHandler(service alertService, logger *slog.Logger) *AlertHandler {
	base := defaultLogger(logger)
	return &AlertHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AlertHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AlertHandler", operation, attrs...)
}

// Create handles POST /alerts. Reporters are anonymous; no session required.
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req alertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode alert request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	alert, err := h.service.Create(r.Context(), application.CreateAlertParams{Input: req.toInput()})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, alertResponse{Alert: toAlertDTO(alert)})
}

// List handles GET /alerts with optional category and time-window filters.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	alerts, err := h.service.Query(r.Context(), buildQueryFilter(r.URL.Query()))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAlertsResponse{Alerts: toAlertDTOs(alerts)})
}

// Resolve handles PATCH /alerts/{id}/resolve. The session middleware has
// already placed a claim in the context; the service enforces the admin bit.
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	alertID, ok := AlertIDFromContext(r.Context())
	if !ok || strings.TrimSpace(alertID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAlertID)
		return
	}

	claim, _ := ClaimFromContext(r.Context())
	logger := h.log(r.Context(), "Resolve", "alert_id", alertID, "subject_id", claim.SubjectID)

	alert, err := h.service.Resolve(r.Context(), application.ResolveAlertParams{
		Claim:   claim,
		AlertID: alertID,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("version", alert.Version).InfoContext(r.Context(), "alert resolved over http")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, alertResponse{Alert: toAlertDTO(alert)})
}

type alertRequest struct {
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Position    *positionDTO `json:"position"`
}

func (r alertRequest) toInput() application.AlertInput {
	input := application.AlertInput{
		Category:    strings.TrimSpace(r.Category),
		Description: r.Description,
	}
	if r.Position != nil {
		input.Position = &application.Position{
			Latitude:  r.Position.Latitude,
			Longitude: r.Position.Longitude,
		}
	}
	return input
}

type alertResponse struct {
	Alert alertDTO `json:"alert"`
}

type listAlertsResponse struct {
	Alerts []alertDTO `json:"alerts"`
}

type positionDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// alertDTO is the wire shape of an alert. Position is omitted entirely when
// the incident location is unknown, never rendered as (0, 0).
type alertDTO struct {
	ID          string       `json:"id"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Position    *positionDTO `json:"position,omitempty"`
	Status      string       `json:"status"`
	Version     int64        `json:"version"`
	CreatedAt   string       `json:"created_at"`
	ResolvedAt  string       `json:"resolved_at,omitempty"`
	ExpiresAt   string       `json:"expires_at"`
}

func toAlertDTO(alert application.Alert) alertDTO {
	dto := alertDTO{
		ID:          alert.ID,
		Category:    string(alert.Category),
		Description: alert.Description,
		Status:      string(alert.Status),
		Version:     alert.Version,
		CreatedAt:   alert.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:   alert.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if alert.Position != nil {
		dto.Position = &positionDTO{
			Latitude:  alert.Position.Latitude,
			Longitude: alert.Position.Longitude,
		}
	}
	if alert.ResolvedAt != nil {
		dto.ResolvedAt = alert.ResolvedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toAlertDTOs(alerts []application.Alert) []alertDTO {
	if len(alerts) == 0 {
		return []alertDTO{}
	}
	out := make([]alertDTO, 0, len(alerts))
	for _, alert := range alerts {
		out = append(out, toAlertDTO(alert))
	}
	return out
}

func buildQueryFilter(values url.Values) application.QueryFilter {
	filter := application.QueryFilter{
		Category: strings.TrimSpace(values.Get("category")),
	}

	if from := strings.TrimSpace(values.Get("from")); from != "" {
		if ts, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = &ts
		}
	}
	if to := strings.TrimSpace(values.Get("to")); to != "" {
		if ts, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &ts
		}
	}

	return filter
}
