package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/emergency-alerts/internal/persistence"
)

// AlertRepository captures the persistence operations needed by the service.
type AlertRepository interface {
	CreateAlert(ctx context.Context, alert Alert) error
	GetAlert(ctx context.Context, id string) (Alert, error)
	// MarkResolved reports false when the alert exists but was already
	// resolved by another writer.
	MarkResolved(ctx context.Context, id string, resolvedAt time.Time, version int64) (bool, error)
	ListAlerts(ctx context.Context, filter QueryFilter) ([]Alert, error)
	ListChangedSince(ctx context.Context, version int64) ([]Alert, error)
}

// Publisher fans a committed mutation out to connected observers. Delivery is
// best effort per observer; Publish never blocks on a slow consumer and never
// reports delivery failures back to the mutation path.
type Publisher interface {
	Publish(event Event)
}

// VersionSequencer serializes mutations per alert id and allocates versions.
type VersionSequencer interface {
	Do(alertID string, fn func() error) error
	Next(alertID string, observed int64) int64
}

// AlertService orchestrates validation, persistence, version assignment, and
// fan-out for alert mutations. It is the single writer path for alert state.
type AlertService struct {
	alerts      AlertRepository
	publisher   Publisher
	sequencer   VersionSequencer
	idGenerator func() string
	now         func() time.Time
	retention   time.Duration
	cache       *queryCache
	logger      *slog.Logger
}

// DefaultRetentionWindow is how long an alert stays visible to queries.
const DefaultRetentionWindow = 7 * 24 * time.Hour

// NewAlertService constructs an alert service with the provided dependencies.
func NewAlertService(alerts AlertRepository, publisher Publisher, sequencer VersionSequencer, idGenerator func() string, now func() time.Time, retention time.Duration) *AlertService {
	return NewAlertServiceWithLogger(alerts, publisher, sequencer, idGenerator, now, retention, nil)
}

// NewAlertServiceWithLogger constructs an alert service with a specified logger.
func NewAlertServiceWithLogger(alerts AlertRepository, publisher Publisher, sequencer VersionSequencer, idGenerator func() string, now func() time.Time, retention time.Duration, logger *slog.Logger) *AlertService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if retention <= 0 {
		retention = DefaultRetentionWindow
	}
	return &AlertService{
		alerts:      alerts,
		publisher:   publisher,
		sequencer:   sequencer,
		idGenerator: idGenerator,
		now:         now,
		retention:   retention,
		cache:       newQueryCache(0, 0, now),
		logger:      defaultLogger(logger),
	}
}

func (s *AlertService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AlertService", operation, attrs...)
}

// Create validates input and persists a new active alert, then fans the
// created event out to connected observers. The event is published strictly
// after the record is durable.
func (s *AlertService) Create(ctx context.Context, params CreateAlertParams) (alert Alert, err error) {
	if s == nil {
		err = fmt.Errorf("AlertService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create", "category", params.Input.Category)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create alert", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("alert_id", alert.ID).InfoContext(ctx, "alert created")
	}()

	vErr := validateAlertInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	createdAt := s.now().UTC()
	alert = Alert{
		ID:          s.idGenerator(),
		Category:    Category(params.Input.Category),
		Description: strings.TrimSpace(params.Input.Description),
		Position:    clonePosition(params.Input.Position),
		Status:      StatusActive,
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(s.retention),
	}

	if s.alerts == nil {
		return
	}

	// Persist and publish inside the per-alert critical section so that a
	// racing resolve cannot reach observers ahead of the created event.
	err = s.sequencer.Do(alert.ID, func() error {
		alert.Version = s.sequencer.Next(alert.ID, 0)
		if createErr := s.alerts.CreateAlert(ctx, alert); createErr != nil {
			return mapAlertRepoError(createErr)
		}
		s.publish(Event{Kind: EventCreated, Alert: alert})
		return nil
	})
	if err != nil {
		alert = Alert{}
		return
	}

	return
}

// Resolve transitions an alert to resolved on behalf of an admin claim.
// Resolving an already resolved alert is an idempotent no-op that returns the
// current record without advancing its version or emitting an event. A claim
// without the admin capability mutates nothing and emits nothing.
func (s *AlertService) Resolve(ctx context.Context, params ResolveAlertParams) (alert Alert, err error) {
	if s == nil {
		err = fmt.Errorf("AlertService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Resolve",
		"subject_id", params.Claim.SubjectID,
		"alert_id", params.AlertID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to resolve alert", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("version", alert.Version).InfoContext(ctx, "alert resolved")
	}()

	if !params.Claim.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.alerts == nil {
		err = fmt.Errorf("alert repository not configured")
		return
	}

	err = s.sequencer.Do(params.AlertID, func() error {
		current, getErr := s.alerts.GetAlert(ctx, params.AlertID)
		if getErr != nil {
			return mapAlertRepoError(getErr)
		}
		if current.Status == StatusResolved {
			alert = current
			return nil
		}

		version := s.sequencer.Next(params.AlertID, current.Version)
		resolvedAt := s.now().UTC()
		advanced, markErr := s.alerts.MarkResolved(ctx, params.AlertID, resolvedAt, version)
		if markErr != nil {
			return mapAlertRepoError(markErr)
		}
		if !advanced {
			// Another process won the transition; surface its state.
			stored, getErr := s.alerts.GetAlert(ctx, params.AlertID)
			if getErr != nil {
				return mapAlertRepoError(getErr)
			}
			alert = stored
			return nil
		}

		alert = current
		alert.Status = StatusResolved
		alert.ResolvedAt = &resolvedAt
		alert.Version = version
		s.publish(Event{Kind: EventResolved, Alert: alert})
		return nil
	})
	if err != nil {
		alert = Alert{}
	}
	return
}

// Query returns non-expired alerts matching the filter, newest first. When
// the store is unreachable a recently cached view is served instead, if one
// exists for the same filter.
func (s *AlertService) Query(ctx context.Context, filter QueryFilter) (alerts []Alert, err error) {
	if s == nil {
		err = fmt.Errorf("AlertService is nil")
		return
	}
	if s.alerts == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "Query", "category", filter.Category)

	if vErr := validateQueryFilter(filter); vErr.HasErrors() {
		err = vErr
		logger.ErrorContext(ctx, "rejected alert query", "error", err, "error_kind", ErrorKind(err))
		return
	}

	key := filter.cacheKey()
	alerts, err = s.alerts.ListAlerts(ctx, filter)
	if err != nil {
		err = mapAlertRepoError(err)
		if errors.Is(err, ErrStoreUnavailable) {
			if cached, ok := s.cache.Get(key); ok {
				logger.WarnContext(ctx, "store unavailable, serving cached view", "result_count", len(cached))
				return cached, nil
			}
		}
		logger.ErrorContext(ctx, "failed to query alerts", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	s.cache.Store(key, alerts)
	logger.With("result_count", len(alerts)).InfoContext(ctx, "alerts queried")
	return alerts, nil
}

// ChangesSince computes a resync batch: every non-expired alert whose version
// exceeds what the observer already holds. An empty map requests a full
// snapshot. The batch carries at most one entry per alert, its latest state.
func (s *AlertService) ChangesSince(ctx context.Context, lastVersions map[string]int64) ([]Alert, error) {
	if s == nil {
		return nil, fmt.Errorf("AlertService is nil")
	}
	if s.alerts == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ChangesSince", "known_alerts", len(lastVersions))

	all, err := s.alerts.ListChangedSince(ctx, 0)
	if err != nil {
		err = mapAlertRepoError(err)
		logger.ErrorContext(ctx, "failed to compute resync batch", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	if len(lastVersions) == 0 {
		return all, nil
	}

	changed := make([]Alert, 0, len(all))
	for _, alert := range all {
		if known, ok := lastVersions[alert.ID]; ok && alert.Version <= known {
			continue
		}
		changed = append(changed, alert)
	}
	if len(changed) == 0 {
		return nil, nil
	}
	return changed, nil
}

func (s *AlertService) publish(event Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(event)
}

func validateAlertInput(input AlertInput) *ValidationError {
	vErr := &ValidationError{}

	if !IsKnownCategory(strings.TrimSpace(input.Category)) {
		vErr.add("category", "category is unknown")
	}
	if strings.TrimSpace(input.Description) == "" {
		vErr.add("description", "description is required")
	}
	if input.Position != nil {
		if input.Position.Latitude < -90 || input.Position.Latitude > 90 {
			vErr.add("position", "latitude out of range")
		}
		if input.Position.Longitude < -180 || input.Position.Longitude > 180 {
			vErr.add("position", "longitude out of range")
		}
	}

	return vErr
}

func validateQueryFilter(filter QueryFilter) *ValidationError {
	vErr := &ValidationError{}
	if filter.Category != "" && !IsKnownCategory(filter.Category) {
		vErr.add("category", "category is unknown")
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		vErr.add("from", "from must not be after to")
	}
	return vErr
}

func mapAlertRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrUnavailable):
		return ErrStoreUnavailable
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("input", "record violates storage constraints")
		return vErr
	}
	return err
}

func clonePosition(position *Position) *Position {
	if position == nil {
		return nil
	}
	clone := *position
	return &clone
}
