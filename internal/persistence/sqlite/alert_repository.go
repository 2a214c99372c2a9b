package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/emergency-alerts/internal/persistence"
)

// AlertRepository implements persistence.AlertRepository using SQLite.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository creates a SQLite backed alert repository.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, category, description, latitude, longitude, status, version, created_at, resolved_at, expires_at`

// CreateAlert inserts a new alert record.
func (r *AlertRepository) CreateAlert(ctx context.Context, alert persistence.Alert) error {
	if alert.ID == "" || alert.Category == "" || alert.Description == "" {
		return persistence.ErrConstraintViolation
	}
	if alert.Version <= 0 {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		alert.ID,
		alert.Category,
		alert.Description,
		alert.Latitude,
		alert.Longitude,
		alert.Status,
		alert.Version,
		formatTime(alert.CreatedAt),
		formatOptionalTime(alert.ResolvedAt),
		formatTime(alert.ExpiresAt),
	)
	if err != nil {
		return mapError(err)
	}

	return nil
}

// GetAlert retrieves an alert by ID. Records past their retention window are
// reported as not found even when not yet physically purged.
func (r *AlertRepository) GetAlert(ctx context.Context, id string, now time.Time) (persistence.Alert, error) {
	if id == "" {
		return persistence.Alert{}, persistence.ErrNotFound
	}

	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE id = ? AND expires_at > ?
	`

	row := r.db.QueryRowContext(ctx, query, id, formatTime(now))
	alert, err := scanAlert(row)
	if err != nil {
		return persistence.Alert{}, mapError(err)
	}
	return alert, nil
}

// MarkResolved transitions an active alert to resolved with the supplied
// version. The guarded UPDATE makes the transition atomic: of two racing
// resolvers at most one advances the row.
func (r *AlertRepository) MarkResolved(ctx context.Context, id string, resolvedAt time.Time, version int64) (bool, error) {
	if id == "" {
		return false, persistence.ErrNotFound
	}

	query := `
		UPDATE alerts
		SET status = 'resolved', resolved_at = ?, version = ?
		WHERE id = ? AND status = 'active' AND expires_at > ?
	`

	result, err := r.db.ExecContext(ctx, query,
		formatTime(resolvedAt),
		version,
		id,
		formatTime(resolvedAt),
	)
	if err != nil {
		return false, mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	// Distinguish "already resolved" from "unknown or expired".
	var status string
	err = r.db.QueryRowContext(ctx,
		`SELECT status FROM alerts WHERE id = ? AND expires_at > ?`,
		id, formatTime(resolvedAt),
	).Scan(&status)
	if err != nil {
		return false, mapError(err)
	}
	return false, nil
}

// ListAlerts returns non-expired alerts matching the filter, newest first.
func (r *AlertRepository) ListAlerts(ctx context.Context, filter persistence.AlertFilter, now time.Time) ([]persistence.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE expires_at > ?
	`
	args := []any{formatTime(now)}

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.From != nil {
		query += ` AND created_at >= ?`
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		query += ` AND created_at <= ?`
		args = append(args, formatTime(*filter.To))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	return r.queryAlerts(ctx, query, args...)
}

// ListChangedSince returns non-expired alerts with a version greater than the
// supplied one, oldest first, for resync batches.
func (r *AlertRepository) ListChangedSince(ctx context.Context, version int64, now time.Time) ([]persistence.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE version > ? AND expires_at > ?
		ORDER BY created_at ASC, id ASC
	`
	return r.queryAlerts(ctx, query, version, formatTime(now))
}

// PurgeExpiredAlerts physically deletes records past their retention window.
// Reads never depend on this having run; it reclaims space only.
func (r *AlertRepository) PurgeExpiredAlerts(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM alerts WHERE expires_at <= ?`,
		formatTime(now),
	)
	if err != nil {
		return 0, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return affected, nil
}

func (r *AlertRepository) queryAlerts(ctx context.Context, query string, args ...any) ([]persistence.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var alerts []persistence.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, mapError(err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return alerts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (persistence.Alert, error) {
	var (
		alert         persistence.Alert
		latitude      sql.NullFloat64
		longitude     sql.NullFloat64
		createdAtStr  string
		resolvedAtStr sql.NullString
		expiresAtStr  string
	)

	err := row.Scan(
		&alert.ID,
		&alert.Category,
		&alert.Description,
		&latitude,
		&longitude,
		&alert.Status,
		&alert.Version,
		&createdAtStr,
		&resolvedAtStr,
		&expiresAtStr,
	)
	if err != nil {
		return persistence.Alert{}, err
	}

	if latitude.Valid {
		alert.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		alert.Longitude = &longitude.Float64
	}

	if alert.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Alert{}, err
	}
	if alert.ExpiresAt, err = parseTime(expiresAtStr); err != nil {
		return persistence.Alert{}, err
	}
	if resolvedAtStr.Valid {
		resolvedAt, err := parseTime(resolvedAtStr.String)
		if err != nil {
			return persistence.Alert{}, err
		}
		alert.ResolvedAt = &resolvedAt
	}

	return alert, nil
}
