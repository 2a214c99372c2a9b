package persistence

import (
	"context"
	"time"
)

// AlertFilter narrows alert queries. Nil fields are ignored.
type AlertFilter struct {
	Category string
	From     *time.Time
	To       *time.Time
}

// AlertRepository stores alert records. All read operations exclude records
// whose retention window has elapsed, whether or not they have been physically
// purged.
type AlertRepository interface {
	CreateAlert(ctx context.Context, alert Alert) error
	GetAlert(ctx context.Context, id string, now time.Time) (Alert, error)
	// MarkResolved transitions an active alert to resolved with the supplied
	// version. It reports false when the alert exists but was already
	// resolved, which callers treat as an idempotent no-op.
	MarkResolved(ctx context.Context, id string, resolvedAt time.Time, version int64) (bool, error)
	ListAlerts(ctx context.Context, filter AlertFilter, now time.Time) ([]Alert, error)
	ListChangedSince(ctx context.Context, version int64, now time.Time) ([]Alert, error)
	PurgeExpiredAlerts(ctx context.Context, now time.Time) (int64, error)
}

// AdminRepository stores operator accounts.
type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin Admin) error
	GetAdminByEmail(ctx context.Context, email string) (Admin, error)
	GetAdmin(ctx context.Context, id string) (Admin, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
