package application

import "time"

// Category identifies the kind of emergency being reported.
type Category string

const (
	CategoryFire       Category = "fire"
	CategoryFlood      Category = "flood"
	CategoryEarthquake Category = "earthquake"
	CategoryViolence   Category = "violence"
	CategoryMedical    Category = "medical"
)

// KnownCategories lists every accepted alert category.
func KnownCategories() []Category {
	return []Category{CategoryFire, CategoryFlood, CategoryEarthquake, CategoryViolence, CategoryMedical}
}

// IsKnownCategory reports whether the value names an accepted category.
func IsKnownCategory(value string) bool {
	for _, category := range KnownCategories() {
		if string(category) == value {
			return true
		}
	}
	return false
}

// Status captures the lifecycle state of an alert. The only transition is
// active to resolved, exactly once.
type Status string

const (
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
)

// Position is a reported incident location. A nil *Position means the
// location is unknown; it is never rendered as (0, 0).
type Position struct {
	Latitude  float64
	Longitude float64
}

// Alert is a single reported emergency incident.
type Alert struct {
	ID          string
	Category    Category
	Description string
	Position    *Position
	Status      Status
	// Version is the per-alert logical version: 1 on creation, incremented on
	// every mutation. Observers order and deduplicate by it.
	Version    int64
	CreatedAt  time.Time
	ResolvedAt *time.Time
	ExpiresAt  time.Time
}

// AlertInput captures caller provided alert fields.
type AlertInput struct {
	Category    string
	Description string
	Position    *Position
}

// Claim is the capability object carried by mutating callers. The credential
// mechanism that produces it lives outside the engine; the engine trusts only
// the admin bit and the opaque subject identity.
type Claim struct {
	SubjectID string
	IsAdmin   bool
}

// CreateAlertParams wraps the data required to report a new alert.
type CreateAlertParams struct {
	Input AlertInput
}

// ResolveAlertParams wraps the data required to resolve an alert.
type ResolveAlertParams struct {
	Claim   Claim
	AlertID string
}

// QueryFilter narrows alert listings. Zero fields are ignored.
type QueryFilter struct {
	Category string
	From     *time.Time
	To       *time.Time
}

// EventKind labels the mutation that produced an event.
type EventKind string

const (
	EventCreated  EventKind = "created"
	EventResolved EventKind = "resolved"
)

// Event is a committed alert mutation fanned out to observers.
type Event struct {
	Kind  EventKind
	Alert Alert
}

// EventFor derives the event for an alert's current state. Resync batches use
// it to deliver a single merged event per alert instead of replaying history.
func EventFor(alert Alert) Event {
	kind := EventCreated
	if alert.Status == StatusResolved {
		kind = EventResolved
	}
	return Event{Kind: kind, Alert: alert}
}

// Admin represents an operator account allowed to resolve alerts.
type Admin struct {
	ID        string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AdminCredentials models the authentication attributes persisted for an admin.
type AdminCredentials struct {
	Admin        Admin
	PasswordHash string
}

// Session represents an authenticated session issued to an admin.
type Session struct {
	ID        string
	AdminID   string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate an admin.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication.
type AuthenticateResult struct {
	Admin   Admin
	Session Session
	Claim   Claim
}
