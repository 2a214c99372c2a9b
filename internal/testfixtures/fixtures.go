package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/emergency-alerts/internal/application"
	"github.com/example/emergency-alerts/internal/persistence"
)

var (
	alertCounter   uint64
	adminCounter   uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Alert fixtures -----------------------------

// AlertFixture represents a deterministic alert record that can be
// materialised for application or persistence tests.
type AlertFixture struct {
	ID          string
	Category    string
	Description string
	Latitude    *float64
	Longitude   *float64
	Status      string
	Version     int64
	CreatedAt   time.Time
	ResolvedAt  *time.Time
	ExpiresAt   time.Time
}

// AlertOption configures the generated alert fixture.
type AlertOption func(*AlertFixture)

// NewAlertFixture returns a deterministic active alert fixture with optional
// overrides. Each fixture gets a distinct id and creation minute.
func NewAlertFixture(opts ...AlertOption) AlertFixture {
	idx := atomic.AddUint64(&alertCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := AlertFixture{
		ID:          fmt.Sprintf("alert-%03d", idx),
		Category:    "fire",
		Description: fmt.Sprintf("reported incident %03d", idx),
		Status:      "active",
		Version:     1,
		CreatedAt:   created,
		ExpiresAt:   created.Add(7 * 24 * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAlertID overrides the generated alert ID.
func WithAlertID(id string) AlertOption {
	return func(f *AlertFixture) {
		f.ID = id
	}
}

// WithAlertCategory overrides the category.
func WithAlertCategory(category string) AlertOption {
	return func(f *AlertFixture) {
		f.Category = category
	}
}

// WithAlertDescription overrides the description.
func WithAlertDescription(description string) AlertOption {
	return func(f *AlertFixture) {
		f.Description = description
	}
}

// WithAlertPosition sets the incident position.
func WithAlertPosition(latitude, longitude float64) AlertOption {
	return func(f *AlertFixture) {
		lat, lng := latitude, longitude
		f.Latitude = &lat
		f.Longitude = &lng
	}
}

// WithoutAlertPosition clears any position on the fixture.
func WithoutAlertPosition() AlertOption {
	return func(f *AlertFixture) {
		f.Latitude = nil
		f.Longitude = nil
	}
}

// WithAlertResolved marks the fixture resolved at the given time and bumps the
// version to 2.
func WithAlertResolved(resolvedAt time.Time) AlertOption {
	return func(f *AlertFixture) {
		at := resolvedAt
		f.Status = "resolved"
		f.ResolvedAt = &at
		f.Version = 2
	}
}

// WithAlertVersion overrides the version.
func WithAlertVersion(version int64) AlertOption {
	return func(f *AlertFixture) {
		f.Version = version
	}
}

// WithAlertCreatedAt sets the created timestamp and shifts expiry to keep the
// default retention window.
func WithAlertCreatedAt(t time.Time) AlertOption {
	return func(f *AlertFixture) {
		f.CreatedAt = t
		f.ExpiresAt = t.Add(7 * 24 * time.Hour)
	}
}

// WithAlertExpiresAt sets the expiry timestamp directly.
func WithAlertExpiresAt(t time.Time) AlertOption {
	return func(f *AlertFixture) {
		f.ExpiresAt = t
	}
}

// Application returns the fixture as an application.Alert value.
func (f AlertFixture) Application() application.Alert {
	var position *application.Position
	if f.Latitude != nil && f.Longitude != nil {
		position = &application.Position{Latitude: *f.Latitude, Longitude: *f.Longitude}
	}
	var resolvedAt *time.Time
	if f.ResolvedAt != nil {
		at := *f.ResolvedAt
		resolvedAt = &at
	}
	return application.Alert{
		ID:          f.ID,
		Category:    application.Category(f.Category),
		Description: f.Description,
		Position:    position,
		Status:      application.Status(f.Status),
		Version:     f.Version,
		CreatedAt:   f.CreatedAt,
		ResolvedAt:  resolvedAt,
		ExpiresAt:   f.ExpiresAt,
	}
}

// Persistence returns the fixture as a persistence.Alert value.
func (f AlertFixture) Persistence() persistence.Alert {
	var resolvedAt *time.Time
	if f.ResolvedAt != nil {
		at := *f.ResolvedAt
		resolvedAt = &at
	}
	return persistence.Alert{
		ID:          f.ID,
		Category:    f.Category,
		Description: f.Description,
		Latitude:    copyFloatPtr(f.Latitude),
		Longitude:   copyFloatPtr(f.Longitude),
		Status:      f.Status,
		Version:     f.Version,
		CreatedAt:   f.CreatedAt,
		ResolvedAt:  resolvedAt,
		ExpiresAt:   f.ExpiresAt,
	}
}

// Input returns the fixture as an application.AlertInput.
func (f AlertFixture) Input() application.AlertInput {
	var position *application.Position
	if f.Latitude != nil && f.Longitude != nil {
		position = &application.Position{Latitude: *f.Latitude, Longitude: *f.Longitude}
	}
	return application.AlertInput{
		Category:    f.Category,
		Description: f.Description,
		Position:    position,
	}
}

// ----------------------------- Admin fixtures -----------------------------

// AdminFixture represents a deterministic admin account record.
type AdminFixture struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AdminOption configures the generated admin fixture.
type AdminOption func(*AdminFixture)

// NewAdminFixture returns a deterministic admin fixture with optional overrides.
func NewAdminFixture(opts ...AdminOption) AdminFixture {
	idx := atomic.AddUint64(&adminCounter, 1)
	id := fmt.Sprintf("admin-%03d", idx)
	fixture := AdminFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    referenceTime,
		UpdatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAdminID overrides the generated admin ID.
func WithAdminID(id string) AdminOption {
	return func(f *AdminFixture) {
		f.ID = id
	}
}

// WithAdminEmail overrides the generated email address.
func WithAdminEmail(email string) AdminOption {
	return func(f *AdminFixture) {
		f.Email = email
	}
}

// WithAdminPasswordHash overrides the generated password hash.
func WithAdminPasswordHash(hash string) AdminOption {
	return func(f *AdminFixture) {
		f.PasswordHash = hash
	}
}

// Application returns the fixture as an application.Admin value.
func (f AdminFixture) Application() application.Admin {
	return application.Admin{
		ID:        f.ID,
		Email:     f.Email,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Credentials returns the fixture as application.AdminCredentials.
func (f AdminFixture) Credentials() application.AdminCredentials {
	return application.AdminCredentials{
		Admin:        f.Application(),
		PasswordHash: f.PasswordHash,
	}
}

// Claim returns the admin claim derived from the fixture.
func (f AdminFixture) Claim() application.Claim {
	return application.Claim{SubjectID: f.ID, IsAdmin: true}
}

// Persistence returns the fixture as a persistence.Admin value.
func (f AdminFixture) Persistence() persistence.Admin {
	return persistence.Admin{
		ID:           f.ID,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ----------------------------- Session fixtures -------------------------

// SessionFixture represents a deterministic session record.
type SessionFixture struct {
	ID        string
	AdminID   string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session fixture with optional overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		AdminID:   fmt.Sprintf("admin-%03d", idx),
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: referenceTime.Add(24 * time.Hour),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the session ID.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.ID = id
	}
}

// WithSessionAdminID sets the owning admin ID.
func WithSessionAdminID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.AdminID = id
	}
}

// WithSessionToken overrides the token value.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

// WithSessionExpiresAt sets the expiration timestamp.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// WithSessionRevokedAt sets the optional revoked timestamp.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		revoked := t
		f.RevokedAt = &revoked
	}
}

// Application returns the fixture as an application.Session value.
func (f SessionFixture) Application() application.Session {
	var revoked *time.Time
	if f.RevokedAt != nil {
		t := *f.RevokedAt
		revoked = &t
	}
	return application.Session{
		ID:        f.ID,
		AdminID:   f.AdminID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		RevokedAt: revoked,
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	var revoked *time.Time
	if f.RevokedAt != nil {
		t := *f.RevokedAt
		revoked = &t
	}
	return persistence.Session{
		ID:        f.ID,
		AdminID:   f.AdminID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		RevokedAt: revoked,
	}
}

// helper to deep copy optional floats.
func copyFloatPtr(src *float64) *float64 {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
