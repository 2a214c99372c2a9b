package persistence

import "time"

// Alert represents a reported emergency incident as stored on disk.
type Alert struct {
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

// Admin represents an operator account allowed to resolve alerts.
type Admin struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for an admin.
type Session struct {
	ID        string
	AdminID   string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}
