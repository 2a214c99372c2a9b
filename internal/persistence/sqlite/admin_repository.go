package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/emergency-alerts/internal/persistence"
)

// AdminRepository implements persistence.AdminRepository using SQLite.
type AdminRepository struct {
	db *sql.DB
}

// NewAdminRepository creates a SQLite backed admin repository.
func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// CreateAdmin inserts a new operator account.
func (r *AdminRepository) CreateAdmin(ctx context.Context, admin persistence.Admin) error {
	if admin.ID == "" || admin.Email == "" || admin.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO admins (id, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		admin.ID,
		strings.ToLower(strings.TrimSpace(admin.Email)),
		admin.PasswordHash,
		formatTime(admin.CreatedAt),
		formatTime(admin.UpdatedAt),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// GetAdminByEmail retrieves an admin by email, case-insensitively.
func (r *AdminRepository) GetAdminByEmail(ctx context.Context, email string) (persistence.Admin, error) {
	query := `
		SELECT id, email, password_hash, created_at, updated_at
		FROM admins
		WHERE email = ?
	`
	return r.getAdmin(ctx, query, strings.ToLower(strings.TrimSpace(email)))
}

// GetAdmin retrieves an admin by ID.
func (r *AdminRepository) GetAdmin(ctx context.Context, id string) (persistence.Admin, error) {
	if id == "" {
		return persistence.Admin{}, persistence.ErrNotFound
	}
	query := `
		SELECT id, email, password_hash, created_at, updated_at
		FROM admins
		WHERE id = ?
	`
	return r.getAdmin(ctx, query, id)
}

func (r *AdminRepository) getAdmin(ctx context.Context, query string, arg any) (persistence.Admin, error) {
	var (
		admin        persistence.Admin
		createdAtStr string
		updatedAtStr string
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&admin.ID,
		&admin.Email,
		&admin.PasswordHash,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Admin{}, mapError(err)
	}
	if admin.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Admin{}, err
	}
	if admin.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Admin{}, err
	}
	return admin, nil
}
