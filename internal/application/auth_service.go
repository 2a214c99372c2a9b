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

// CredentialStore exposes admin account lookup and bootstrap operations.
type CredentialStore interface {
	GetAdminCredentialsByEmail(ctx context.Context, email string) (AdminCredentials, error)
	GetAdmin(ctx context.Context, id string) (Admin, error)
	CreateAdmin(ctx context.Context, admin Admin, passwordHash string) (Admin, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService issues and validates the admin sessions that back resolution
// claims. Credential mechanics stay here; the alert engine only ever sees the
// resulting Claim.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	verifyPassword PasswordVerifier
	hashPassword   func(string) (string, error)
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, sessions SessionRepository, idGenerator, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(credentials, sessions, idGenerator, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, sessions SessionRepository, idGenerator, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		verifyPassword: VerifyPassword,
		hashPassword:   HashPassword,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials and issues a new session token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil || s.sessions == nil {
		err = fmt.Errorf("auth repositories not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))

	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("admin_id", result.Admin.ID).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	creds, lookupErr := s.credentials.GetAdminCredentialsByEmail(ctx, email)
	if lookupErr != nil {
		if errors.Is(lookupErr, ErrNotFound) || errors.Is(lookupErr, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		err = mapAlertRepoError(lookupErr)
		return
	}

	if verifyErr := s.verifyPassword(creds.PasswordHash, params.Password); verifyErr != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now().UTC()
	session := Session{
		ID:        s.idGenerator(),
		AdminID:   creds.Admin.ID,
		Token:     s.tokenGenerator(),
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	stored, createErr := s.sessions.CreateSession(ctx, session)
	if createErr != nil {
		err = mapAlertRepoError(createErr)
		return
	}

	result = AuthenticateResult{
		Admin:   creds.Admin,
		Session: stored,
		Claim:   Claim{SubjectID: creds.Admin.ID, IsAdmin: true},
	}
	return
}

// ValidateSession resolves a session token to the claim it carries.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Claim, error) {
	if s == nil || s.sessions == nil {
		return Claim{}, fmt.Errorf("auth repositories not configured")
	}
	if strings.TrimSpace(token) == "" {
		return Claim{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return Claim{}, ErrUnauthorized
		}
		return Claim{}, mapAlertRepoError(err)
	}

	now := s.now().UTC()
	if session.RevokedAt != nil {
		return Claim{}, ErrSessionRevoked
	}
	if !session.ExpiresAt.After(now) {
		return Claim{}, ErrSessionExpired
	}

	return Claim{SubjectID: session.AdminID, IsAdmin: true}, nil
}

// RevokeSession invalidates a session token.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("auth repositories not configured")
	}
	if strings.TrimSpace(token) == "" {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "RevokeSession")
	if _, err := s.sessions.RevokeSession(ctx, token, s.now().UTC()); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return ErrUnauthorized
		}
		err = mapAlertRepoError(err)
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "session revoked")
	return nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	if s == nil || s.credentials == nil {
		return fmt.Errorf("auth repositories not configured")
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return ErrInvalidCredentials
	}

	logger := s.loggerWith(ctx, "EnsureAdmin", "email", email)

	_, err := s.credentials.GetAdminCredentialsByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) && !errors.Is(err, persistence.ErrNotFound) {
		return mapAlertRepoError(err)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	admin := Admin{
		ID:        s.idGenerator(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.credentials.CreateAdmin(ctx, admin, hash); err != nil {
		err = mapAlertRepoError(err)
		logger.ErrorContext(ctx, "failed to create bootstrap admin", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "bootstrap admin created")
	return nil
}
