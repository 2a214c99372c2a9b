package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type credentialStoreStub struct {
	admins map[string]AdminCredentials // keyed by email
}

func newCredentialStoreStub() *credentialStoreStub {
	return &credentialStoreStub{admins: make(map[string]AdminCredentials)}
}

func (s *credentialStoreStub) GetAdminCredentialsByEmail(ctx context.Context, email string) (AdminCredentials, error) {
	creds, ok := s.admins[email]
	if !ok {
		return AdminCredentials{}, ErrNotFound
	}
	return creds, nil
}

func (s *credentialStoreStub) GetAdmin(ctx context.Context, id string) (Admin, error) {
	for _, creds := range s.admins {
		if creds.Admin.ID == id {
			return creds.Admin, nil
		}
	}
	return Admin{}, ErrNotFound
}

func (s *credentialStoreStub) CreateAdmin(ctx context.Context, admin Admin, passwordHash string) (Admin, error) {
	if _, ok := s.admins[admin.Email]; ok {
		return Admin{}, ErrAlreadyExists
	}
	s.admins[admin.Email] = AdminCredentials{Admin: admin, PasswordHash: passwordHash}
	return admin, nil
}

type sessionRepoStub struct {
	sessions map[string]Session // keyed by token
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{sessions: make(map[string]Session)}
}

func (s *sessionRepoStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	s.sessions[session.Token] = session
	return session, nil
}

func (s *sessionRepoStub) GetSession(ctx context.Context, token string) (Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (s *sessionRepoStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	session.RevokedAt = &revokedAt
	s.sessions[token] = session
	return session, nil
}

func (s *sessionRepoStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

func newTestAuthService(credentials *credentialStoreStub, sessions *sessionRepoStub, now func() time.Time) *AuthService {
	ids, tokens := 0, 0
	idGenerator := func() string { ids++; return fmt.Sprintf("id-%d", ids) }
	tokenGenerator := func() string { tokens++; return fmt.Sprintf("token-%d", tokens) }
	return NewAuthService(credentials, sessions, idGenerator, tokenGenerator, now, time.Hour)
}

func TestAuthService_Authenticate(t *testing.T) {
	reference := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return reference }

	seed := func(t *testing.T) (*credentialStoreStub, *sessionRepoStub, *AuthService) {
		t.Helper()
		credentials := newCredentialStoreStub()
		sessions := newSessionRepoStub()
		svc := newTestAuthService(credentials, sessions, now)
		if err := svc.EnsureAdmin(context.Background(), "dispatch@example.com", "correct horse"); err != nil {
			t.Fatalf("EnsureAdmin failed: %v", err)
		}
		return credentials, sessions, svc
	}

	t.Run("issues a session and admin claim for valid credentials", func(t *testing.T) {
		_, _, svc := seed(t)

		result, err := svc.Authenticate(context.Background(), AuthenticateParams{
			Email:    "Dispatch@Example.com",
			Password: "correct horse",
		})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if !result.Claim.IsAdmin || result.Claim.SubjectID != result.Admin.ID {
			t.Fatalf("unexpected claim: %+v", result.Claim)
		}
		if result.Session.Token == "" || !result.Session.ExpiresAt.Equal(reference.Add(time.Hour)) {
			t.Fatalf("unexpected session: %+v", result.Session)
		}
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		_, _, svc := seed(t)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{
			Email:    "dispatch@example.com",
			Password: "wrong",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects an unknown account without leaking existence", func(t *testing.T) {
		_, _, svc := seed(t)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{
			Email:    "ghost@example.com",
			Password: "whatever",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	reference := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := reference
	now := func() time.Time { return current }

	credentials := newCredentialStoreStub()
	sessions := newSessionRepoStub()
	svc := newTestAuthService(credentials, sessions, now)
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, "dispatch@example.com", "correct horse"); err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}
	result, err := svc.Authenticate(ctx, AuthenticateParams{Email: "dispatch@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	token := result.Session.Token

	t.Run("resolves a live token to an admin claim", func(t *testing.T) {
		claim, err := svc.ValidateSession(ctx, token)
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}
		if !claim.IsAdmin || claim.SubjectID != result.Admin.ID {
			t.Fatalf("unexpected claim: %+v", claim)
		}
	})

	t.Run("rejects unknown tokens", func(t *testing.T) {
		if _, err := svc.ValidateSession(ctx, "forged"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		current = reference.Add(2 * time.Hour)
		defer func() { current = reference }()

		if _, err := svc.ValidateSession(ctx, token); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects revoked tokens", func(t *testing.T) {
		if err := svc.RevokeSession(ctx, token); err != nil {
			t.Fatalf("RevokeSession failed: %v", err)
		}
		if _, err := svc.ValidateSession(ctx, token); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})
}

func TestAuthService_EnsureAdminIsIdempotent(t *testing.T) {
	now := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	credentials := newCredentialStoreStub()
	svc := newTestAuthService(credentials, newSessionRepoStub(), now)
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, "dispatch@example.com", "correct horse"); err != nil {
		t.Fatalf("first EnsureAdmin failed: %v", err)
	}
	if err := svc.EnsureAdmin(ctx, "dispatch@example.com", "different password"); err != nil {
		t.Fatalf("second EnsureAdmin failed: %v", err)
	}
	if len(credentials.admins) != 1 {
		t.Fatalf("expected a single admin account, got %d", len(credentials.admins))
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if err := VerifyPassword(hash, "correct horse"); err != nil {
		t.Fatalf("VerifyPassword rejected the right password: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := VerifyPassword("not-a-hash", "correct horse"); !errors.Is(err, ErrInvalidPasswordHash) {
		t.Fatalf("expected ErrInvalidPasswordHash, got %v", err)
	}
}
