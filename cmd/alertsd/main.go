package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/emergency-alerts/internal/application"
	"github.com/example/emergency-alerts/internal/broadcast"
	"github.com/example/emergency-alerts/internal/config"
	httptransport "github.com/example/emergency-alerts/internal/http"
	"github.com/example/emergency-alerts/internal/persistence"
	"github.com/example/emergency-alerts/internal/persistence/sqlite"
	"github.com/example/emergency-alerts/internal/retention"
	"github.com/example/emergency-alerts/internal/sequence"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(db); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	alertStore := sqlite.NewAlertRepository(db)
	adminStore := sqlite.NewAdminRepository(db)
	sessionStore := sqlite.NewSessionRepository(db)

	alertRepo := newAlertRepositoryAdapter(alertStore, now)
	credentialStore := newCredentialStoreAdapter(adminStore)
	sessionRepo := newSessionRepositoryAdapter(sessionStore)

	broadcaster := broadcast.New(cfg.StreamQueueSize, logger)
	sequencer := sequence.New()

	alertService := application.NewAlertServiceWithLogger(alertRepo, broadcaster, sequencer, idGenerator, now, cfg.RetentionWindow, logger)
	authService := application.NewAuthServiceWithLogger(credentialStore, sessionRepo, idGenerator, tokenGenerator, now, cfg.SessionTTL, logger)

	if cfg.AdminEmail != "" {
		if err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Error("failed to bootstrap admin account", "error", err)
			os.Exit(1)
		}
	}

	reaper := retention.New(reaperStore{alerts: alertStore, sessions: sessionStore}, now, logger)
	reaper.Start()
	defer reaper.Stop()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(authService, logger),
		Alerts:       httptransport.NewAlertHandler(alertService, logger),
		Stream:       httptransport.NewStreamHandler(alertService, broadcaster, idGenerator, logger),
		Health:       httptransport.NewHealthHandler(db, logger),
		SessionGuard: httptransport.RequireSession(authService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("alert API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// reaperStore combines the two purge surfaces behind the retention.Store
// interface.
type reaperStore struct {
	alerts   persistence.AlertRepository
	sessions persistence.SessionRepository
}

func (s reaperStore) PurgeExpiredAlerts(ctx context.Context, now time.Time) (int64, error) {
	return s.alerts.PurgeExpiredAlerts(ctx, now)
}

func (s reaperStore) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return s.sessions.DeleteExpiredSessions(ctx, reference)
}

// alertRepositoryAdapter translates between the application's alert model and
// the persistence layer, injecting the wall clock expiry reference on reads.
type alertRepositoryAdapter struct {
	repo persistence.AlertRepository
	now  func() time.Time
}

func newAlertRepositoryAdapter(repo persistence.AlertRepository, now func() time.Time) *alertRepositoryAdapter {
	if now == nil {
		now = time.Now
	}
	return &alertRepositoryAdapter{repo: repo, now: now}
}

func (a *alertRepositoryAdapter) CreateAlert(ctx context.Context, alert application.Alert) error {
	return a.repo.CreateAlert(ctx, toPersistenceAlert(alert))
}

func (a *alertRepositoryAdapter) GetAlert(ctx context.Context, id string) (application.Alert, error) {
	stored, err := a.repo.GetAlert(ctx, id, a.now().UTC())
	if err != nil {
		return application.Alert{}, err
	}
	return toApplicationAlert(stored), nil
}

func (a *alertRepositoryAdapter) MarkResolved(ctx context.Context, id string, resolvedAt time.Time, version int64) (bool, error) {
	return a.repo.MarkResolved(ctx, id, resolvedAt, version)
}

func (a *alertRepositoryAdapter) ListAlerts(ctx context.Context, filter application.QueryFilter) ([]application.Alert, error) {
	models, err := a.repo.ListAlerts(ctx, persistence.AlertFilter{
		Category: filter.Category,
		From:     filter.From,
		To:       filter.To,
	}, a.now().UTC())
	if err != nil {
		return nil, err
	}
	return toApplicationAlerts(models), nil
}

func (a *alertRepositoryAdapter) ListChangedSince(ctx context.Context, version int64) ([]application.Alert, error) {
	models, err := a.repo.ListChangedSince(ctx, version, a.now().UTC())
	if err != nil {
		return nil, err
	}
	return toApplicationAlerts(models), nil
}

type credentialStoreAdapter struct {
	repo persistence.AdminRepository
}

func newCredentialStoreAdapter(repo persistence.AdminRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetAdminCredentialsByEmail(ctx context.Context, email string) (application.AdminCredentials, error) {
	stored, err := a.repo.GetAdminByEmail(ctx, email)
	if err != nil {
		return application.AdminCredentials{}, err
	}
	return application.AdminCredentials{
		Admin:        toApplicationAdmin(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (a *credentialStoreAdapter) GetAdmin(ctx context.Context, id string) (application.Admin, error) {
	stored, err := a.repo.GetAdmin(ctx, id)
	if err != nil {
		return application.Admin{}, err
	}
	return toApplicationAdmin(stored), nil
}

func (a *credentialStoreAdapter) CreateAdmin(ctx context.Context, admin application.Admin, passwordHash string) (application.Admin, error) {
	model := persistence.Admin{
		ID:           admin.ID,
		Email:        admin.Email,
		PasswordHash: passwordHash,
		CreatedAt:    admin.CreatedAt,
		UpdatedAt:    admin.UpdatedAt,
	}
	if err := a.repo.CreateAdmin(ctx, model); err != nil {
		return application.Admin{}, err
	}
	return admin, nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

func toPersistenceAlert(alert application.Alert) persistence.Alert {
	model := persistence.Alert{
		ID:          alert.ID,
		Category:    string(alert.Category),
		Description: alert.Description,
		Status:      string(alert.Status),
		Version:     alert.Version,
		CreatedAt:   alert.CreatedAt,
		ResolvedAt:  cloneTime(alert.ResolvedAt),
		ExpiresAt:   alert.ExpiresAt,
	}
	if alert.Position != nil {
		lat, lng := alert.Position.Latitude, alert.Position.Longitude
		model.Latitude = &lat
		model.Longitude = &lng
	}
	return model
}

func toApplicationAlert(model persistence.Alert) application.Alert {
	alert := application.Alert{
		ID:          model.ID,
		Category:    application.Category(model.Category),
		Description: model.Description,
		Status:      application.Status(model.Status),
		Version:     model.Version,
		CreatedAt:   model.CreatedAt,
		ResolvedAt:  cloneTime(model.ResolvedAt),
		ExpiresAt:   model.ExpiresAt,
	}
	if model.Latitude != nil && model.Longitude != nil {
		alert.Position = &application.Position{Latitude: *model.Latitude, Longitude: *model.Longitude}
	}
	return alert
}

func toApplicationAlerts(models []persistence.Alert) []application.Alert {
	if len(models) == 0 {
		return nil
	}
	alerts := make([]application.Alert, 0, len(models))
	for _, model := range models {
		alerts = append(alerts, toApplicationAlert(model))
	}
	return alerts
}

func toApplicationAdmin(model persistence.Admin) application.Admin {
	return application.Admin{
		ID:        model.ID,
		Email:     model.Email,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		AdminID:   session.AdminID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		AdminID:   model.AdminID,
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
