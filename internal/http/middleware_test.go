package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/emergency-alerts/internal/application"
	"github.com/example/emergency-alerts/internal/logging"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	var sawContextLogger bool
	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawContextLogger = logging.FromContext(r.Context()) != nil
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alerts", nil))

	if !sawContextLogger {
		t.Fatalf("expected the request logger to be attached to the context")
	}
	logs := buf.String()
	if !strings.Contains(logs, "request started") || !strings.Contains(logs, "request completed") {
		t.Fatalf("expected lifecycle log lines, got: %s", logs)
	}
	if !strings.Contains(logs, "/alerts") {
		t.Fatalf("expected the request path in log attributes, got: %s", logs)
	}
}

func TestRequireSession(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claim, ok := ClaimFromContext(r.Context())
		if !ok || !claim.IsAdmin {
			t.Fatalf("expected an admin claim in the context, got %+v", claim)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("passes a valid claim through", func(t *testing.T) {
		guard := RequireSession(adminValidator("token-1", application.Claim{SubjectID: "admin-1", IsAdmin: true}), nil)

		req := httptest.NewRequest(http.MethodPatch, "/alerts/alert-1/resolve", nil)
		req.Header.Set("Authorization", "Bearer token-1")
		rec := httptest.NewRecorder()
		guard(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected the wrapped handler to run, got %d", rec.Code)
		}
	})

	t.Run("accepts the token from the session cookie", func(t *testing.T) {
		guard := RequireSession(adminValidator("token-1", application.Claim{SubjectID: "admin-1", IsAdmin: true}), nil)

		req := httptest.NewRequest(http.MethodPatch, "/alerts/alert-1/resolve", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "token-1"})
		rec := httptest.NewRecorder()
		guard(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected the wrapped handler to run, got %d", rec.Code)
		}
	})

	t.Run("rejects an expired session with 401", func(t *testing.T) {
		validator := &sessionValidatorStub{validateFn: func(ctx context.Context, token string) (application.Claim, error) {
			return application.Claim{}, application.ErrSessionExpired
		}}
		guard := RequireSession(validator, nil)

		req := httptest.NewRequest(http.MethodPatch, "/alerts/alert-1/resolve", nil)
		req.Header.Set("Authorization", "Bearer token-1")
		rec := httptest.NewRecorder()
		guard(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "AUTH_SESSION_EXPIRED") {
			t.Fatalf("expected the expiry error code, got: %s", rec.Body.String())
		}
	})
}
