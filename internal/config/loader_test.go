package config

import (
	"os"
	"testing"
	"time"
)

func TestLoader_ParseEnvironment(t *testing.T) {
	clearEnv := func(t *testing.T) {
		t.Helper()
		for _, key := range []string{
			"ALERTS_HTTP_PORT",
			"ALERTS_SQLITE_DSN",
			"ALERTS_RETENTION_WINDOW",
			"ALERTS_SESSION_TTL",
			"ALERTS_STREAM_QUEUE_SIZE",
			"ALERTS_ADMIN_EMAIL",
			"ALERTS_ADMIN_PASSWORD",
		} {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}
	}

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:alerts.db?_foreign_keys=on" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.RetentionWindow != 7*24*time.Hour {
			t.Fatalf("expected a seven day retention window, got %s", cfg.RetentionWindow)
		}
		if cfg.StreamQueueSize != 64 {
			t.Fatalf("expected default stream queue size 64, got %d", cfg.StreamQueueSize)
		}
		if cfg.AdminEmail != "" || cfg.AdminPassword != "" {
			t.Fatalf("expected no bootstrap admin by default")
		}
	})

	t.Run("parses duration and numeric fields", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ALERTS_HTTP_PORT", "9090")
		t.Setenv("ALERTS_SQLITE_DSN", "file:/tmp/alerts.db")
		t.Setenv("ALERTS_RETENTION_WINDOW", "48h")
		t.Setenv("ALERTS_SESSION_TTL", "1h")
		t.Setenv("ALERTS_STREAM_QUEUE_SIZE", "128")
		t.Setenv("ALERTS_ADMIN_EMAIL", "Dispatch@Example.com")
		t.Setenv("ALERTS_ADMIN_PASSWORD", "correct horse")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:/tmp/alerts.db" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.RetentionWindow != 48*time.Hour {
			t.Fatalf("expected a 48h retention window, got %s", cfg.RetentionWindow)
		}
		if cfg.SessionTTL != time.Hour {
			t.Fatalf("expected session TTL 1h, got %s", cfg.SessionTTL)
		}
		if cfg.StreamQueueSize != 128 {
			t.Fatalf("expected stream queue size 128, got %d", cfg.StreamQueueSize)
		}
		if cfg.AdminEmail != "dispatch@example.com" {
			t.Fatalf("expected the admin email to be lowercased, got %q", cfg.AdminEmail)
		}
	})

	t.Run("errors when the bootstrap admin is half configured", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ALERTS_ADMIN_EMAIL", "dispatch@example.com")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected an error for a missing admin password")
		}
		expected := "required environment variables are not set: ALERTS_ADMIN_PASSWORD"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("accumulates invalid values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ALERTS_HTTP_PORT", "not-a-port")
		t.Setenv("ALERTS_RETENTION_WINDOW", "-1h")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected an error for invalid values")
		}
		expected := "environment variables carry invalid values: ALERTS_HTTP_PORT, ALERTS_RETENTION_WINDOW"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})
}
