package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the alert service.
type Config struct {
	HTTPPort        int
	SQLiteDSN       string
	RetentionWindow time.Duration
	SessionTTL      time.Duration
	StreamQueueSize int
	AdminEmail      string
	AdminPassword   string
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// the rest, accumulating every missing or invalid entry into a single error.
// The bootstrap admin account is optional, but email and password must be
// provided together.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:alerts.db?_foreign_keys=on",
		RetentionWindow: 7 * 24 * time.Hour,
		SessionTTL:      24 * time.Hour,
		StreamQueueSize: 64,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("ALERTS_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "ALERTS_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ALERTS_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if windowValue := strings.TrimSpace(os.Getenv("ALERTS_RETENTION_WINDOW")); windowValue != "" {
		window, err := time.ParseDuration(windowValue)
		if err != nil || window <= 0 {
			invalid = append(invalid, "ALERTS_RETENTION_WINDOW")
		} else {
			cfg.RetentionWindow = window
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("ALERTS_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "ALERTS_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if sizeValue := strings.TrimSpace(os.Getenv("ALERTS_STREAM_QUEUE_SIZE")); sizeValue != "" {
		size, err := strconv.Atoi(sizeValue)
		if err != nil || size <= 0 {
			invalid = append(invalid, "ALERTS_STREAM_QUEUE_SIZE")
		} else {
			cfg.StreamQueueSize = size
		}
	}

	cfg.AdminEmail = strings.TrimSpace(strings.ToLower(os.Getenv("ALERTS_ADMIN_EMAIL")))
	cfg.AdminPassword = os.Getenv("ALERTS_ADMIN_PASSWORD")
	if cfg.AdminEmail != "" && cfg.AdminPassword == "" {
		missing = append(missing, "ALERTS_ADMIN_PASSWORD")
	}
	if cfg.AdminPassword != "" && cfg.AdminEmail == "" {
		missing = append(missing, "ALERTS_ADMIN_EMAIL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables carry invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
