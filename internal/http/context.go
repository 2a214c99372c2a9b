package http

import (
	"context"

	"github.com/example/emergency-alerts/internal/application"
)

type contextKey string

const (
	claimContextKey   contextKey = "claim"
	alertIDContextKey contextKey = "alert_id"
)

// ContextWithClaim returns a derived context containing the authenticated claim.
func ContextWithClaim(ctx context.Context, claim application.Claim) context.Context {
	return context.WithValue(ctx, claimContextKey, claim)
}

// ClaimFromContext extracts the authenticated claim from context if available.
func ClaimFromContext(ctx context.Context) (application.Claim, bool) {
	claim, ok := ctx.Value(claimContextKey).(application.Claim)
	return claim, ok
}

// ContextWithAlertID injects the alert identifier resolved from the request path.
func ContextWithAlertID(ctx context.Context, alertID string) context.Context {
	return context.WithValue(ctx, alertIDContextKey, alertID)
}

// AlertIDFromContext extracts an alert identifier previously associated with the context.
func AlertIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(alertIDContextKey).(string)
	return id, ok
}
