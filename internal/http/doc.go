// Package http provides HTTP handlers and middleware for the alert API.
//
// The router exposes the following endpoints:
//   - POST /alerts: reports a new alert. Body: {"category","description","position"?}.
//     Responds 201 with {"alert":{...}}; position is omitted from responses when the
//     incident location is unknown. Reporters are anonymous.
//   - GET /alerts?category=&from=&to=: lists non-expired alerts newest first. Time
//     bounds are RFC 3339.
//   - PATCH /alerts/{id}/resolve: resolves an alert. Requires an admin session token
//     via the Authorization header or the session cookie; 401 for a missing or invalid
//     token, 403 for a non-admin claim, 404 for an unknown or expired alert. Resolving
//     an already resolved alert returns its current record unchanged.
//   - GET /alerts/stream: WebSocket event stream. The client should send one opening
//     frame, {"last_versions":{id:version}} or {} for a full snapshot; the server
//     replays the catch-up batch and then pushes {"kind","alert"} events until either
//     side disconnects. A later frame carrying last_versions triggers a fresh resync.
//   - POST /login: issues an admin session token. Body: {"email","password"}. The
//     token is returned in the body and also surfaced via the `X-Session-Token` header
//     and a `session_token` cookie.
//   - POST /logout: revokes the caller's session token and clears the cookie.
//   - GET /healthz: liveness plus a store ping; 503 when the store is unreachable.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
