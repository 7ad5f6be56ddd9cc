// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// AuthEventsQueue is the durable queue auth lifecycle events are sent to.
const AuthEventsQueue = "auth.events"

// Event types published by the auth and user services.
const (
	EventUserRegistered   = "user.registered"
	EventUserLoggedIn     = "user.logged_in"
	EventSessionRefreshed = "session.refreshed"
	EventSessionLoggedOut = "session.logged_out"
	EventSessionsRevoked  = "sessions.revoked_all"
	EventUserDeleted      = "user.deleted"
)

// AuthEvent is published whenever a session or account changes state.
// It carries enough context for audit logging without querying the
// primary database.  Token values are never included.
type AuthEvent struct {
	Type       string `json:"type"`
	UserID     string `json:"user_id,omitempty"`
	Email      string `json:"email,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
