package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered EventType = "account_registered"
	EventLoginSucceeded    EventType = "login_succeeded"
	EventLoginFailed       EventType = "login_failed"
)

// Event represents an audit event emitted by the auth flows.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Username  string      `json:"username"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// AccountRegisteredPayload payload.
type AccountRegisteredPayload struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

// LoginSucceededPayload payload.
type LoginSucceededPayload struct {
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginFailedPayload payload. The reason stays in internal logs and the
// audit trail; it is never part of the response returned to the caller.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}
