// Package audit records who changed what. Events are append-only and keyed
// by the user they concern.
package audit

import (
	"context"
	"time"
)

// Action names an audited change.
type Action string

const (
	ActionUserCreated  Action = "user_created"
	ActionUserDeleted  Action = "user_deleted"
	ActionLoginFailed  Action = "login_failed"
	ActionLoggedOut    Action = "logged_out"
	ActionPointCreated Action = "point_created"
	ActionPointDeleted Action = "point_deleted"
)

// Event is emitted from domain logic. Keep it transport-agnostic.
type Event struct {
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	// Subject is the affected resource, e.g. a point id.
	Subject   string `json:"subject,omitempty"`
	Email     string `json:"email,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	// ActorID is set when someone other than UserID performed the action.
	ActorID string `json:"actor_id,omitempty"`
}

// Store persists events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID string) ([]Event, error)
}

// Emitter is what services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
