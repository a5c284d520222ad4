// Package notifier is the broadcast channel port: fire-and-forget emits to
// connected UI clients addressed by user room.
package notifier

import (
	"context"
	"time"
)

// Notification is the record emitted to a user room. Source is always
// "workflow" for engine-originated notifications.
type Notification struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Priority  string    `json:"priority"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// Notifier emits an event to a room. Implementations are safe for concurrent
// use; emission is best effort.
type Notifier interface {
	Emit(ctx context.Context, room, event string, payload any) error
}

// UserRoom is the room naming convention for per-user delivery.
func UserRoom(userID string) string {
	return "user:" + userID
}
