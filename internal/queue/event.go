// Package queue defines message payloads exchanged over the message broker
// plus the publisher and background consumer for the notifications queue.
package queue

// Event types carried in NotificationEvent.Type.
const (
	EventReservationCreated   = "reservation_created"
	EventReservationCancelled = "reservation_cancelled"
)

// NotificationEvent is published to the notifications queue whenever a
// reservation is created or cancelled.  It contains enough denormalised
// information for downstream consumers to notify the user or log the change
// without querying the primary database.
type NotificationEvent struct {
	Type          string `json:"event_type"`
	UserID        uint64 `json:"user_id"`
	Username      string `json:"username"`
	ReservationID string `json:"reservation_id"`
	ResourceName  string `json:"resource_name"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Reason        string `json:"reason,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}
