package entity

import (
	"time"
)

// EventType classifies a notification-worthy state transition.
type EventType string

const (
	EventCheckpointAdvance EventType = "checkpoint_advance"
	EventShiftStart        EventType = "shift_start"
	EventShiftEnd          EventType = "shift_end"
)

// Notification status
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationRead    = "read"
)

// NotificationRecord is the durable, append-only record of one notification
// to one passenger. Only the status and delivery bookkeeping ever change.
type NotificationRecord struct {
	ID           string                 `json:"id" bson:"_id"`
	PassengerID  string                 `json:"passenger_id" bson:"passengerId"`
	DriverID     string                 `json:"driver_id" bson:"driverId"`
	RouteID      string                 `json:"route_id" bson:"routeId"`
	CheckpointID string                 `json:"checkpoint_id" bson:"checkpointId"`
	DedupKey     string                 `json:"dedup_key" bson:"dedupKey"`
	Type         EventType              `json:"type" bson:"type"`
	Title        string                 `json:"title" bson:"title"`
	Body         string                 `json:"body" bson:"body"`
	Payload      map[string]interface{} `json:"payload,omitempty" bson:"payload,omitempty"`
	Status       string                 `json:"status" bson:"status"`
	CreatedAt    time.Time              `json:"created_at" bson:"createdAt"`
	SentAt       *time.Time             `json:"sent_at,omitempty" bson:"sentAt,omitempty"`
	ReadAt       *time.Time             `json:"read_at,omitempty" bson:"readAt,omitempty"`

	DeliveryAttempts  int       `json:"delivery_attempts" bson:"deliveryAttempts"`
	LastDeliveryError string    `json:"last_delivery_error,omitempty" bson:"lastDeliveryError,omitempty"`
	NextAttemptAt     time.Time `json:"next_attempt_at" bson:"nextAttemptAt"`
	DeliveryAbandoned bool      `json:"delivery_abandoned" bson:"deliveryAbandoned"`
}

// NotificationPage is one page of a passenger's notification history.
type NotificationPage struct {
	Items    []*NotificationRecord `json:"items"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	Total    int64                 `json:"total"`
	Unread   int64                 `json:"unread"`
}
