package usecase

import (
	"jeeptrack-service/internal/domain/entity"
)

// Rendered is the passenger-facing content of one notification.
type Rendered struct {
	Title   string
	Body    string
	Payload map[string]interface{}
}

// TemplateHandler defines the interface for notification templates
type TemplateHandler interface {
	// CanHandle determines if this handler renders the given event type
	CanHandle(eventType entity.EventType) bool

	// Render produces the notification content for the event
	Render(event *entity.Event) Rendered
}

// EventRouter routes events to the appropriate template handler
type EventRouter interface {
	// Register registers a handler
	Register(handler TemplateHandler)

	// GetHandler returns the first handler accepting the event type
	GetHandler(eventType entity.EventType) TemplateHandler
}
