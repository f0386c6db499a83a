package router

import (
	"fmt"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/usecase"
	"jeeptrack-service/pkg/logger"
)

// EventRouter routes notification events to template handlers by type
type EventRouter struct {
	handlers []usecase.TemplateHandler
	logger   logger.Logger
}

// NewEventRouter creates a new event router
func NewEventRouter(logger logger.Logger) *EventRouter {
	return &EventRouter{
		handlers: make([]usecase.TemplateHandler, 0),
		logger:   logger,
	}
}

// Register registers a handler; earlier registrations win
func (r *EventRouter) Register(handler usecase.TemplateHandler) {
	r.handlers = append(r.handlers, handler)
	r.logger.Info("Registered template handler", "handler", fmt.Sprintf("%T", handler))
}

// GetHandler returns the appropriate handler for a given event type
func (r *EventRouter) GetHandler(eventType entity.EventType) usecase.TemplateHandler {
	for _, handler := range r.handlers {
		if handler.CanHandle(eventType) {
			return handler
		}
	}
	return nil
}
