package repository

import (
	"context"

	"jeeptrack-service/internal/domain/entity"
)

// PushRepository sends a message to a push transport and returns the
// transport's message id.
type PushRepository interface {
	Send(ctx context.Context, msg *entity.PushMessage) (string, error)
}
