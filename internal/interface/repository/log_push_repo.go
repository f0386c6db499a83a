package repository

import (
	"context"

	"github.com/google/uuid"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
	"jeeptrack-service/pkg/logger"
)

// LogPushRepository only logs messages. Used when no push transport is set,
// so records still move to sent and history stays consistent.
type LogPushRepository struct {
	logger logger.Logger
}

func NewLogPushRepository(logger logger.Logger) repository.PushRepository {
	return &LogPushRepository{logger: logger}
}

func (r *LogPushRepository) Send(ctx context.Context, msg *entity.PushMessage) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	r.logger.Info("Push (log only)",
		"messageId", id,
		"passengerId", msg.PassengerID,
		"title", msg.Title)
	return id, nil
}
