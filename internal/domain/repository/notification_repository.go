package repository

import (
	"context"
	"time"

	"jeeptrack-service/internal/domain/entity"
)

// NotificationRepository is the append-only store of NotificationRecords.
type NotificationRepository interface {
	// CreateIfAbsent inserts record unless one with the same dedup key exists.
	// It reports whether the record was created.
	CreateIfAbsent(ctx context.Context, record *entity.NotificationRecord) (bool, error)
	FindByID(ctx context.Context, id string) (*entity.NotificationRecord, error)
	FindByPassenger(ctx context.Context, passengerID string, offset, limit int) ([]*entity.NotificationRecord, error)
	CountByPassenger(ctx context.Context, passengerID string) (total, unread int64, err error)
	// FindDue returns pending, non-abandoned records whose next attempt is due.
	FindDue(ctx context.Context, now time.Time, limit int) ([]*entity.NotificationRecord, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkRead(ctx context.Context, id string, readAt time.Time) error
	RecordDeliveryFailure(ctx context.Context, id string, attempts int, lastError string, nextAttemptAt time.Time, abandoned bool) error
}
