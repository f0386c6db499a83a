package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/juju/errors"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
)

// MemoryNotificationRepository keeps notification records in process memory.
// Records are never removed.
type MemoryNotificationRepository struct {
	mu      sync.RWMutex
	records map[string]*entity.NotificationRecord
	byDedup map[string]string
	order   []string
}

// NewMemoryNotificationRepository creates an empty notification repository
func NewMemoryNotificationRepository() repository.NotificationRepository {
	return &MemoryNotificationRepository{
		records: make(map[string]*entity.NotificationRecord),
		byDedup: make(map[string]string),
	}
}

func cloneNotification(n *entity.NotificationRecord) *entity.NotificationRecord {
	c := *n
	if n.Payload != nil {
		c.Payload = make(map[string]interface{}, len(n.Payload))
		for k, v := range n.Payload {
			c.Payload[k] = v
		}
	}
	return &c
}

func (r *MemoryNotificationRepository) CreateIfAbsent(ctx context.Context, record *entity.NotificationRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byDedup[record.DedupKey]; exists {
		return false, nil
	}
	r.records[record.ID] = cloneNotification(record)
	r.byDedup[record.DedupKey] = record.ID
	r.order = append(r.order, record.ID)
	return true, nil
}

func (r *MemoryNotificationRepository) FindByID(ctx context.Context, id string) (*entity.NotificationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.records[id]
	if !ok {
		return nil, errors.NotFoundf("notification %q", id)
	}
	return cloneNotification(n), nil
}

// FindByPassenger pages newest first
func (r *MemoryNotificationRepository) FindByPassenger(ctx context.Context, passengerID string, offset, limit int) ([]*entity.NotificationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var mine []*entity.NotificationRecord
	for i := len(r.order) - 1; i >= 0; i-- {
		n := r.records[r.order[i]]
		if n.PassengerID == passengerID {
			mine = append(mine, n)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })

	if offset >= len(mine) {
		return []*entity.NotificationRecord{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(mine) {
		end = len(mine)
	}
	out := make([]*entity.NotificationRecord, 0, end-offset)
	for _, n := range mine[offset:end] {
		out = append(out, cloneNotification(n))
	}
	return out, nil
}

func (r *MemoryNotificationRepository) CountByPassenger(ctx context.Context, passengerID string) (int64, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total, unread int64
	for _, n := range r.records {
		if n.PassengerID != passengerID {
			continue
		}
		total++
		if n.Status != entity.NotificationRead {
			unread++
		}
	}
	return total, unread, nil
}

// FindDue returns pending records ordered by next attempt time
func (r *MemoryNotificationRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*entity.NotificationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var due []*entity.NotificationRecord
	for _, n := range r.records {
		if n.Status == entity.NotificationPending && !n.DeliveryAbandoned && !n.NextAttemptAt.After(now) {
			due = append(due, cloneNotification(n))
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(due[j].NextAttemptAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// MarkSent only moves pending records; a record already read stays read.
func (r *MemoryNotificationRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.records[id]
	if !ok {
		return errors.NotFoundf("notification %q", id)
	}
	if n.SentAt == nil {
		t := sentAt
		n.SentAt = &t
	}
	if n.Status == entity.NotificationPending {
		n.Status = entity.NotificationSent
	}
	return nil
}

func (r *MemoryNotificationRepository) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.records[id]
	if !ok {
		return errors.NotFoundf("notification %q", id)
	}
	if n.Status == entity.NotificationRead {
		return nil
	}
	t := readAt
	n.Status = entity.NotificationRead
	n.ReadAt = &t
	return nil
}

func (r *MemoryNotificationRepository) RecordDeliveryFailure(ctx context.Context, id string, attempts int, lastError string, nextAttemptAt time.Time, abandoned bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.records[id]
	if !ok {
		return errors.NotFoundf("notification %q", id)
	}
	n.DeliveryAttempts = attempts
	n.LastDeliveryError = lastError
	n.NextAttemptAt = nextAttemptAt
	n.DeliveryAbandoned = abandoned
	return nil
}
