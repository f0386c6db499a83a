package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/errors"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
	"jeeptrack-service/pkg/logger"
	"jeeptrack-service/pkg/metrics"
	"jeeptrack-service/pkg/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// DeliveryQueue accepts freshly created records for push delivery. Enqueue
// must not block; a false return leaves the record to the sweep.
type DeliveryQueue interface {
	Enqueue(record *entity.NotificationRecord) bool
	// SweepDelay is how long a queued record is left to the queue before
	// the sweep may pick it up.
	SweepDelay() time.Duration
}

// NotificationDispatcher turns events into durable, deduplicated records,
// one per matching subscriber, and hands them to delivery.
type NotificationDispatcher struct {
	notifications repository.NotificationRepository
	registry      *SubscriptionRegistry
	router        EventRouter
	queue         DeliveryQueue
	clock         clock.Clock
	metrics       *metrics.Metrics
	logger        logger.Logger
}

// NewNotificationDispatcher creates a new dispatcher. queue may be nil, in
// which case records wait for polling or an external sweep.
func NewNotificationDispatcher(
	notifications repository.NotificationRepository,
	registry *SubscriptionRegistry,
	router EventRouter,
	queue DeliveryQueue,
	clk clock.Clock,
	m *metrics.Metrics,
	logger logger.Logger,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		notifications: notifications,
		registry:      registry,
		router:        router,
		queue:         queue,
		clock:         clk,
		metrics:       m,
		logger:        logger,
	}
}

// EventDedupKey identifies one real-world crossing for one passenger. The
// trip epoch separates laps and shifts; re-scans also carry their timestamp
// so each deliberate re-scan is its own event.
func EventDedupKey(event *entity.Event, passengerID string) string {
	rec := event.Current
	if rec == nil {
		rec = event.Previous
	}
	epoch := fmt.Sprintf("%d:%s", rec.TripEpoch, event.Type)
	if event.Rescan {
		epoch += ":" + strconv.FormatInt(rec.ScanTimestamp.UnixNano(), 10)
	}
	return utils.DedupKey(rec.DriverID, event.Checkpoint.ID, passengerID, epoch)
}

// Dispatch creates a record for every matching subscriber and returns the
// ones that did not exist yet. Redispatching the same event creates nothing.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, event *entity.Event) ([]*entity.NotificationRecord, error) {
	if event.Current == nil && event.Previous == nil {
		return nil, errors.NotValidf("event without driver state")
	}

	subs, err := d.registry.MatchSubscribers(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to match subscribers: %w", err)
	}
	if len(subs) == 0 {
		return nil, nil
	}

	content := d.render(event)
	driverID := event.Driver.ID
	if event.Current != nil {
		driverID = event.Current.DriverID
	} else if event.Previous != nil {
		driverID = event.Previous.DriverID
	}

	now := d.clock.Now()
	due := now
	if d.queue != nil {
		due = now.Add(d.queue.SweepDelay())
	}
	var created []*entity.NotificationRecord
	for _, sub := range subs {
		record := &entity.NotificationRecord{
			ID:            uuid.NewString(),
			PassengerID:   sub.PassengerID,
			DriverID:      driverID,
			RouteID:       event.Route.ID,
			CheckpointID:  event.Checkpoint.ID,
			DedupKey:      EventDedupKey(event, sub.PassengerID),
			Type:          event.Type,
			Title:         content.Title,
			Body:          content.Body,
			Payload:       content.Payload,
			Status:        entity.NotificationPending,
			CreatedAt:     now,
			NextAttemptAt: due,
		}

		ok, err := d.notifications.CreateIfAbsent(ctx, record)
		if err != nil {
			d.metrics.ErrorsCount.WithLabelValues("dispatch").Inc()
			return created, fmt.Errorf("failed to create notification for %s: %w", sub.PassengerID, err)
		}
		if !ok {
			continue
		}
		created = append(created, record)
		d.metrics.NotificationsCreated.WithLabelValues(string(event.Type)).Inc()
	}

	for _, record := range created {
		if d.queue == nil {
			break
		}
		if !d.queue.Enqueue(record) {
			d.metrics.DeliveryQueueDropped.Inc()
		}
	}

	if len(created) > 0 {
		d.logger.Info("Notifications created",
			"type", event.Type,
			"routeId", event.Route.ID,
			"driverId", driverID,
			"checkpointId", event.Checkpoint.ID,
			"count", len(created))
	}
	return created, nil
}

func (d *NotificationDispatcher) render(event *entity.Event) Rendered {
	if d.router != nil {
		if handler := d.router.GetHandler(event.Type); handler != nil {
			return handler.Render(event)
		}
	}
	d.logger.Warn("No template for event type", "type", event.Type)
	return Rendered{
		Title: fmt.Sprintf("Route %s update", event.Route.Name),
		Body:  string(event.Type),
	}
}

// History returns one page (1-based) of a passenger's notifications, newest
// first, with total and unread counts.
func (d *NotificationDispatcher) History(ctx context.Context, passengerID string, page, pageSize int) (*entity.NotificationPage, error) {
	if passengerID == "" {
		return nil, errors.NotValidf("empty passenger id")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, err := d.notifications.FindByPassenger(ctx, passengerID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	total, unread, err := d.notifications.CountByPassenger(ctx, passengerID)
	if err != nil {
		return nil, err
	}
	return &entity.NotificationPage{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Unread:   unread,
	}, nil
}

// MarkRead marks the passenger's own notification as read. Other passengers'
// records are reported as not found.
func (d *NotificationDispatcher) MarkRead(ctx context.Context, passengerID, notificationID string) (*entity.NotificationRecord, error) {
	record, err := d.notifications.FindByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if record.PassengerID != passengerID {
		return nil, errors.NotFoundf("notification %q", notificationID)
	}
	if record.Status == entity.NotificationRead {
		return record, nil
	}

	now := d.clock.Now()
	if err := d.notifications.MarkRead(ctx, notificationID, now); err != nil {
		return nil, err
	}
	record.Status = entity.NotificationRead
	record.ReadAt = &now
	return record, nil
}
