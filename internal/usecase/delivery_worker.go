package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"
	"gopkg.in/tomb.v2"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
	"jeeptrack-service/pkg/logger"
	"jeeptrack-service/pkg/metrics"
)

const (
	sweepBatchSize = 100
	maxBackoff     = time.Hour
)

// DeliveryConfig tunes the DeliveryWorker.
type DeliveryConfig struct {
	Workers       int
	QueueSize     int
	SweepInterval time.Duration
	MaxAttempts   int
	BaseBackoff   time.Duration
	Timeout       time.Duration
}

// DeliveryWorker pushes pending notification records to the push transport.
// Fresh records arrive through a bounded queue; a periodic sweep picks up
// whatever the queue dropped and retries failures with exponential backoff.
// After MaxAttempts a record is abandoned but stays pending for polling.
type DeliveryWorker struct {
	tomb          tomb.Tomb
	notifications repository.NotificationRepository
	push          repository.PushRepository
	clock         clock.Clock
	metrics       *metrics.Metrics
	logger        logger.Logger
	cfg           DeliveryConfig
	queue         chan *entity.NotificationRecord

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewDeliveryWorker creates a worker; call Start to run it.
func NewDeliveryWorker(
	notifications repository.NotificationRepository,
	push repository.PushRepository,
	clk clock.Clock,
	m *metrics.Metrics,
	logger logger.Logger,
	cfg DeliveryConfig,
) *DeliveryWorker {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &DeliveryWorker{
		notifications: notifications,
		push:          push,
		clock:         clk,
		metrics:       m,
		logger:        logger,
		cfg:           cfg,
		queue:         make(chan *entity.NotificationRecord, cfg.QueueSize),
		inflight:      make(map[string]struct{}),
	}
}

// Start launches the delivery goroutines and the sweep loop.
func (w *DeliveryWorker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.tomb.Go(func() error {
		<-w.tomb.Dying()
		cancel()
		return nil
	})
	for i := 0; i < w.cfg.Workers; i++ {
		w.tomb.Go(func() error {
			return w.consume(ctx)
		})
	}
	if w.cfg.SweepInterval > 0 {
		w.tomb.Go(func() error {
			return w.sweepLoop(ctx)
		})
	}
	w.logger.Info("Delivery worker started",
		"workers", w.cfg.Workers,
		"queueSize", w.cfg.QueueSize,
		"sweepInterval", w.cfg.SweepInterval.String())
}

// Enqueue offers a record without blocking.
func (w *DeliveryWorker) Enqueue(record *entity.NotificationRecord) bool {
	select {
	case w.queue <- record:
		return true
	default:
		return false
	}
}

// SweepDelay keeps the sweep off freshly queued records for one interval.
func (w *DeliveryWorker) SweepDelay() time.Duration {
	return w.cfg.SweepInterval
}

// Kill asks the worker to stop.
func (w *DeliveryWorker) Kill() {
	w.tomb.Kill(nil)
}

// Wait blocks until every goroutine has returned.
func (w *DeliveryWorker) Wait() error {
	return w.tomb.Wait()
}

// Stop kills the worker and waits for it.
func (w *DeliveryWorker) Stop() error {
	w.Kill()
	return w.Wait()
}

func (w *DeliveryWorker) consume(ctx context.Context) error {
	for {
		select {
		case <-w.tomb.Dying():
			return tomb.ErrDying
		case record := <-w.queue:
			w.deliver(ctx, record)
		}
	}
}

func (w *DeliveryWorker) sweepLoop(ctx context.Context) error {
	for {
		select {
		case <-w.tomb.Dying():
			return tomb.ErrDying
		case <-w.clock.After(w.cfg.SweepInterval):
			if _, err := w.Sweep(ctx); err != nil {
				w.logger.Error("Delivery sweep failed", "error", err)
			}
		}
	}
}

// Sweep delivers due records synchronously and returns how many it tried.
func (w *DeliveryWorker) Sweep(ctx context.Context) (int, error) {
	due, err := w.notifications.FindDue(ctx, w.clock.Now(), sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find due notifications: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	w.logger.Debug("Sweeping pending notifications", "count", len(due))
	tried := 0
	for _, record := range due {
		if ctx.Err() != nil {
			break
		}
		if w.deliver(ctx, record) {
			tried++
		}
	}
	return tried, nil
}

// deliver reports false when another goroutine is already on the record or
// the stored record no longer needs sending.
func (w *DeliveryWorker) deliver(ctx context.Context, queued *entity.NotificationRecord) bool {
	if !w.claim(queued.ID) {
		return false
	}
	defer w.release(queued.ID)

	// The queue and the sweep can both hold a copy; only the stored status
	// says whether it still needs sending.
	record, err := w.notifications.FindByID(ctx, queued.ID)
	if err != nil {
		w.logger.Error("Failed to reload notification", "notificationId", queued.ID, "error", err)
		return false
	}
	if record.Status != entity.NotificationPending || record.DeliveryAbandoned {
		return false
	}

	msg := &entity.PushMessage{
		NotificationID: record.ID,
		PassengerID:    record.PassengerID,
		Title:          record.Title,
		Body:           record.Body,
		Data: map[string]string{
			"type":          string(record.Type),
			"route_id":      record.RouteID,
			"driver_id":     record.DriverID,
			"checkpoint_id": record.CheckpointID,
		},
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	_, err = w.push.Send(sendCtx, msg)
	cancel()

	if err == nil {
		if err := w.notifications.MarkSent(ctx, record.ID, w.clock.Now()); err != nil {
			w.logger.Error("Failed to mark notification sent", "notificationId", record.ID, "error", err)
		}
		w.metrics.Deliveries.WithLabelValues("sent").Inc()
		return true
	}

	attempts := record.DeliveryAttempts + 1
	abandoned := attempts >= w.cfg.MaxAttempts
	next := w.clock.Now().Add(w.backoff(attempts))
	reason := fmt.Errorf("%w: %v", entity.ErrDelivery, err).Error()

	if err := w.notifications.RecordDeliveryFailure(ctx, record.ID, attempts, reason, next, abandoned); err != nil {
		w.logger.Error("Failed to record delivery failure", "notificationId", record.ID, "error", err)
	}

	result := "failed"
	if abandoned {
		result = "abandoned"
	}
	w.metrics.Deliveries.WithLabelValues(result).Inc()
	w.logger.Warn("Push delivery failed",
		"notificationId", record.ID,
		"passengerId", record.PassengerID,
		"attempt", attempts,
		"abandoned", abandoned,
		"error", err)
	return true
}

// backoff doubles per attempt from BaseBackoff, capped at an hour.
func (w *DeliveryWorker) backoff(attempt int) time.Duration {
	d := w.cfg.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func (w *DeliveryWorker) claim(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inflight[id]; busy {
		return false
	}
	w.inflight[id] = struct{}{}
	return true
}

func (w *DeliveryWorker) release(id string) {
	w.mu.Lock()
	delete(w.inflight, id)
	w.mu.Unlock()
}
