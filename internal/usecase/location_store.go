package usecase

import (
	"context"
	"time"

	"github.com/im7mortal/kmutex"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
	"jeeptrack-service/pkg/logger"
	"jeeptrack-service/pkg/metrics"
)

const (
	storeRetryAttempts = 5
	storeRetryDelay    = 10 * time.Millisecond
)

// UpdateFunc computes the next record from the current one (nil when the
// driver has none). Returning write=false leaves the store untouched;
// write=true with a nil record deletes it.
type UpdateFunc func(current *entity.DriverLocationRecord) (next *entity.DriverLocationRecord, write bool, err error)

// LocationStore serializes writes per driver and retries optimistic write
// conflicts with a fresh read. Reads never take the driver lock.
type LocationStore struct {
	repo    repository.LocationRepository
	locks   *kmutex.Kmutex
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  logger.Logger
}

// NewLocationStore creates a new location store
func NewLocationStore(repo repository.LocationRepository, clk clock.Clock, m *metrics.Metrics, log logger.Logger) *LocationStore {
	return &LocationStore{
		repo:    repo,
		locks:   kmutex.New(),
		clock:   clk,
		metrics: m,
		logger:  log,
	}
}

// Get returns the driver's record, or nil when off shift.
func (s *LocationStore) Get(ctx context.Context, driverID string) (*entity.DriverLocationRecord, error) {
	return s.repo.Get(ctx, driverID)
}

// ListActiveByRoute returns the on-shift drivers of a route.
func (s *LocationStore) ListActiveByRoute(ctx context.Context, routeID string) ([]*entity.DriverLocationRecord, error) {
	all, err := s.repo.ListByRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	active := make([]*entity.DriverLocationRecord, 0, len(all))
	for _, rec := range all {
		if rec.OnShift() {
			active = append(active, rec)
		}
	}
	return active, nil
}

// Update applies fn under the driver's lock and returns the records before
// and after. When fn declines to write, next equals previous.
func (s *LocationStore) Update(ctx context.Context, driverID string, fn UpdateFunc) (previous, next *entity.DriverLocationRecord, err error) {
	s.locks.Lock(driverID)
	defer s.locks.Unlock(driverID)

	err = retry.Call(retry.CallArgs{
		Func: func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			current, err := s.repo.Get(ctx, driverID)
			if err != nil {
				return err
			}
			previous = current.Clone()

			candidate, write, err := fn(current)
			if err != nil {
				return err
			}
			if !write {
				next = previous.Clone()
				return nil
			}

			version := int64(0)
			if current != nil {
				version = current.Version
			}
			if candidate == nil {
				next = nil
				return s.repo.Delete(ctx, driverID, version)
			}

			candidate.DriverID = driverID
			candidate.UpdatedAt = s.clock.Now()
			if err := s.repo.CompareAndSwap(ctx, version, candidate); err != nil {
				return err
			}
			next = candidate.Clone()
			return nil
		},
		IsFatalError: func(err error) bool {
			return !errors.Is(err, entity.ErrStoreConflict)
		},
		NotifyFunc: func(err error, attempt int) {
			s.metrics.StoreConflicts.Inc()
			s.logger.Debug("Location write conflict, retrying", "driverId", driverID, "attempt", attempt)
		},
		Attempts: storeRetryAttempts,
		Delay:    storeRetryDelay,
		// Conflict retries are real millisecond waits; a test clock that
		// nobody advances would hang them.
		Clock:    clock.WallClock,
	})
	if err != nil {
		if retry.IsAttemptsExceeded(err) {
			return nil, nil, retry.LastError(err)
		}
		return nil, nil, err
	}
	return previous, next, nil
}

// Delete clears the driver's record regardless of its content.
func (s *LocationStore) Delete(ctx context.Context, driverID string) (*entity.DriverLocationRecord, error) {
	previous, _, err := s.Update(ctx, driverID, func(current *entity.DriverLocationRecord) (*entity.DriverLocationRecord, bool, error) {
		return nil, current != nil, nil
	})
	return previous, err
}
