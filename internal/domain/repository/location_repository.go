package repository

import (
	"context"

	"jeeptrack-service/internal/domain/entity"
)

// LocationRepository persists DriverLocationRecords keyed by driver id.
// Implementations must be safe for concurrent use.
type LocationRepository interface {
	// Get returns nil, nil when the driver has no record.
	Get(ctx context.Context, driverID string) (*entity.DriverLocationRecord, error)
	// CompareAndSwap writes next if the stored version equals expectedVersion
	// (0 meaning "no record"). It returns entity.ErrStoreConflict otherwise.
	// On success next.Version holds the new version, which is never reused
	// for the driver, not even after Delete.
	CompareAndSwap(ctx context.Context, expectedVersion int64, next *entity.DriverLocationRecord) error
	// Delete removes the record if its version equals expectedVersion.
	Delete(ctx context.Context, driverID string, expectedVersion int64) error
	ListByRoute(ctx context.Context, routeID string) ([]*entity.DriverLocationRecord, error)
}
