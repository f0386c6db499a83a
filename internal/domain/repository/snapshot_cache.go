package repository

import (
	"context"
	"time"

	"jeeptrack-service/internal/domain/entity"
)

// SnapshotCache holds recently computed route snapshots. Get returns nil, nil
// on a miss.
type SnapshotCache interface {
	Get(ctx context.Context, routeID string) (*entity.RouteSnapshot, error)
	Set(ctx context.Context, snapshot *entity.RouteSnapshot, ttl time.Duration) error
}
