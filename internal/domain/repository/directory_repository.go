package repository

import (
	"context"

	"jeeptrack-service/internal/domain/entity"
)

// DirectoryRepository is the read-only view of route/driver/jeepney reference
// data owned by the CRUD system. Lookups of unknown ids return a NotFound error.
type DirectoryRepository interface {
	GetDriver(ctx context.Context, id string) (*entity.Driver, error)
	GetJeepney(ctx context.Context, id string) (*entity.Jeepney, error)
	GetRoute(ctx context.Context, id string) (*entity.Route, error)
	GetCheckpoint(ctx context.Context, id string) (*entity.Checkpoint, error)
	GetCheckpointSequence(ctx context.Context, routeID string) (*entity.CheckpointSequence, error)
}
