package repository

import (
	"context"
	"time"

	"github.com/juju/errors"
	"gorm.io/gorm"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
)

// GormDirectoryRepository reads reference data from the tables owned by the
// CRUD backend.
type GormDirectoryRepository struct {
	db *gorm.DB
}

// NewGormDirectoryRepository creates a new GORM directory repository
func NewGormDirectoryRepository(db *gorm.DB) repository.DirectoryRepository {
	return &GormDirectoryRepository{db: db}
}

// Routes GORM model for database mapping
type Routes struct {
	ID        string `gorm:"primaryKey;column:id"`
	Name      string `gorm:"column:name"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (Routes) TableName() string {
	return "m_routes"
}

// Checkpoints GORM model for database mapping
type Checkpoints struct {
	ID             string `gorm:"primaryKey;column:id"`
	RouteID        string `gorm:"column:route_id;index"`
	Name           string `gorm:"column:name"`
	SequenceIndex  int    `gorm:"column:sequence_index"`
	SegmentSeconds int    `gorm:"column:segment_seconds"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName overrides the default table name
func (Checkpoints) TableName() string {
	return "m_checkpoints"
}

func (c Checkpoints) toEntity() entity.Checkpoint {
	return entity.Checkpoint{
		ID:              c.ID,
		RouteID:         c.RouteID,
		Name:            c.Name,
		SequenceIndex:   c.SequenceIndex,
		SegmentDuration: time.Duration(c.SegmentSeconds) * time.Second,
	}
}

// Drivers GORM model for database mapping
type Drivers struct {
	ID        string `gorm:"primaryKey;column:id"`
	Name      string `gorm:"column:name"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (Drivers) TableName() string {
	return "m_drivers"
}

// Jeepneys GORM model for database mapping
type Jeepneys struct {
	ID        string `gorm:"primaryKey;column:id"`
	Number    string `gorm:"column:number;unique"`
	Capacity  int    `gorm:"column:capacity"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (Jeepneys) TableName() string {
	return "m_jeepneys"
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFoundf(format, args...)
	}
	return errors.Annotatef(err, format, args...)
}

// GetDriver finds a driver by id
func (r *GormDirectoryRepository) GetDriver(ctx context.Context, id string) (*entity.Driver, error) {
	var d Drivers
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, notFound(err, "driver %q", id)
	}
	return &entity.Driver{ID: d.ID, Name: d.Name}, nil
}

// GetJeepney finds a jeepney by id
func (r *GormDirectoryRepository) GetJeepney(ctx context.Context, id string) (*entity.Jeepney, error) {
	var j Jeepneys
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&j).Error; err != nil {
		return nil, notFound(err, "jeepney %q", id)
	}
	return &entity.Jeepney{ID: j.ID, Number: j.Number, Capacity: j.Capacity}, nil
}

// GetRoute finds a route by id
func (r *GormDirectoryRepository) GetRoute(ctx context.Context, id string) (*entity.Route, error) {
	var rt Routes
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rt).Error; err != nil {
		return nil, notFound(err, "route %q", id)
	}
	return &entity.Route{ID: rt.ID, Name: rt.Name}, nil
}

// GetCheckpoint finds a checkpoint by id
func (r *GormDirectoryRepository) GetCheckpoint(ctx context.Context, id string) (*entity.Checkpoint, error) {
	var cp Checkpoints
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&cp).Error; err != nil {
		return nil, notFound(err, "checkpoint %q", id)
	}
	e := cp.toEntity()
	return &e, nil
}

// GetCheckpointSequence loads a route's checkpoints ordered by sequence
func (r *GormDirectoryRepository) GetCheckpointSequence(ctx context.Context, routeID string) (*entity.CheckpointSequence, error) {
	if _, err := r.GetRoute(ctx, routeID); err != nil {
		return nil, err
	}

	var rows []Checkpoints
	err := r.db.WithContext(ctx).
		Where("route_id = ?", routeID).
		Order("sequence_index ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Annotatef(err, "checkpoints of route %q", routeID)
	}

	seq := &entity.CheckpointSequence{RouteID: routeID}
	for _, row := range rows {
		seq.Checkpoints = append(seq.Checkpoints, row.toEntity())
	}
	return seq, nil
}
