package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
)

// GormSubscriptionRepository implements the SubscriptionRepository interface
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GORM subscription repository
func NewGormSubscriptionRepository(db *gorm.DB) repository.SubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// Subscriptions GORM model for database mapping
type Subscriptions struct {
	PassengerID  string `gorm:"primaryKey;column:passenger_id"`
	RouteID      string `gorm:"primaryKey;column:route_id;index"`
	Preference   string `gorm:"column:preference"`
	CheckpointID string `gorm:"column:checkpoint_id"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides the default table name
func (Subscriptions) TableName() string {
	return "t_subscriptions"
}

func (s Subscriptions) toEntity() *entity.Subscription {
	return &entity.Subscription{
		PassengerID:  s.PassengerID,
		RouteID:      s.RouteID,
		Preference:   entity.Preference(s.Preference),
		CheckpointID: s.CheckpointID,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// Find returns the subscription for the pair, or nil
func (r *GormSubscriptionRepository) Find(ctx context.Context, passengerID, routeID string) (*entity.Subscription, error) {
	var row Subscriptions
	err := r.db.WithContext(ctx).
		Where("passenger_id = ? AND route_id = ?", passengerID, routeID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return row.toEntity(), nil
}

// Upsert inserts or updates on the (passenger_id, route_id) key
func (r *GormSubscriptionRepository) Upsert(ctx context.Context, sub *entity.Subscription) error {
	row := Subscriptions{
		PassengerID:  sub.PassengerID,
		RouteID:      sub.RouteID,
		Preference:   string(sub.Preference),
		CheckpointID: sub.CheckpointID,
		CreatedAt:    sub.CreatedAt,
		UpdatedAt:    sub.UpdatedAt,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "passenger_id"}, {Name: "route_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"preference", "checkpoint_id", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

// Delete removes the subscription and reports how many rows went
func (r *GormSubscriptionRepository) Delete(ctx context.Context, passengerID, routeID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("passenger_id = ? AND route_id = ?", passengerID, routeID).
		Delete(&Subscriptions{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete subscription: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListByRoute returns every subscriber of a route
func (r *GormSubscriptionRepository) ListByRoute(ctx context.Context, routeID string) ([]*entity.Subscription, error) {
	return r.list(ctx, "route_id = ?", routeID)
}

// ListByPassenger returns every subscription of a passenger
func (r *GormSubscriptionRepository) ListByPassenger(ctx context.Context, passengerID string) ([]*entity.Subscription, error) {
	return r.list(ctx, "passenger_id = ?", passengerID)
}

func (r *GormSubscriptionRepository) list(ctx context.Context, query string, arg string) ([]*entity.Subscription, error) {
	var rows []Subscriptions
	err := r.db.WithContext(ctx).
		Where(query, arg).
		Order("route_id ASC, passenger_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	out := make([]*entity.Subscription, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}
