package repository

import (
	"context"

	"jeeptrack-service/internal/domain/entity"
)

// SubscriptionRepository stores subscriptions, unique per passenger and route.
type SubscriptionRepository interface {
	// Find returns nil, nil when no subscription exists.
	Find(ctx context.Context, passengerID, routeID string) (*entity.Subscription, error)
	Upsert(ctx context.Context, sub *entity.Subscription) error
	// Delete returns the number of removed records.
	Delete(ctx context.Context, passengerID, routeID string) (int64, error)
	ListByRoute(ctx context.Context, routeID string) ([]*entity.Subscription, error)
	ListByPassenger(ctx context.Context, passengerID string) ([]*entity.Subscription, error)
}
