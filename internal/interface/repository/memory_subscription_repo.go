package repository

import (
	"context"
	"sort"
	"sync"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
)

type subscriptionKey struct {
	passengerID string
	routeID     string
}

// MemorySubscriptionRepository keeps subscriptions in process memory
type MemorySubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[subscriptionKey]entity.Subscription
}

// NewMemorySubscriptionRepository creates an empty subscription repository
func NewMemorySubscriptionRepository() repository.SubscriptionRepository {
	return &MemorySubscriptionRepository{
		subs: make(map[subscriptionKey]entity.Subscription),
	}
}

func (r *MemorySubscriptionRepository) Find(ctx context.Context, passengerID, routeID string) (*entity.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subs[subscriptionKey{passengerID, routeID}]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Upsert keeps the original CreatedAt of an existing subscription
func (r *MemorySubscriptionRepository) Upsert(ctx context.Context, sub *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := subscriptionKey{sub.PassengerID, sub.RouteID}
	next := *sub
	if existing, ok := r.subs[key]; ok {
		next.CreatedAt = existing.CreatedAt
	}
	r.subs[key] = next
	return nil
}

func (r *MemorySubscriptionRepository) Delete(ctx context.Context, passengerID, routeID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := subscriptionKey{passengerID, routeID}
	if _, ok := r.subs[key]; !ok {
		return 0, nil
	}
	delete(r.subs, key)
	return 1, nil
}

func (r *MemorySubscriptionRepository) ListByRoute(ctx context.Context, routeID string) ([]*entity.Subscription, error) {
	return r.list(func(s entity.Subscription) bool { return s.RouteID == routeID }), nil
}

func (r *MemorySubscriptionRepository) ListByPassenger(ctx context.Context, passengerID string) ([]*entity.Subscription, error) {
	return r.list(func(s entity.Subscription) bool { return s.PassengerID == passengerID }), nil
}

func (r *MemorySubscriptionRepository) list(match func(entity.Subscription) bool) []*entity.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Subscription
	for _, s := range r.subs {
		if match(s) {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RouteID != out[j].RouteID {
			return out[i].RouteID < out[j].RouteID
		}
		return out[i].PassengerID < out[j].PassengerID
	})
	return out
}
