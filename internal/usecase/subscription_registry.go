package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/juju/clock"
	"github.com/juju/errors"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
	"jeeptrack-service/pkg/logger"
)

// SubscribeRequest is the input of Subscribe and Unsubscribe.
type SubscribeRequest struct {
	PassengerID  string            `json:"passenger_id" validate:"required,max=64"`
	RouteID      string            `json:"route_id" validate:"required,max=64"`
	Preference   entity.Preference `json:"preference,omitempty"`
	CheckpointID string            `json:"checkpoint_id,omitempty" validate:"omitempty,max=64"`
}

// subscriberCacheTTL bounds how long another instance's writes to a shared
// repository stay invisible to this one.
const subscriberCacheTTL = 15 * time.Second

type cachedSubscribers struct {
	subs     []*entity.Subscription
	loadedAt time.Time
}

// SubscriptionRegistry owns route subscriptions. Reads are served from a
// short-lived per-route cache that local writes invalidate.
type SubscriptionRegistry struct {
	repo      repository.SubscriptionRepository
	directory repository.DirectoryRepository
	validate  *validator.Validate
	clock     clock.Clock
	logger    logger.Logger

	mu         sync.RWMutex
	cache      map[string]cachedSubscribers
	generation map[string]uint64
}

// NewSubscriptionRegistry creates a new subscription registry
func NewSubscriptionRegistry(
	repo repository.SubscriptionRepository,
	directory repository.DirectoryRepository,
	clk clock.Clock,
	logger logger.Logger,
) *SubscriptionRegistry {
	return &SubscriptionRegistry{
		repo:       repo,
		directory:  directory,
		validate:   validator.New(),
		clock:      clk,
		logger:     logger,
		cache:      make(map[string]cachedSubscribers),
		generation: make(map[string]uint64),
	}
}

// Subscribe creates or updates the passenger's subscription to a route. An
// identical repeat is a no-op and returns the stored record.
func (r *SubscriptionRegistry) Subscribe(ctx context.Context, req SubscribeRequest) (*entity.Subscription, error) {
	if err := r.validate.Struct(req); err != nil {
		return nil, errors.NotValidf("subscription: %v", err)
	}
	if req.Preference == "" {
		req.Preference = entity.PreferenceAll
	}
	if !req.Preference.Valid() {
		return nil, errors.NotValidf("preference %q", req.Preference)
	}

	seq, err := r.directory.GetCheckpointSequence(ctx, req.RouteID)
	if err != nil {
		return nil, err
	}
	if req.CheckpointID != "" {
		if _, ok := seq.Find(req.CheckpointID); !ok {
			if _, err := r.directory.GetCheckpoint(ctx, req.CheckpointID); err != nil {
				return nil, err
			}
			return nil, errors.Annotatef(entity.ErrInvalidCheckpoint, "checkpoint %q on route %q", req.CheckpointID, req.RouteID)
		}
	}

	now := r.clock.Now()
	wanted := &entity.Subscription{
		PassengerID:  req.PassengerID,
		RouteID:      req.RouteID,
		Preference:   req.Preference,
		CheckpointID: req.CheckpointID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	existing, err := r.repo.Find(ctx, req.PassengerID, req.RouteID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.SameAs(wanted) {
			return existing, nil
		}
		wanted.CreatedAt = existing.CreatedAt
	}

	if err := r.repo.Upsert(ctx, wanted); err != nil {
		return nil, err
	}
	r.invalidate(req.RouteID)

	r.logger.Info("Subscription saved",
		"passengerId", req.PassengerID,
		"routeId", req.RouteID,
		"preference", req.Preference,
		"checkpointId", req.CheckpointID)
	return wanted, nil
}

// Unsubscribe removes the one subscription of the passenger on the route.
func (r *SubscriptionRegistry) Unsubscribe(ctx context.Context, passengerID, routeID string) error {
	if passengerID == "" || routeID == "" {
		return errors.NotValidf("passenger_id and route_id")
	}
	n, err := r.repo.Delete(ctx, passengerID, routeID)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFoundf("subscription of %q to route %q", passengerID, routeID)
	}
	r.invalidate(routeID)
	return nil
}

// ListSubscribers returns every subscription on the route.
func (r *SubscriptionRegistry) ListSubscribers(ctx context.Context, routeID string) ([]*entity.Subscription, error) {
	now := r.clock.Now()
	r.mu.RLock()
	cached, ok := r.cache[routeID]
	gen := r.generation[routeID]
	r.mu.RUnlock()
	if ok && now.Sub(cached.loadedAt) < subscriberCacheTTL {
		return cached.subs, nil
	}

	subs, err := r.repo.ListByRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	// A write that landed while loading makes this read stale; skip caching.
	r.mu.Lock()
	if r.generation[routeID] == gen {
		r.cache[routeID] = cachedSubscribers{subs: subs, loadedAt: now}
	}
	r.mu.Unlock()
	return subs, nil
}

// ListByPassenger returns the passenger's subscriptions across routes.
func (r *SubscriptionRegistry) ListByPassenger(ctx context.Context, passengerID string) ([]*entity.Subscription, error) {
	return r.repo.ListByPassenger(ctx, passengerID)
}

// MatchSubscribers narrows the route's subscribers to those who want event.
//
// "all" receives everything; with a checkpoint filter, only events at or
// before that checkpoint. "arrivals_only" receives checkpoint advances; with
// a filter, only the arrival at that checkpoint.
func (r *SubscriptionRegistry) MatchSubscribers(ctx context.Context, event *entity.Event) ([]*entity.Subscription, error) {
	subs, err := r.ListSubscribers(ctx, event.Route.ID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}

	var filterSeq *entity.CheckpointSequence
	matched := make([]*entity.Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.CheckpointID != "" && filterSeq == nil && event.Type != entity.EventShiftEnd {
			if filterSeq, err = r.directory.GetCheckpointSequence(ctx, event.Route.ID); err != nil {
				return nil, err
			}
		}
		if matches(sub, event, filterSeq) {
			matched = append(matched, sub)
		}
	}
	return matched, nil
}

func matches(sub *entity.Subscription, event *entity.Event, seq *entity.CheckpointSequence) bool {
	switch sub.Preference {
	case entity.PreferenceArrivalsOnly:
		if event.Type != entity.EventCheckpointAdvance {
			return false
		}
		return sub.CheckpointID == "" || sub.CheckpointID == event.Checkpoint.ID
	default:
		if sub.CheckpointID == "" || event.Type == entity.EventShiftEnd {
			return true
		}
		if event.Checkpoint.ID == "" {
			// Shift start without a checkpoint: the jeepney has not reached
			// anything yet, so it is still before the point of interest.
			return true
		}
		interest, ok := seq.Find(sub.CheckpointID)
		if !ok {
			return false
		}
		return event.Checkpoint.SequenceIndex <= interest.SequenceIndex
	}
}

func (r *SubscriptionRegistry) invalidate(routeID string) {
	r.mu.Lock()
	delete(r.cache, routeID)
	r.generation[routeID]++
	r.mu.Unlock()
}
