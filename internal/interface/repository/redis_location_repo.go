package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
)

// RedisLocationRepository stores one JSON document per driver and a set of
// driver ids per route. Writes use WATCH/MULTI so a concurrent writer from
// another instance surfaces as entity.ErrStoreConflict. The last issued
// version lives in its own key that Delete leaves alone, so a new shift never
// reuses a version from the previous one.
type RedisLocationRepository struct {
	rdb *redis.Client
}

// NewRedisLocationRepository creates a Redis-backed location repository
func NewRedisLocationRepository(rdb *redis.Client) repository.LocationRepository {
	return &RedisLocationRepository{rdb: rdb}
}

func locationKey(driverID string) string {
	return fmt.Sprintf("location:driver:%s", driverID)
}

func versionKey(driverID string) string {
	return fmt.Sprintf("location:version:%s", driverID)
}

func routeDriversKey(routeID string) string {
	return fmt.Sprintf("location:route:%s", routeID)
}

// Get loads the driver's record
func (r *RedisLocationRepository) Get(ctx context.Context, driverID string) (*entity.DriverLocationRecord, error) {
	raw, err := r.rdb.Get(ctx, locationKey(driverID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read location: %w", err)
	}
	return decodeLocation(raw)
}

// CompareAndSwap writes next inside an optimistic transaction
func (r *RedisLocationRepository) CompareAndSwap(ctx context.Context, expectedVersion int64, next *entity.DriverLocationRecord) error {
	key := locationKey(next.DriverID)
	vkey := versionKey(next.DriverID)
	var issued int64

	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.load(ctx, tx, key)
		if err != nil {
			return err
		}
		if currentVersion(current) != expectedVersion {
			return entity.ErrStoreConflict
		}
		last, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to read location version: %w", err)
		}
		if v := currentVersion(current); v > last {
			last = v
		}

		record := *next
		record.Version = last + 1
		data, err := json.Marshal(&record)
		if err != nil {
			return fmt.Errorf("failed to marshal location: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.Set(ctx, vkey, record.Version, 0)
			if current != nil && current.RouteID != next.RouteID {
				pipe.SRem(ctx, routeDriversKey(current.RouteID), next.DriverID)
			}
			pipe.SAdd(ctx, routeDriversKey(next.RouteID), next.DriverID)
			return nil
		})
		if err == nil {
			issued = record.Version
		}
		return err
	}, key, vkey)
	if err := translateTxError(err); err != nil {
		return err
	}
	next.Version = issued
	return nil
}

// Delete removes the driver's record and its route membership
func (r *RedisLocationRepository) Delete(ctx context.Context, driverID string, expectedVersion int64) error {
	key := locationKey(driverID)
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.load(ctx, tx, key)
		if err != nil {
			return err
		}
		if currentVersion(current) != expectedVersion {
			return entity.ErrStoreConflict
		}
		if current == nil {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, routeDriversKey(current.RouteID), driverID)
			return nil
		})
		return err
	}, key)
	return translateTxError(err)
}

// ListByRoute loads every record registered on the route
func (r *RedisLocationRepository) ListByRoute(ctx context.Context, routeID string) ([]*entity.DriverLocationRecord, error) {
	ids, err := r.rdb.SMembers(ctx, routeDriversKey(routeID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list route drivers: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = locationKey(id)
	}
	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load route drivers: %w", err)
	}

	var out []*entity.DriverLocationRecord
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		rec, err := decodeLocation([]byte(s))
		if err != nil {
			return nil, err
		}
		// Membership sets are cleaned lazily; trust the record itself.
		if rec.RouteID == routeID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out, nil
}

func (r *RedisLocationRepository) load(ctx context.Context, tx *redis.Tx, key string) (*entity.DriverLocationRecord, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read location: %w", err)
	}
	return decodeLocation(raw)
}

func decodeLocation(raw []byte) (*entity.DriverLocationRecord, error) {
	var rec entity.DriverLocationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode location: %w", err)
	}
	return &rec, nil
}

func translateTxError(err error) error {
	if errors.Is(err, redis.TxFailedErr) {
		return entity.ErrStoreConflict
	}
	return err
}
