package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
)

// RedisSnapshotCache caches route snapshots for a short TTL
type RedisSnapshotCache struct {
	rdb *redis.Client
}

// NewRedisSnapshotCache creates a Redis-backed snapshot cache
func NewRedisSnapshotCache(rdb *redis.Client) repository.SnapshotCache {
	return &RedisSnapshotCache{rdb: rdb}
}

func snapshotKey(routeID string) string {
	return fmt.Sprintf("snapshot:route:%s", routeID)
}

// Get returns the cached snapshot or nil on a miss
func (c *RedisSnapshotCache) Get(ctx context.Context, routeID string) (*entity.RouteSnapshot, error) {
	raw, err := c.rdb.Get(ctx, snapshotKey(routeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap entity.RouteSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Set stores the snapshot for ttl
func (c *RedisSnapshotCache) Set(ctx context.Context, snapshot *entity.RouteSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, snapshotKey(snapshot.RouteID), data, ttl).Err()
}
