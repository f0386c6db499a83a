package repository

import (
	"context"
	"sort"
	"sync"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
)

// MemoryLocationRepository keeps location records in process memory.
// Readers share an RWMutex so lookups on different drivers run in parallel.
type MemoryLocationRepository struct {
	mu       sync.RWMutex
	records  map[string]*entity.DriverLocationRecord
	versions map[string]int64 // last issued, kept across deletes
}

// NewMemoryLocationRepository creates an empty in-memory location repository
func NewMemoryLocationRepository() repository.LocationRepository {
	return &MemoryLocationRepository{
		records:  make(map[string]*entity.DriverLocationRecord),
		versions: make(map[string]int64),
	}
}

// Get returns a copy of the driver's record
func (r *MemoryLocationRepository) Get(ctx context.Context, driverID string) (*entity.DriverLocationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records[driverID].Clone(), nil
}

// CompareAndSwap stores next when the stored version matches
func (r *MemoryLocationRepository) CompareAndSwap(ctx context.Context, expectedVersion int64, next *entity.DriverLocationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if currentVersion(r.records[next.DriverID]) != expectedVersion {
		return entity.ErrStoreConflict
	}
	next.Version = r.versions[next.DriverID] + 1
	r.versions[next.DriverID] = next.Version
	r.records[next.DriverID] = next.Clone()
	return nil
}

// Delete removes the record when the stored version matches
func (r *MemoryLocationRepository) Delete(ctx context.Context, driverID string, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if currentVersion(r.records[driverID]) != expectedVersion {
		return entity.ErrStoreConflict
	}
	delete(r.records, driverID)
	return nil
}

// ListByRoute returns every record on the route ordered by driver id
func (r *MemoryLocationRepository) ListByRoute(ctx context.Context, routeID string) ([]*entity.DriverLocationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.DriverLocationRecord
	for _, rec := range r.records {
		if rec.RouteID == routeID {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out, nil
}

func currentVersion(rec *entity.DriverLocationRecord) int64 {
	if rec == nil {
		return 0
	}
	return rec.Version
}
