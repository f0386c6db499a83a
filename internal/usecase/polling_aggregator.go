package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"golang.org/x/sync/singleflight"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
	"jeeptrack-service/pkg/logger"
	"jeeptrack-service/pkg/metrics"
)

const notYetScanned = "Not yet scanned"

// PollingAggregator assembles read-only route snapshots for polling clients.
// Concurrent polls of one route share a single computation; an optional
// cache may serve a snapshot for a few seconds.
type PollingAggregator struct {
	store     *LocationStore
	directory repository.DirectoryRepository
	eta       *ETAEstimator
	staleness *StalenessClassifier
	cache     repository.SnapshotCache
	cacheTTL  time.Duration
	group     singleflight.Group
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    logger.Logger
}

// NewPollingAggregator creates a new aggregator; cache may be nil.
func NewPollingAggregator(
	store *LocationStore,
	directory repository.DirectoryRepository,
	eta *ETAEstimator,
	staleness *StalenessClassifier,
	cache repository.SnapshotCache,
	cacheTTL time.Duration,
	clk clock.Clock,
	m *metrics.Metrics,
	logger logger.Logger,
) *PollingAggregator {
	return &PollingAggregator{
		store:     store,
		directory: directory,
		eta:       eta,
		staleness: staleness,
		cache:     cache,
		cacheTTL:  cacheTTL,
		clock:     clk,
		metrics:   m,
		logger:    logger,
	}
}

// GetRouteSnapshot lists the active drivers of a route. Drivers past the
// hard staleness cutoff are counted but never listed.
func (a *PollingAggregator) GetRouteSnapshot(ctx context.Context, routeID string) (*entity.RouteSnapshot, error) {
	route, err := a.directory.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}

	if a.cache != nil && a.cacheTTL > 0 {
		cached, err := a.cache.Get(ctx, routeID)
		if err != nil {
			a.logger.Warn("Snapshot cache read failed", "routeId", routeID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	v, err, _ := a.group.Do(routeID, func() (interface{}, error) {
		return a.build(ctx, route)
	})
	if err != nil {
		return nil, err
	}
	snapshot := v.(*entity.RouteSnapshot)

	if a.cache != nil && a.cacheTTL > 0 {
		if err := a.cache.Set(ctx, snapshot, a.cacheTTL); err != nil {
			a.logger.Warn("Snapshot cache write failed", "routeId", routeID, "error", err)
		}
	}
	return snapshot, nil
}

func (a *PollingAggregator) build(ctx context.Context, route *entity.Route) (*entity.RouteSnapshot, error) {
	started := time.Now()
	defer func() {
		a.metrics.SnapshotDuration.Observe(time.Since(started).Seconds())
	}()

	seq, err := a.directory.GetCheckpointSequence(ctx, route.ID)
	if err != nil {
		return nil, err
	}
	records, err := a.store.ListActiveByRoute(ctx, route.ID)
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	snapshot := &entity.RouteSnapshot{
		RouteID:     route.ID,
		RouteName:   route.Name,
		GeneratedAt: now,
		Vehicles:    make([]entity.VehicleStatus, 0, len(records)),
	}

	for _, rec := range records {
		age := now.Sub(rec.ScanTimestamp)
		if a.staleness.HardStale(age) {
			snapshot.ExcludedStale++
			continue
		}
		snapshot.Vehicles = append(snapshot.Vehicles, a.vehicle(ctx, rec, seq, age, now))
	}

	sort.SliceStable(snapshot.Vehicles, func(i, j int) bool {
		vi, vj := snapshot.Vehicles[i], snapshot.Vehicles[j]
		if vi.SequenceIndex != vj.SequenceIndex {
			return vi.SequenceIndex > vj.SequenceIndex
		}
		return vi.DriverID < vj.DriverID
	})
	return snapshot, nil
}

func (a *PollingAggregator) vehicle(ctx context.Context, rec *entity.DriverLocationRecord, seq *entity.CheckpointSequence, age time.Duration, now time.Time) entity.VehicleStatus {
	status := a.staleness.Classify(age)
	minutes := int(age / time.Minute)
	if minutes < 0 {
		minutes = 0
	}

	v := entity.VehicleStatus{
		DriverID:              rec.DriverID,
		JeepneyID:             rec.JeepneyID,
		JeepneyNumber:         rec.JeepneyID,
		CurrentCheckpointID:   rec.CheckpointID,
		CurrentCheckpointName: notYetScanned,
		SequenceIndex:         rec.SequenceIndex,
		Status:                status,
		StatusColor:           a.staleness.Color(status),
		ShiftStatus:           string(rec.ShiftStatus),
		LastUpdate:            rec.ScanTimestamp,
		LastUpdateFormatted:   humanize.RelTime(rec.ScanTimestamp, now, "ago", "from now"),
		MinutesSinceUpdate:    minutes,
		PassengerCount:        rec.PassengerCount,
	}

	if driver, err := a.directory.GetDriver(ctx, rec.DriverID); err == nil {
		v.DriverName = driver.Name
	}
	if jeep, err := a.directory.GetJeepney(ctx, rec.JeepneyID); err == nil {
		v.JeepneyNumber = jeep.Number
	}
	if cp, ok := seq.Find(rec.CheckpointID); ok {
		v.CurrentCheckpointName = cp.Name
	}
	if next, ok := seq.Next(rec.SequenceIndex); ok {
		v.NextCheckpointName = next.Name
	}
	if w, ok := a.eta.NextCheckpoint(seq, rec.SequenceIndex); ok {
		v.NextCheckpointETA = w.String()
	}
	return v
}

// RouteETA estimates the window between two sequence indexes of a route. A
// zero target means the checkpoint right after from.
func (a *PollingAggregator) RouteETA(ctx context.Context, routeID string, from, to int) (ETAWindow, error) {
	seq, err := a.directory.GetCheckpointSequence(ctx, routeID)
	if err != nil {
		return ETAWindow{}, err
	}
	if to == 0 {
		next, ok := seq.Next(from)
		if !ok || seq.IndexOf(from) < 0 {
			return ETAWindow{}, errors.NotValidf("no checkpoint after sequence %d", from)
		}
		to = next.SequenceIndex
	}
	return a.eta.ToTarget(seq, from, to)
}
