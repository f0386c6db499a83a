package usecase_test

import (
	"context"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
	"jeeptrack-service/internal/infrastructure/router"
	repo "jeeptrack-service/internal/interface/repository"
	"jeeptrack-service/internal/usecase"
	"jeeptrack-service/pkg/logger"
	"jeeptrack-service/pkg/metrics"
	"jeeptrack-service/templates"
)

var t0 = time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC)

// testDirectory has route r1: a(1) -5m-> b(2) -4m-> c(3) -6m-> d(4), and
// route r2: x(1) -> y(2).
func testDirectory(c *qt.C) repository.DirectoryRepository {
	dir, err := repo.NewMemoryDirectoryRepository(&repo.DirectoryDocument{
		Routes: []repo.RouteDocument{
			{
				ID:   "r1",
				Name: "Cubao - Divisoria",
				Checkpoints: []entity.Checkpoint{
					{ID: "a", Name: "Cubao", SequenceIndex: 1, SegmentDuration: 5 * time.Minute},
					{ID: "b", Name: "Legarda", SequenceIndex: 2, SegmentDuration: 4 * time.Minute},
					{ID: "c", Name: "Quiapo", SequenceIndex: 3, SegmentDuration: 6 * time.Minute},
					{ID: "d", Name: "Divisoria", SequenceIndex: 4},
				},
			},
			{
				ID:   "r2",
				Name: "Baclaran - Lawton",
				Checkpoints: []entity.Checkpoint{
					{ID: "x", Name: "Baclaran", SequenceIndex: 1, SegmentDuration: 10 * time.Minute},
					{ID: "y", Name: "Lawton", SequenceIndex: 2},
				},
			},
		},
		Drivers: []entity.Driver{
			{ID: "d1", Name: "Juan"},
			{ID: "d2", Name: "Maria"},
			{ID: "d3", Name: "Pedro"},
		},
		Jeepneys: []entity.Jeepney{
			{ID: "j1", Number: "TXY-101", Capacity: 18},
			{ID: "j2", Number: "TXY-102", Capacity: 18},
			{ID: "j3", Number: "TXY-103", Capacity: 20},
		},
	})
	c.Assert(err, qt.IsNil)
	return dir
}

type fixture struct {
	c             *qt.C
	ctx           context.Context
	clock         *testclock.Clock
	directory     repository.DirectoryRepository
	notifications repository.NotificationRepository
	store         *usecase.LocationStore
	registry      *usecase.SubscriptionRegistry
	dispatcher    *usecase.NotificationDispatcher
	ingestor      *usecase.ScanIngestor
	aggregator    *usecase.PollingAggregator
}

type fixtureOptions struct {
	suppressRescans bool
	anomalyPolicy   string
	queue           usecase.DeliveryQueue
	cache           repository.SnapshotCache
}

func newFixture(c *qt.C, opts ...func(*fixtureOptions)) *fixture {
	o := fixtureOptions{suppressRescans: true, anomalyPolicy: usecase.AnomalyReject}
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.NewNopLogger()
	m := metrics.NewNopMetrics()
	clk := testclock.NewClock(t0)
	dir := testDirectory(c)

	eventRouter := router.NewEventRouter(log)
	eventRouter.Register(templates.NewCheckpointAdvanceHandler())
	eventRouter.Register(templates.NewShiftEventHandler())

	notifications := repo.NewMemoryNotificationRepository()
	store := usecase.NewLocationStore(repo.NewMemoryLocationRepository(), clk, m, log)
	registry := usecase.NewSubscriptionRegistry(repo.NewMemorySubscriptionRepository(), dir, clk, log)
	dispatcher := usecase.NewNotificationDispatcher(notifications, registry, eventRouter, o.queue, clk, m, log)
	eta := usecase.NewETAEstimator(2*time.Minute, 25, 5*time.Minute)
	ingestor := usecase.NewScanIngestor(store, dir, usecase.NewChangeDetector(o.suppressRescans), eta, dispatcher, clk, m, log, usecase.IngestConfig{
		Budget:                 2 * time.Second,
		RestartMinBackwardJump: 2,
		RestartMinGap:          15 * time.Minute,
		AnomalyPolicy:          o.anomalyPolicy,
	})
	staleness := usecase.NewStalenessClassifier(2*time.Minute, 10*time.Minute, 30*time.Minute)
	aggregator := usecase.NewPollingAggregator(store, dir, eta, staleness, o.cache, 5*time.Second, clk, m, log)

	return &fixture{
		c:             c,
		ctx:           context.Background(),
		clock:         clk,
		directory:     dir,
		notifications: notifications,
		store:         store,
		registry:      registry,
		dispatcher:    dispatcher,
		ingestor:      ingestor,
		aggregator:    aggregator,
	}
}

func (f *fixture) subscribe(passengerID, routeID string, pref entity.Preference, checkpointID string) {
	_, err := f.registry.Subscribe(f.ctx, usecase.SubscribeRequest{
		PassengerID:  passengerID,
		RouteID:      routeID,
		Preference:   pref,
		CheckpointID: checkpointID,
	})
	f.c.Assert(err, qt.IsNil)
}

func (f *fixture) startShift(driverID, routeID, jeepneyID, checkpointID string) *entity.ScanResult {
	res, err := f.ingestor.StartShift(f.ctx, entity.ShiftStartRequest{
		DriverID:     driverID,
		RouteID:      routeID,
		JeepneyID:    jeepneyID,
		CheckpointID: checkpointID,
	})
	f.c.Assert(err, qt.IsNil)
	return res
}

func (f *fixture) scan(driverID, routeID, checkpointID string, at time.Time) (*entity.ScanResult, error) {
	return f.ingestor.Ingest(f.ctx, entity.ScanRequest{
		DriverID:     driverID,
		RouteID:      routeID,
		CheckpointID: checkpointID,
		Timestamp:    &at,
	})
}

func (f *fixture) mustScan(driverID, routeID, checkpointID string, at time.Time) *entity.ScanResult {
	res, err := f.scan(driverID, routeID, checkpointID, at)
	f.c.Assert(err, qt.IsNil)
	return res
}

func (f *fixture) history(passengerID string) *entity.NotificationPage {
	page, err := f.dispatcher.History(f.ctx, passengerID, 1, 100)
	f.c.Assert(err, qt.IsNil)
	return page
}

func countType(page *entity.NotificationPage, t entity.EventType) int {
	n := 0
	for _, item := range page.Items {
		if item.Type == t {
			n++
		}
	}
	return n
}
