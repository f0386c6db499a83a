package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/juju/clock"
	"github.com/juju/errors"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
	"jeeptrack-service/pkg/logger"
	"jeeptrack-service/pkg/metrics"
	"jeeptrack-service/pkg/utils"
)

// Anomaly policies
const (
	AnomalyReject  = "reject"
	AnomalyRestart = "restart"
)

// IngestConfig tunes scan acceptance.
type IngestConfig struct {
	Budget                 time.Duration
	RestartMinBackwardJump int
	RestartMinGap          time.Duration
	AnomalyPolicy          string
}

// ScanIngestor validates scans and shift changes and applies them to the
// location store. Notify-worthy transitions are fanned out before returning.
type ScanIngestor struct {
	store      *LocationStore
	directory  repository.DirectoryRepository
	detector   *ChangeDetector
	eta        *ETAEstimator
	dispatcher *NotificationDispatcher
	validate   *validator.Validate
	clock      clock.Clock
	metrics    *metrics.Metrics
	logger     logger.Logger
	cfg        IngestConfig
}

// NewScanIngestor creates a new scan ingestor
func NewScanIngestor(
	store *LocationStore,
	directory repository.DirectoryRepository,
	detector *ChangeDetector,
	eta *ETAEstimator,
	dispatcher *NotificationDispatcher,
	clk clock.Clock,
	m *metrics.Metrics,
	logger logger.Logger,
	cfg IngestConfig,
) *ScanIngestor {
	if cfg.AnomalyPolicy == "" {
		cfg.AnomalyPolicy = AnomalyReject
	}
	return &ScanIngestor{
		store:      store,
		directory:  directory,
		detector:   detector,
		eta:        eta,
		dispatcher: dispatcher,
		validate:   validator.New(),
		clock:      clk,
		metrics:    m,
		logger:     logger,
		cfg:        cfg,
	}
}

func (s *ScanIngestor) withBudget(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Budget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Budget)
}

func (s *ScanIngestor) observe(outcome string, started time.Time, err error) {
	s.metrics.IngestDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		s.metrics.ErrorsCount.WithLabelValues("ingest").Inc()
		return
	}
	s.metrics.ScansIngested.WithLabelValues(outcome).Inc()
}

// Ingest applies one checkpoint scan.
func (s *ScanIngestor) Ingest(ctx context.Context, req entity.ScanRequest) (result *entity.ScanResult, err error) {
	started := time.Now()
	defer func() {
		outcome := ""
		if result != nil {
			outcome = result.Outcome
		}
		s.observe(outcome, started, err)
	}()

	req.DriverID = utils.NormalizeID(req.DriverID)
	req.RouteID = utils.NormalizeID(req.RouteID)
	req.CheckpointID = utils.NormalizeID(req.CheckpointID)
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.NotValidf("scan: %v", err)
	}

	ctx, cancel := s.withBudget(ctx)
	defer cancel()

	driver, err := s.directory.GetDriver(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	route, err := s.directory.GetRoute(ctx, req.RouteID)
	if err != nil {
		return nil, err
	}
	if _, err := s.directory.GetCheckpoint(ctx, req.CheckpointID); err != nil {
		return nil, err
	}
	seq, err := s.directory.GetCheckpointSequence(ctx, req.RouteID)
	if err != nil {
		return nil, err
	}
	checkpoint, ok := seq.Find(req.CheckpointID)
	if !ok {
		return nil, errors.Annotatef(entity.ErrInvalidCheckpoint, "checkpoint %q on route %q", req.CheckpointID, req.RouteID)
	}

	ts := s.clock.Now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	var outcome string
	previous, next, err := s.store.Update(ctx, req.DriverID, func(current *entity.DriverLocationRecord) (*entity.DriverLocationRecord, bool, error) {
		if !current.OnShift() {
			return nil, false, errors.Annotatef(entity.ErrRejected, "driver %q is off shift", req.DriverID)
		}
		if current.RouteID != req.RouteID {
			return nil, false, errors.Annotatef(entity.ErrRejected, "driver %q is on shift for route %q", req.DriverID, current.RouteID)
		}

		var err error
		outcome, err = s.classify(current, seq, checkpoint, ts)
		if err != nil {
			return nil, false, err
		}
		if outcome == entity.OutcomeDuplicate || outcome == entity.OutcomeOutOfOrder {
			return nil, false, nil
		}

		next := current.Clone()
		next.CheckpointID = checkpoint.ID
		next.SequenceIndex = checkpoint.SequenceIndex
		next.ScanTimestamp = ts
		if req.PassengerCount != nil {
			n := *req.PassengerCount
			next.PassengerCount = &n
		}
		if outcome == entity.OutcomeRestart {
			next.TripEpoch++
		}
		return next, true, nil
	})
	if err != nil {
		if errors.Is(err, entity.ErrSequenceAnomaly) {
			s.logger.Warn("Scan rejected as sequence anomaly",
				"driverId", req.DriverID,
				"routeId", req.RouteID,
				"checkpointId", req.CheckpointID,
				"error", err)
		}
		return nil, err
	}

	result = &entity.ScanResult{
		Previous: previous,
		Current:  next,
		Outcome:  outcome,
	}
	if w, ok := s.eta.NextCheckpoint(seq, next.SequenceIndex); ok {
		result.NextCheckpointETA = w.String()
	}

	switch outcome {
	case entity.OutcomeDuplicate:
		// Retries never fan out again, so passengers who subscribed after
		// the original scan are not told about it.
		return result, nil
	case entity.OutcomeOutOfOrder:
		s.logger.Debug("Out-of-order scan ignored",
			"driverId", req.DriverID,
			"checkpointId", req.CheckpointID,
			"scanTimestamp", ts,
			"storedTimestamp", next.ScanTimestamp)
		return result, nil
	}

	change := s.detector.Detect(previous, next)
	if !change.NotifyWorthy {
		return result, nil
	}
	result.NotifyWorthy = true
	result.EventType = change.Type

	event := s.event(ctx, change.Type, previous, next, seq, route, driver, change.Rescan)
	created, err := s.dispatcher.Dispatch(ctx, event)
	result.NotificationsCreated = len(created)
	if err != nil {
		return result, err
	}

	s.logger.Info("Scan applied",
		"driverId", req.DriverID,
		"routeId", req.RouteID,
		"checkpointId", req.CheckpointID,
		"outcome", outcome,
		"notifications", len(created))
	return result, nil
}

// classify decides what a scan means relative to the stored record.
//
// A backward move after a long gap is a new trip when it returns to the
// first checkpoint or jumps back far enough. Short routes cap the required
// jump at their length.
func (s *ScanIngestor) classify(current *entity.DriverLocationRecord, seq *entity.CheckpointSequence, checkpoint entity.Checkpoint, ts time.Time) (string, error) {
	scanned := current.SequenceIndex > 0
	switch {
	case scanned && checkpoint.ID == current.CheckpointID && ts.Equal(current.ScanTimestamp):
		return entity.OutcomeDuplicate, nil
	case scanned && ts.Before(current.ScanTimestamp):
		return entity.OutcomeOutOfOrder, nil
	case scanned && checkpoint.ID == current.CheckpointID:
		return entity.OutcomeRescan, nil
	case checkpoint.SequenceIndex > current.SequenceIndex:
		return entity.OutcomeAdvanced, nil
	}

	jump := current.SequenceIndex - checkpoint.SequenceIndex
	gap := ts.Sub(current.ScanTimestamp)
	required := s.cfg.RestartMinBackwardJump
	if span := len(seq.Checkpoints) - 1; span < required {
		required = span
	}
	first, _ := seq.First()
	if gap >= s.cfg.RestartMinGap && (jump >= required || checkpoint.ID == first.ID) {
		return entity.OutcomeRestart, nil
	}

	s.logger.Warn("Implausible backward scan",
		"driverId", current.DriverID,
		"from", current.SequenceIndex,
		"to", checkpoint.SequenceIndex,
		"gap", gap.String(),
		"policy", s.cfg.AnomalyPolicy)
	if s.cfg.AnomalyPolicy == AnomalyRestart {
		return entity.OutcomeRestart, nil
	}
	return "", errors.Annotatef(entity.ErrSequenceAnomaly, "backward move from %d to %d after %s", current.SequenceIndex, checkpoint.SequenceIndex, gap)
}

// event assembles what the dispatcher and templates need. Display lookups
// that fail degrade to ids instead of failing the scan.
func (s *ScanIngestor) event(
	ctx context.Context,
	eventType entity.EventType,
	previous, next *entity.DriverLocationRecord,
	seq *entity.CheckpointSequence,
	route *entity.Route,
	driver *entity.Driver,
	rescan bool,
) *entity.Event {
	state := next
	if state == nil {
		state = previous
	}

	event := &entity.Event{
		Type:     eventType,
		Previous: previous,
		Current:  next,
		Route:    *route,
		Driver:   *driver,
		Jeepney:  entity.Jeepney{ID: state.JeepneyID},
		Rescan:   rescan,
	}
	if jeep, err := s.directory.GetJeepney(ctx, state.JeepneyID); err == nil {
		event.Jeepney = *jeep
	}
	if cp, ok := seq.Find(state.CheckpointID); ok {
		event.Checkpoint = cp
	}
	if eventType != entity.EventShiftEnd {
		if nextCp, ok := seq.Next(state.SequenceIndex); ok && state.SequenceIndex > 0 {
			event.NextCheckpoint = nextCp
			if w, ok := s.eta.NextCheckpoint(seq, state.SequenceIndex); ok {
				event.ETA = w.String()
			}
		}
	}
	return event
}

// StartShift opens a shift. Starting again on the same route is a no-op.
func (s *ScanIngestor) StartShift(ctx context.Context, req entity.ShiftStartRequest) (result *entity.ScanResult, err error) {
	started := time.Now()
	defer func() {
		outcome := ""
		if result != nil {
			outcome = result.Outcome
		}
		s.observe(outcome, started, err)
	}()

	req.DriverID = utils.NormalizeID(req.DriverID)
	req.RouteID = utils.NormalizeID(req.RouteID)
	req.JeepneyID = utils.NormalizeID(req.JeepneyID)
	req.CheckpointID = utils.NormalizeID(req.CheckpointID)
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.NotValidf("shift start: %v", err)
	}

	ctx, cancel := s.withBudget(ctx)
	defer cancel()

	driver, err := s.directory.GetDriver(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	route, err := s.directory.GetRoute(ctx, req.RouteID)
	if err != nil {
		return nil, err
	}
	if _, err := s.directory.GetJeepney(ctx, req.JeepneyID); err != nil {
		return nil, err
	}
	seq, err := s.directory.GetCheckpointSequence(ctx, req.RouteID)
	if err != nil {
		return nil, err
	}
	var checkpoint entity.Checkpoint
	if req.CheckpointID != "" {
		if _, err := s.directory.GetCheckpoint(ctx, req.CheckpointID); err != nil {
			return nil, err
		}
		cp, ok := seq.Find(req.CheckpointID)
		if !ok {
			return nil, errors.Annotatef(entity.ErrInvalidCheckpoint, "checkpoint %q on route %q", req.CheckpointID, req.RouteID)
		}
		checkpoint = cp
	}

	outcome := entity.OutcomeShiftStart
	previous, next, err := s.store.Update(ctx, req.DriverID, func(current *entity.DriverLocationRecord) (*entity.DriverLocationRecord, bool, error) {
		if current.OnShift() {
			if current.RouteID != req.RouteID {
				return nil, false, errors.Annotatef(entity.ErrRejected, "driver %q already on shift for route %q", req.DriverID, current.RouteID)
			}
			outcome = entity.OutcomeNoop
			return nil, false, nil
		}
		now := s.clock.Now()
		return &entity.DriverLocationRecord{
			DriverID:       req.DriverID,
			RouteID:        req.RouteID,
			JeepneyID:      req.JeepneyID,
			CheckpointID:   checkpoint.ID,
			SequenceIndex:  checkpoint.SequenceIndex,
			ScanTimestamp:  now,
			ShiftStatus:    entity.ShiftOn,
			TripEpoch:      now.UnixMilli(),
			ShiftStartedAt: now,
		}, true, nil
	})
	if err != nil {
		return nil, err
	}

	result = &entity.ScanResult{Previous: previous, Current: next, Outcome: outcome}
	if w, ok := s.eta.NextCheckpoint(seq, next.SequenceIndex); ok {
		result.NextCheckpointETA = w.String()
	}
	if outcome == entity.OutcomeNoop {
		return result, nil
	}

	change := s.detector.Detect(previous, next)
	result.NotifyWorthy = change.NotifyWorthy
	result.EventType = change.Type

	created, err := s.dispatcher.Dispatch(ctx, s.event(ctx, change.Type, previous, next, seq, route, driver, false))
	result.NotificationsCreated = len(created)
	if err != nil {
		return result, err
	}

	s.logger.Info("Shift started",
		"driverId", req.DriverID,
		"routeId", req.RouteID,
		"jeepneyId", req.JeepneyID,
		"notifications", len(created))
	return result, nil
}

// EndShift clears the driver's record.
func (s *ScanIngestor) EndShift(ctx context.Context, driverID string) (result *entity.ScanResult, err error) {
	started := time.Now()
	defer func() {
		outcome := ""
		if result != nil {
			outcome = result.Outcome
		}
		s.observe(outcome, started, err)
	}()

	driverID = utils.NormalizeID(driverID)
	if driverID == "" {
		return nil, errors.NotValidf("empty driver id")
	}

	ctx, cancel := s.withBudget(ctx)
	defer cancel()

	driver, err := s.directory.GetDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}

	previous, next, err := s.store.Update(ctx, driverID, func(current *entity.DriverLocationRecord) (*entity.DriverLocationRecord, bool, error) {
		if !current.OnShift() {
			return nil, false, errors.Annotatef(entity.ErrRejected, "driver %q is off shift", driverID)
		}
		return nil, true, nil
	})
	if err != nil {
		return nil, err
	}

	result = &entity.ScanResult{Previous: previous, Current: next, Outcome: entity.OutcomeShiftEnd}
	change := s.detector.Detect(previous, next)
	result.NotifyWorthy = change.NotifyWorthy
	result.EventType = change.Type

	route, err := s.directory.GetRoute(ctx, previous.RouteID)
	if err != nil {
		return result, fmt.Errorf("shift ended but route lookup failed: %w", err)
	}
	seq, err := s.directory.GetCheckpointSequence(ctx, previous.RouteID)
	if err != nil {
		return result, fmt.Errorf("shift ended but route lookup failed: %w", err)
	}

	created, err := s.dispatcher.Dispatch(ctx, s.event(ctx, change.Type, previous, next, seq, route, driver, false))
	result.NotificationsCreated = len(created)
	if err != nil {
		return result, err
	}

	s.logger.Info("Shift ended",
		"driverId", driverID,
		"routeId", previous.RouteID,
		"notifications", len(created))
	return result, nil
}

// SetDutyStatus switches between the on-duty statuses. It never notifies.
func (s *ScanIngestor) SetDutyStatus(ctx context.Context, driverID string, status entity.ShiftStatus) (result *entity.ScanResult, err error) {
	started := time.Now()
	defer func() {
		outcome := ""
		if result != nil {
			outcome = result.Outcome
		}
		s.observe(outcome, started, err)
	}()

	driverID = utils.NormalizeID(driverID)
	if driverID == "" {
		return nil, errors.NotValidf("empty driver id")
	}
	if !status.Active() {
		return nil, errors.NotValidf("duty status %q", status)
	}

	ctx, cancel := s.withBudget(ctx)
	defer cancel()

	if _, err := s.directory.GetDriver(ctx, driverID); err != nil {
		return nil, err
	}

	outcome := entity.OutcomeStatus
	previous, next, err := s.store.Update(ctx, driverID, func(current *entity.DriverLocationRecord) (*entity.DriverLocationRecord, bool, error) {
		if !current.OnShift() {
			return nil, false, errors.Annotatef(entity.ErrRejected, "driver %q is off shift", driverID)
		}
		if current.ShiftStatus == status {
			outcome = entity.OutcomeNoop
			return nil, false, nil
		}
		next := current.Clone()
		next.ShiftStatus = status
		return next, true, nil
	})
	if err != nil {
		return nil, err
	}
	return &entity.ScanResult{Previous: previous, Current: next, Outcome: outcome}, nil
}

// Location returns the driver's current record; NotFound when off shift.
func (s *ScanIngestor) Location(ctx context.Context, driverID string) (*entity.DriverLocationRecord, error) {
	rec, err := s.store.Get(ctx, utils.NormalizeID(driverID))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.NotFoundf("location of driver %q", driverID)
	}
	return rec, nil
}
