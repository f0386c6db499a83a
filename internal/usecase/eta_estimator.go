package usecase

import (
	"time"

	"github.com/juju/errors"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/pkg/utils"
)

// ETAWindow is an arrival range in whole minutes between two checkpoints
// identified by sequence index.
type ETAWindow struct {
	From  int `json:"from_sequence"`
	To    int `json:"to_sequence"`
	Lower int `json:"lower_minutes"`
	Upper int `json:"upper_minutes"`
}

// String renders the window, e.g. "4–6 mins".
func (w ETAWindow) String() string {
	return utils.FormatMinuteRange(w.Lower, w.Upper)
}

// ETAEstimator turns summed segment durations into arrival ranges.
type ETAEstimator struct {
	minBand        time.Duration
	spreadPercent  int
	defaultSegment time.Duration
}

// NewETAEstimator creates an estimator. spreadPercent widens the upper bound
// proportionally to the travel time; minBand is the narrowest allowed window.
func NewETAEstimator(minBand time.Duration, spreadPercent int, defaultSegment time.Duration) *ETAEstimator {
	if spreadPercent < 0 {
		spreadPercent = 0
	}
	return &ETAEstimator{
		minBand:        minBand,
		spreadPercent:  spreadPercent,
		defaultSegment: defaultSegment,
	}
}

// NextCheckpoint estimates the arrival at the checkpoint after fromIndex.
// ok is false at the end of the route. A fromIndex of 0 (nothing scanned yet)
// yields no estimate either, since there is no segment to measure.
func (e *ETAEstimator) NextCheckpoint(seq *entity.CheckpointSequence, fromIndex int) (ETAWindow, bool) {
	if seq.IndexOf(fromIndex) < 0 {
		return ETAWindow{}, false
	}
	next, ok := seq.Next(fromIndex)
	if !ok {
		return ETAWindow{}, false
	}
	w, err := e.ToTarget(seq, fromIndex, next.SequenceIndex)
	if err != nil {
		return ETAWindow{}, false
	}
	return w, true
}

// ToTarget estimates the arrival at targetIndex from fromIndex. Both must be
// on the route and target must lie ahead.
func (e *ETAEstimator) ToTarget(seq *entity.CheckpointSequence, fromIndex, targetIndex int) (ETAWindow, error) {
	from := seq.IndexOf(fromIndex)
	if from < 0 {
		return ETAWindow{}, errors.NotValidf("origin sequence %d", fromIndex)
	}
	to := seq.IndexOf(targetIndex)
	if to < 0 {
		return ETAWindow{}, errors.NotValidf("target sequence %d", targetIndex)
	}
	if to <= from {
		return ETAWindow{}, errors.NotValidf("target sequence %d not ahead of %d", targetIndex, fromIndex)
	}

	var total time.Duration
	for i := from; i < to; i++ {
		d := seq.Checkpoints[i].SegmentDuration
		if d <= 0 {
			d = e.defaultSegment
		}
		total += d
	}
	lower, upper := e.bounds(total)
	return ETAWindow{From: fromIndex, To: targetIndex, Lower: lower, Upper: upper}, nil
}

func (e *ETAEstimator) bounds(total time.Duration) (int, int) {
	lower := utils.WholeMinutes(total)
	if lower < 1 {
		lower = 1
	}
	spread := utils.CeilMinutes(total * time.Duration(e.spreadPercent) / 100)
	band := utils.CeilMinutes(e.minBand)
	if spread > band {
		band = spread
	}
	return lower, lower + band
}
