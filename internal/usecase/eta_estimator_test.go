package usecase_test

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/errors"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/usecase"
)

func etaSequence() *entity.CheckpointSequence {
	return &entity.CheckpointSequence{
		RouteID: "r1",
		Checkpoints: []entity.Checkpoint{
			{ID: "a", SequenceIndex: 1, SegmentDuration: 5 * time.Minute},
			{ID: "b", SequenceIndex: 2, SegmentDuration: 4 * time.Minute},
			{ID: "c", SequenceIndex: 3, SegmentDuration: 30 * time.Second},
			{ID: "d", SequenceIndex: 4},
			{ID: "e", SequenceIndex: 5, SegmentDuration: 40 * time.Minute},
			{ID: "f", SequenceIndex: 6},
		},
	}
}

func TestETANextCheckpoint(t *testing.T) {
	c := qt.New(t)
	est := usecase.NewETAEstimator(2*time.Minute, 25, 5*time.Minute)
	seq := etaSequence()

	w, ok := est.NextCheckpoint(seq, 1)
	c.Assert(ok, qt.IsTrue)
	c.Assert(w.String(), qt.Equals, "5–7 mins")

	w, ok = est.NextCheckpoint(seq, 2)
	c.Assert(ok, qt.IsTrue)
	c.Assert(w.String(), qt.Equals, "4–6 mins")
	c.Assert(w.From, qt.Equals, 2)
	c.Assert(w.To, qt.Equals, 3)

	// Short segments still get at least a minute and the minimum band.
	w, ok = est.NextCheckpoint(seq, 3)
	c.Assert(ok, qt.IsTrue)
	c.Assert(w.Lower, qt.Equals, 1)
	c.Assert(w.Upper, qt.Equals, 3)

	// Unknown duration falls back to the default segment.
	w, ok = est.NextCheckpoint(seq, 4)
	c.Assert(ok, qt.IsTrue)
	c.Assert(w.String(), qt.Equals, "5–7 mins")

	// Long segments widen proportionally.
	w, ok = est.NextCheckpoint(seq, 5)
	c.Assert(ok, qt.IsTrue)
	c.Assert(w.String(), qt.Equals, "40–50 mins")

	_, ok = est.NextCheckpoint(seq, 6)
	c.Assert(ok, qt.IsFalse)
	_, ok = est.NextCheckpoint(seq, 0)
	c.Assert(ok, qt.IsFalse)
}

func TestETAToTarget(t *testing.T) {
	c := qt.New(t)
	est := usecase.NewETAEstimator(2*time.Minute, 25, 5*time.Minute)
	seq := etaSequence()

	w, err := est.ToTarget(seq, 1, 3)
	c.Assert(err, qt.IsNil)
	c.Assert(w.Lower, qt.Equals, 9)
	c.Assert(w.Upper, qt.Equals, 12)

	_, err = est.ToTarget(seq, 3, 3)
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
	_, err = est.ToTarget(seq, 3, 2)
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
	_, err = est.ToTarget(seq, 1, 9)
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
	_, err = est.ToTarget(seq, 7, 9)
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
}

func TestETAWindowsAreOrderedAndMonotone(t *testing.T) {
	c := qt.New(t)
	seq := etaSequence()
	for _, band := range []time.Duration{0, time.Minute, 2 * time.Minute, 10 * time.Minute} {
		for _, spread := range []int{0, 10, 25, 100} {
			est := usecase.NewETAEstimator(band, spread, 3*time.Minute)
			for from := 1; from <= 6; from++ {
				var prev *usecase.ETAWindow
				for to := from + 1; to <= 6; to++ {
					w, err := est.ToTarget(seq, from, to)
					c.Assert(err, qt.IsNil)
					c.Assert(w.Lower <= w.Upper, qt.IsTrue, qt.Commentf("%+v", w))
					if prev != nil {
						c.Assert(w.Lower >= prev.Lower, qt.IsTrue, qt.Commentf("%+v after %+v", w, *prev))
						c.Assert(w.Upper >= prev.Upper, qt.IsTrue, qt.Commentf("%+v after %+v", w, *prev))
						c.Assert(w.Upper-w.Lower >= prev.Upper-prev.Lower, qt.IsTrue)
					}
					cur := w
					prev = &cur
				}
			}
		}
	}
}
