package usecase_test

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/usecase"
)

func TestStalenessBands(t *testing.T) {
	c := qt.New(t)
	s := usecase.NewStalenessClassifier(2*time.Minute, 10*time.Minute, 30*time.Minute)

	tests := []struct {
		age    time.Duration
		want   entity.Staleness
		color  string
		hidden bool
	}{
		{-time.Second, entity.StalenessLive, "green", false},
		{0, entity.StalenessLive, "green", false},
		{119 * time.Second, entity.StalenessLive, "green", false},
		{2 * time.Minute, entity.StalenessRecent, "orange", false},
		{10 * time.Minute, entity.StalenessRecent, "orange", false},
		{10*time.Minute + time.Second, entity.StalenessStale, "red", false},
		{30 * time.Minute, entity.StalenessStale, "red", false},
		{31 * time.Minute, entity.StalenessStale, "red", true},
	}
	for _, test := range tests {
		c.Run(test.age.String(), func(c *qt.C) {
			got := s.Classify(test.age)
			c.Assert(got, qt.Equals, test.want)
			c.Assert(s.Color(got), qt.Equals, test.color)
			c.Assert(s.HardStale(test.age), qt.Equals, test.hidden)
		})
	}
}

func TestChangeDetector(t *testing.T) {
	at := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	base := &entity.DriverLocationRecord{
		DriverID:      "d1",
		CheckpointID:  "b",
		SequenceIndex: 2,
		ScanTimestamp: at,
		ShiftStatus:   entity.ShiftOn,
		TripEpoch:     7,
	}
	with := func(f func(r *entity.DriverLocationRecord)) *entity.DriverLocationRecord {
		r := base.Clone()
		f(r)
		return r
	}

	tests := []struct {
		name     string
		suppress bool
		prev     *entity.DriverLocationRecord
		next     *entity.DriverLocationRecord
		want     entity.Change
	}{{
		name: "shift start",
		prev: nil,
		next: base,
		want: entity.Change{NotifyWorthy: true, Type: entity.EventShiftStart},
	}, {
		name: "shift end",
		prev: base,
		next: nil,
		want: entity.Change{NotifyWorthy: true, Type: entity.EventShiftEnd},
	}, {
		name: "both off",
	}, {
		name: "advance",
		prev: base,
		next: with(func(r *entity.DriverLocationRecord) { r.SequenceIndex, r.CheckpointID = 3, "c" }),
		want: entity.Change{NotifyWorthy: true, Type: entity.EventCheckpointAdvance},
	}, {
		name: "restart",
		prev: base,
		next: with(func(r *entity.DriverLocationRecord) { r.SequenceIndex, r.CheckpointID, r.TripEpoch = 1, "a", 8 }),
		want: entity.Change{NotifyWorthy: true, Type: entity.EventCheckpointAdvance},
	}, {
		name:     "suppressed rescan",
		suppress: true,
		prev:     base,
		next:     with(func(r *entity.DriverLocationRecord) { r.ScanTimestamp = at.Add(time.Minute) }),
		want:     entity.Change{Type: entity.EventCheckpointAdvance, Rescan: true},
	}, {
		name: "rescan",
		prev: base,
		next: with(func(r *entity.DriverLocationRecord) { r.ScanTimestamp = at.Add(time.Minute) }),
		want: entity.Change{NotifyWorthy: true, Type: entity.EventCheckpointAdvance, Rescan: true},
	}, {
		name: "duty status only",
		prev: base,
		next: with(func(r *entity.DriverLocationRecord) { r.ShiftStatus = entity.ShiftBusy }),
	}, {
		name: "busy to off counts as shift end",
		prev: with(func(r *entity.DriverLocationRecord) { r.ShiftStatus = entity.ShiftBusy }),
		next: nil,
		want: entity.Change{NotifyWorthy: true, Type: entity.EventShiftEnd},
	}}

	c := qt.New(t)
	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			got := usecase.NewChangeDetector(test.suppress).Detect(test.prev, test.next)
			c.Assert(got, qt.Equals, test.want)
		})
	}
}
