package entity

import "time"

// Route is a fixed jeepney line.
type Route struct {
	ID   string `json:"id" yaml:"id" validate:"required"`
	Name string `json:"name" yaml:"name" validate:"required"`
}

// Checkpoint is a fixed scan point along a route.
type Checkpoint struct {
	ID              string        `json:"id" yaml:"id" validate:"required"`
	RouteID         string        `json:"route_id" yaml:"-"`
	Name            string        `json:"name" yaml:"name" validate:"required"`
	SequenceIndex   int           `json:"sequence_index" yaml:"sequence" validate:"gt=0"`
	SegmentDuration time.Duration `json:"segment_duration" yaml:"segment_duration" validate:"gte=0"`
}

// Driver holds display metadata for a driver.
type Driver struct {
	ID   string `json:"id" yaml:"id" validate:"required"`
	Name string `json:"name" yaml:"name"`
}

// Jeepney holds display metadata for a vehicle.
type Jeepney struct {
	ID       string `json:"id" yaml:"id" validate:"required"`
	Number   string `json:"number" yaml:"number" validate:"required"`
	Capacity int    `json:"capacity" yaml:"capacity" validate:"gte=0"`
}

// CheckpointSequence is the ordered checkpoint list of one route.
// SegmentDuration of element i is the typical travel time to element i+1.
type CheckpointSequence struct {
	RouteID     string
	Checkpoints []Checkpoint
}

// IndexOf returns the slice position of the checkpoint with the given
// sequence index, or -1.
func (s *CheckpointSequence) IndexOf(sequenceIndex int) int {
	for i, cp := range s.Checkpoints {
		if cp.SequenceIndex == sequenceIndex {
			return i
		}
	}
	return -1
}

// Find returns the checkpoint with the given id.
func (s *CheckpointSequence) Find(checkpointID string) (Checkpoint, bool) {
	for _, cp := range s.Checkpoints {
		if cp.ID == checkpointID {
			return cp, true
		}
	}
	return Checkpoint{}, false
}

// First returns the lowest-sequence checkpoint.
func (s *CheckpointSequence) First() (Checkpoint, bool) {
	if len(s.Checkpoints) == 0 {
		return Checkpoint{}, false
	}
	return s.Checkpoints[0], true
}

// Next returns the checkpoint following sequenceIndex. A sequenceIndex of 0
// yields the first checkpoint.
func (s *CheckpointSequence) Next(sequenceIndex int) (Checkpoint, bool) {
	for _, cp := range s.Checkpoints {
		if cp.SequenceIndex > sequenceIndex {
			return cp, true
		}
	}
	return Checkpoint{}, false
}
