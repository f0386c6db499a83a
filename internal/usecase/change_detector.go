package usecase

import (
	"jeeptrack-service/internal/domain/entity"
)

// ChangeDetector decides which location transitions passengers hear about.
type ChangeDetector struct {
	suppressRescans bool
}

func NewChangeDetector(suppressRescans bool) *ChangeDetector {
	return &ChangeDetector{suppressRescans: suppressRescans}
}

// Detect compares two records of the same driver. A nil record means the
// driver was (or now is) off shift.
func (d *ChangeDetector) Detect(previous, next *entity.DriverLocationRecord) entity.Change {
	wasOn, isOn := previous.OnShift(), next.OnShift()

	switch {
	case !wasOn && isOn:
		return entity.Change{NotifyWorthy: true, Type: entity.EventShiftStart}
	case wasOn && !isOn:
		return entity.Change{NotifyWorthy: true, Type: entity.EventShiftEnd}
	case !wasOn && !isOn:
		return entity.Change{}
	}

	// Both on shift from here.
	if next.TripEpoch != previous.TripEpoch && next.SequenceIndex > 0 {
		return entity.Change{NotifyWorthy: true, Type: entity.EventCheckpointAdvance}
	}
	if next.SequenceIndex > previous.SequenceIndex {
		return entity.Change{NotifyWorthy: true, Type: entity.EventCheckpointAdvance}
	}
	if next.SequenceIndex > 0 &&
		next.CheckpointID == previous.CheckpointID &&
		next.ScanTimestamp.After(previous.ScanTimestamp) {
		return entity.Change{
			NotifyWorthy: !d.suppressRescans,
			Type:         entity.EventCheckpointAdvance,
			Rescan:       true,
		}
	}
	return entity.Change{}
}
