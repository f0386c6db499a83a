package entity

import (
	"time"
)

// ShiftStatus is the duty state of a driver.
type ShiftStatus string

const (
	ShiftOff       ShiftStatus = "off_shift"
	ShiftOn        ShiftStatus = "on_shift"
	ShiftAvailable ShiftStatus = "available"
	ShiftBusy      ShiftStatus = "busy"
)

// Active reports whether the status counts as being on duty.
func (s ShiftStatus) Active() bool {
	switch s {
	case ShiftOn, ShiftAvailable, ShiftBusy:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s ShiftStatus) Valid() bool {
	return s == ShiftOff || s.Active()
}

// DriverLocationRecord is the latest known checkpoint position of a driver.
// SequenceIndex 0 means the driver is on shift but has not scanned yet.
type DriverLocationRecord struct {
	DriverID       string      `json:"driver_id" bson:"driverId"`
	RouteID        string      `json:"route_id" bson:"routeId"`
	JeepneyID      string      `json:"jeepney_id" bson:"jeepneyId"`
	CheckpointID   string      `json:"current_checkpoint_id" bson:"checkpointId"`
	SequenceIndex  int         `json:"sequence_index" bson:"sequenceIndex"`
	ScanTimestamp  time.Time   `json:"scan_timestamp" bson:"scanTimestamp"`
	ShiftStatus    ShiftStatus `json:"shift_status" bson:"shiftStatus"`
	PassengerCount *int        `json:"passenger_count,omitempty" bson:"passengerCount,omitempty"`
	TripEpoch      int64       `json:"trip_epoch" bson:"tripEpoch"`
	ShiftStartedAt time.Time   `json:"shift_started_at" bson:"shiftStartedAt"`
	UpdatedAt      time.Time   `json:"updated_at" bson:"updatedAt"`
	Version        int64       `json:"version" bson:"version"`
}

// Clone returns a deep copy so callers never share the passenger count pointer.
func (r *DriverLocationRecord) Clone() *DriverLocationRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.PassengerCount != nil {
		n := *r.PassengerCount
		c.PassengerCount = &n
	}
	return &c
}

// OnShift is nil-safe.
func (r *DriverLocationRecord) OnShift() bool {
	return r != nil && r.ShiftStatus.Active()
}
