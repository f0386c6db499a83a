package entity

import "time"

// ScanRequest is a driver's report of passing a checkpoint.
type ScanRequest struct {
	DriverID       string     `json:"driver_id" validate:"required,max=64"`
	RouteID        string     `json:"route_id" validate:"required,max=64"`
	CheckpointID   string     `json:"checkpoint_id" validate:"required,max=64"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	PassengerCount *int       `json:"passenger_count,omitempty" validate:"omitempty,gte=0,lte=200"`
}

// ShiftStartRequest opens a shift for a driver.
type ShiftStartRequest struct {
	DriverID     string `json:"driver_id" validate:"required,max=64"`
	RouteID      string `json:"route_id" validate:"required,max=64"`
	JeepneyID    string `json:"jeepney_id" validate:"required,max=64"`
	CheckpointID string `json:"checkpoint_id,omitempty" validate:"omitempty,max=64"`
}

// Change is the ChangeDetector's verdict on a transition.
type Change struct {
	NotifyWorthy bool      `json:"notify_worthy"`
	Type         EventType `json:"event_type,omitempty"`
	Rescan       bool      `json:"rescan,omitempty"`
}

// ScanResult is returned by every ingest and shift operation.
type ScanResult struct {
	Previous             *DriverLocationRecord `json:"previous_state"`
	Current              *DriverLocationRecord `json:"new_state"`
	NotifyWorthy         bool                  `json:"notify_worthy"`
	EventType            EventType             `json:"event_type,omitempty"`
	Outcome              string                `json:"outcome"`
	NextCheckpointETA    string                `json:"next_checkpoint_eta,omitempty"`
	NotificationsCreated int                   `json:"notifications_created"`
}

// Scan outcomes, used in results, logs and metrics.
const (
	OutcomeAdvanced   = "advanced"
	OutcomeRescan     = "rescan"
	OutcomeDuplicate  = "duplicate"
	OutcomeOutOfOrder = "out_of_order"
	OutcomeRestart    = "restart"
	OutcomeShiftStart = "shift_start"
	OutcomeShiftEnd   = "shift_end"
	OutcomeStatus     = "status_change"
	OutcomeNoop       = "noop"
)

// Event is what the dispatcher fans out. Checkpoint is where the event
// happened; NextCheckpoint is empty at the end of the route.
type Event struct {
	Type           EventType
	Previous       *DriverLocationRecord
	Current        *DriverLocationRecord
	Checkpoint     Checkpoint
	NextCheckpoint Checkpoint
	Route          Route
	Driver         Driver
	Jeepney        Jeepney
	ETA            string
	Rescan         bool
}
