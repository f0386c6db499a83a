package entity

import "time"

// Staleness band of a location record.
type Staleness string

const (
	StalenessLive   Staleness = "live"
	StalenessRecent Staleness = "recent"
	StalenessStale  Staleness = "stale"
)

// VehicleStatus is one row of a route snapshot.
type VehicleStatus struct {
	DriverID              string    `json:"driver_id"`
	DriverName            string    `json:"driver_name,omitempty"`
	JeepneyID             string    `json:"jeepney_id"`
	JeepneyNumber         string    `json:"jeepney_number"`
	CurrentCheckpointID   string    `json:"current_checkpoint_id,omitempty"`
	CurrentCheckpointName string    `json:"current_checkpoint_name"`
	SequenceIndex         int       `json:"sequence_index"`
	NextCheckpointName    string    `json:"next_checkpoint_name,omitempty"`
	NextCheckpointETA     string    `json:"next_checkpoint_eta"`
	Status                Staleness `json:"status"`
	StatusColor           string    `json:"status_color"`
	ShiftStatus           string    `json:"shift_status"`
	LastUpdate            time.Time `json:"last_update"`
	LastUpdateFormatted   string    `json:"last_update_formatted"`
	MinutesSinceUpdate    int       `json:"minutes_since_update"`
	PassengerCount        *int      `json:"passenger_count,omitempty"`
}

// RouteSnapshot is computed per poll and never persisted.
type RouteSnapshot struct {
	RouteID       string          `json:"route_id"`
	RouteName     string          `json:"route_name"`
	GeneratedAt   time.Time       `json:"generated_at"`
	Vehicles      []VehicleStatus `json:"vehicles"`
	ExcludedStale int             `json:"excluded_stale"`
}
