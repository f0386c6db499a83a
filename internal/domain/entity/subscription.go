package entity

import "time"

// Preference narrows which events a subscriber receives.
type Preference string

const (
	PreferenceAll          Preference = "all"
	PreferenceArrivalsOnly Preference = "arrivals_only"
)

func (p Preference) Valid() bool {
	return p == PreferenceAll || p == PreferenceArrivalsOnly
}

// Subscription is unique per (PassengerID, RouteID).
type Subscription struct {
	PassengerID  string     `json:"passenger_id"`
	RouteID      string     `json:"route_id"`
	Preference   Preference `json:"preference"`
	CheckpointID string     `json:"checkpoint_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// SameAs compares the user-supplied fields only.
func (s *Subscription) SameAs(o *Subscription) bool {
	return s.PassengerID == o.PassengerID &&
		s.RouteID == o.RouteID &&
		s.Preference == o.Preference &&
		s.CheckpointID == o.CheckpointID
}
