package models

import "time"

// Version status of a trip within its room. Generating a new itinerary demotes the
// previous NEW trip to OLD instead of deleting it, so history stays append-only.
const (
	VersionNew = "NEW"
	VersionOld = "OLD"
)

const (
	TripStatusReady    = "READY"
	TripStatusAccepted = "ACCEPTED"
)

// TravelModeDefault is used when a trip has no explicit travel mode.
const TravelModeDefault = "DRIVING"

type Trip struct {
	ID              int64     `json:"id"`
	RoomID          int64     `json:"room_id"`
	Destination     string    `json:"destination"`
	VersionStatus   string    `json:"version_status"`
	TripStatus      string    `json:"trip_status"`
	TravelMode      string    `json:"travel_mode,omitempty"`
	Budget          int64     `json:"budget"`
	LodgingCostInfo string    `json:"lodging_cost_info,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Mode returns the trip's travel mode, falling back to the default.
func (t Trip) Mode() string {
	if t.TravelMode == "" {
		return TravelModeDefault
	}
	return t.TravelMode
}
