package models

import "time"

// Room is the planning room a trip belongs to. Chat, membership management and the
// rest of the room lifecycle live in another service; only the fields generation
// needs are mapped here.
type Room struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Country    string    `json:"country"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	TravelMode string    `json:"travel_mode,omitempty"`
}

// Days is the trip length in itinerary days (inclusive of both ends).
func (r Room) Days() int {
	d := int(r.EndDate.Sub(r.StartDate).Hours()/24) + 1
	if d < 1 {
		return 1
	}
	return d
}

// RoomPlace is a candidate place collected in the room before generation.
type RoomPlace struct {
	ID        int64  `json:"id"`
	RoomID    int64  `json:"room_id"`
	Name      string `json:"name"`
	Tag       string `json:"tag"`
	MustVisit bool   `json:"must_visit"`
}
