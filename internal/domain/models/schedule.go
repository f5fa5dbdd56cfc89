package models

import "time"

// PlaceTagHome marks the day's lodging stop. A day has at most one of these; it acts
// as the overnight anchor and is special-cased during recalculation.
const PlaceTagHome = "HOME"

// Schedule is one planned stop within a trip day.
type Schedule struct {
	ID            int64     `json:"id"`
	TripID        int64     `json:"trip_id"`
	DayNumber     int       `json:"day_number"`
	VisitDate     time.Time `json:"visit_date"`
	VisitOrder    int       `json:"visit_order"`
	PlaceName     string    `json:"place_name"`
	PlaceTag      string    `json:"place_tag"`
	Lat           float64   `json:"lat"`
	Lng           float64   `json:"lng"`
	Visited       bool      `json:"visited"`
	Arrival       time.Time `json:"arrival"`
	Departure     time.Time `json:"departure"`
	TravelTime    string    `json:"travel_time"`
	EstimatedCost *int64    `json:"estimated_cost,omitempty"`
	CostNotes     string    `json:"cost_notes,omitempty"`
}

func (s Schedule) IsHome() bool {
	return s.PlaceTag == PlaceTagHome
}

// StayDuration is the dwell time at the stop.
func (s Schedule) StayDuration() time.Duration {
	if s.Departure.Before(s.Arrival) {
		return 0
	}
	return s.Departure.Sub(s.Arrival)
}

// CopySchedules deep-copies a day snapshot so preview runs never touch the original.
func CopySchedules(stops []Schedule) []Schedule {
	out := make([]Schedule, len(stops))
	copy(out, stops)
	for i := range out {
		if stops[i].EstimatedCost != nil {
			v := *stops[i].EstimatedCost
			out[i].EstimatedCost = &v
		}
	}
	return out
}
