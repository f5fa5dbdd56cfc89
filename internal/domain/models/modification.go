package models

// Modification kinds accepted by the batch edit pipeline. Items are applied in a
// fixed order regardless of their order in the request (see services).
const (
	ModDelete              = "DELETE"
	ModAdd                 = "ADD"
	ModReorder             = "REORDER"
	ModUpdateAccommodation = "UPDATE_ACCOMMODATION"
	ModUpdateVisitTime     = "UPDATE_VISIT_TIME"
	ModUpdateStayDuration  = "UPDATE_STAY_DURATION"
	ModUpdateTravelTime    = "UPDATE_TRAVEL_TIME"
)

// ModificationItem is one edit in a batch. Only the fields for its Kind are read:
//
//	REORDER               schedule_id, position
//	UPDATE_STAY_DURATION  schedule_id, minutes
//	UPDATE_VISIT_TIME     schedule_id, visit_time ("HH:MM")
//	ADD                   day, place_name, place_tag, lat, lng, minutes
//	DELETE                schedule_id
//	UPDATE_ACCOMMODATION  schedule_id (must be HOME), place_name, lat, lng
//	UPDATE_TRAVEL_TIME    schedule_id, minutes
type ModificationItem struct {
	Kind       string  `json:"kind"`
	ScheduleID int64   `json:"schedule_id,omitempty"`
	Position   int     `json:"position,omitempty"`
	Minutes    int     `json:"minutes,omitempty"`
	VisitTime  string  `json:"visit_time,omitempty"`
	Day        int     `json:"day,omitempty"`
	PlaceName  string  `json:"place_name,omitempty"`
	PlaceTag   string  `json:"place_tag,omitempty"`
	Lat        float64 `json:"lat,omitempty"`
	Lng        float64 `json:"lng,omitempty"`
}
