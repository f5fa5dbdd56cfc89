package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"tripmate/internal/clients"
	intconfig "tripmate/internal/config"
	"tripmate/internal/domain/models"
	"tripmate/internal/repositories"
	"tripmate/internal/utils"
)

// RecalcService restores a day's ordering and time-chain invariants after any
// structural or temporal change:
//
//  1. visit_order over a day is exactly 1..N
//  2. arrival <= departure per stop
//  3. departure(i) + travel_time(i) == arrival(i+1) for consecutive stops
//  4. at most one HOME stop per day; its dwell is never recomputed
type RecalcService struct {
	TripRepo     repositories.TripRepository
	ScheduleRepo repositories.ScheduleRepository
	Provider     clients.RouteTimeProvider
	DB           *sql.DB
}

func (s RecalcService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s RecalcService) schedules() repositories.ScheduleRepository {
	if s.ScheduleRepo.DB != nil || s.ScheduleRepo.Q != nil {
		return s.ScheduleRepo
	}
	return repositories.ScheduleRepository{DB: s.db()}
}

func (s RecalcService) trips() repositories.TripRepository {
	if s.TripRepo.DB != nil || s.TripRepo.Q != nil {
		return s.TripRepo
	}
	return repositories.TripRepository{DB: s.db()}
}

// ReorderSnapshot reassigns contiguous visit orders 1..N, preserving relative
// order. Ties on visit_order break by schedule id so the result is stable.
func ReorderSnapshot(stops []models.Schedule) []models.Schedule {
	sort.SliceStable(stops, func(i, j int) bool {
		if stops[i].VisitOrder != stops[j].VisitOrder {
			return stops[i].VisitOrder < stops[j].VisitOrder
		}
		return stops[i].ID < stops[j].ID
	})
	for i := range stops {
		stops[i].VisitOrder = i + 1
	}
	return stops
}

// ChainSnapshot recomputes the arrival/departure chain over an ordered day.
// The first stop's arrival anchors the day. Stay durations are captured from
// each stop's own prior arrival/departure before anything moves, so editing one
// stop never silently changes another's dwell time.
func ChainSnapshot(stops []models.Schedule) []models.Schedule {
	if len(stops) == 0 {
		return stops
	}

	stays := make([]int64, len(stops))
	for i := range stops {
		stays[i] = int64(stops[i].StayDuration().Minutes())
	}

	stops[0].Departure = stops[0].Arrival.Add(minutesDur(stays[0]))
	for i := 1; i < len(stops); i++ {
		leg := utils.ParseDurationText(stops[i-1].TravelTime)
		stops[i].Arrival = stops[i-1].Departure.Add(minutesDur(int64(leg)))
		stops[i].Departure = stops[i].Arrival.Add(minutesDur(stays[i]))
	}
	return stops
}

// legMinutes asks the route provider for one leg. Provider failure degrades to a
// zero-duration leg; a routing outage must never abort the enclosing edit.
func (s RecalcService) legMinutes(ctx context.Context, mode string, from, to models.Schedule) int {
	minutes, err := s.Provider.TravelTime(ctx,
		clients.Coord{Lat: from.Lat, Lng: from.Lng},
		clients.Coord{Lat: to.Lat, Lng: to.Lng},
		mode,
	)
	if err != nil {
		utils.LogEvent("", "recalc", "leg_degraded",
			fmt.Sprintf("trip_id=%d %s -> %s: %v", from.TripID, from.PlaceName, to.PlaceName, err))
		return 0
	}
	return minutes
}

// TravelTimesSnapshot recomputes every adjacent leg of an ordered day, one
// serial provider call per leg. The last stop's travel time is cleared.
func (s RecalcService) TravelTimesSnapshot(ctx context.Context, mode string, stops []models.Schedule) []models.Schedule {
	for i := 0; i < len(stops)-1; i++ {
		stops[i].TravelTime = utils.HumanizeMinutes(s.legMinutes(ctx, mode, stops[i], stops[i+1]))
	}
	if len(stops) > 0 {
		stops[len(stops)-1].TravelTime = ""
	}
	return stops
}

// RecalcTravelTimes recomputes a persisted day's legs via the route provider and
// re-chains arrivals/departures. Structural single-item edits call this after
// the pipeline commits.
func (s RecalcService) RecalcTravelTimes(ctx context.Context, tripID int64, day int) ([]models.Schedule, error) {
	trip, err := s.trips().GetTrip(tripID)
	if err != nil {
		return nil, err
	}
	stops, err := s.schedules().ListDay(tripID, day)
	if err != nil {
		return nil, err
	}
	stops = ReorderSnapshot(stops)
	stops = s.TravelTimesSnapshot(ctx, trip.Mode(), stops)
	stops = ChainSnapshot(stops)
	return stops, s.persistDay(stops)
}

// RecalcAccommodationLegs recomputes only the two legs touching the day's HOME
// stop after a lodging relocation: previous activity -> HOME, and HOME -> the
// first stop of the next day. The lodging's own dwell stays untouched. When two
// HOME stops exist in a day, the first in visit order wins.
//
// The overnight leg is stored on the HOME stop's travel time. A later full-day
// leg refresh clears it again, because those passes treat the lodging as the
// day's terminus; the leg is only authoritative between a relocation and the
// day's next structural edit.
func (s RecalcService) RecalcAccommodationLegs(ctx context.Context, tripID int64, day int) error {
	trip, err := s.trips().GetTrip(tripID)
	if err != nil {
		return err
	}
	stops, err := s.schedules().ListDay(tripID, day)
	if err != nil {
		return err
	}

	homeIdx := -1
	for i := range stops {
		if stops[i].IsHome() {
			homeIdx = i
			break
		}
	}
	if homeIdx < 0 {
		return nil
	}

	if homeIdx > 0 {
		prev := &stops[homeIdx-1]
		prev.TravelTime = utils.HumanizeMinutes(s.legMinutes(ctx, trip.Mode(), *prev, stops[homeIdx]))
	}

	next, ok, err := s.schedules().FirstOfDay(tripID, day+1)
	if err != nil {
		return err
	}
	if ok {
		stops[homeIdx].TravelTime = utils.HumanizeMinutes(s.legMinutes(ctx, trip.Mode(), stops[homeIdx], next))
	} else {
		stops[homeIdx].TravelTime = ""
	}

	stops = ChainSnapshot(stops)
	return s.persistDay(stops)
}

func (s RecalcService) persistDay(stops []models.Schedule) error {
	repo := s.schedules()
	for _, st := range stops {
		if err := repo.Update(st); err != nil {
			return err
		}
	}
	return nil
}

func minutesDur(m int64) time.Duration {
	return time.Duration(m) * time.Minute
}
