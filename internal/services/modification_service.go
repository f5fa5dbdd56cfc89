package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	intconfig "tripmate/internal/config"
	"tripmate/internal/domain"
	"tripmate/internal/domain/models"
	"tripmate/internal/repositories"
	"tripmate/internal/utils"
)

// ModificationService applies a batch of heterogeneous edits to one trip day.
// Items are applied in a fixed order regardless of request order so combined
// edits are deterministic, then the day is renumbered and re-chained exactly
// once. Commit persists inside a single transaction; Preview runs the identical
// pipeline against a copy of the day and writes nothing.
type ModificationService struct {
	TripRepo     repositories.TripRepository
	ScheduleRepo repositories.ScheduleRepository
	RoomRepo     repositories.RoomRepository
	Recalc       RecalcService
	DB           *sql.DB
}

func (s ModificationService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s ModificationService) trips() repositories.TripRepository {
	if s.TripRepo.DB != nil || s.TripRepo.Q != nil {
		return s.TripRepo
	}
	return repositories.TripRepository{DB: s.db()}
}

func (s ModificationService) rooms() repositories.RoomRepository {
	if s.RoomRepo.DB != nil || s.RoomRepo.Q != nil {
		return s.RoomRepo
	}
	return repositories.RoomRepository{DB: s.db()}
}

// dayState is the in-memory working copy of one day's stops during a batch.
type dayState struct {
	tripID int64
	day    int
	date   time.Time
	stops  []models.Schedule
}

type applyFunc func(st *dayState, item models.ModificationItem) error

// Fixed application order. Input order never matters.
var applyOrder = []string{
	models.ModDelete,
	models.ModAdd,
	models.ModReorder,
	models.ModUpdateAccommodation,
	models.ModUpdateVisitTime,
	models.ModUpdateStayDuration,
	models.ModUpdateTravelTime,
}

var applyFuncs = map[string]applyFunc{
	models.ModDelete:              applyDelete,
	models.ModAdd:                 applyAdd,
	models.ModReorder:             applyReorder,
	models.ModUpdateAccommodation: applyUpdateAccommodation,
	models.ModUpdateVisitTime:     applyUpdateVisitTime,
	models.ModUpdateStayDuration:  applyUpdateStayDuration,
	models.ModUpdateTravelTime:    applyUpdateTravelTime,
}

func runPipeline(st *dayState, items []models.ModificationItem) error {
	for _, it := range items {
		if _, ok := applyFuncs[it.Kind]; !ok {
			return domain.ValidationError{Field: "kind", Msg: fmt.Sprintf("unknown modification kind %q", it.Kind)}
		}
	}
	for _, kind := range applyOrder {
		for _, it := range items {
			if it.Kind != kind {
				continue
			}
			if err := applyFuncs[kind](st, it); err != nil {
				return err
			}
		}
	}
	st.stops = ReorderSnapshot(st.stops)
	st.stops = ChainSnapshot(st.stops)
	return nil
}

func (st *dayState) find(scheduleID int64) (*models.Schedule, error) {
	for i := range st.stops {
		if st.stops[i].ID == scheduleID {
			return &st.stops[i], nil
		}
	}
	return nil, domain.NotFoundError{Resource: "schedule"}
}

func (st *dayState) renumber() {
	for i := range st.stops {
		st.stops[i].VisitOrder = i + 1
	}
}

func applyDelete(st *dayState, item models.ModificationItem) error {
	for i := range st.stops {
		if st.stops[i].ID == item.ScheduleID {
			st.stops = append(st.stops[:i], st.stops[i+1:]...)
			st.renumber()
			return nil
		}
	}
	return domain.NotFoundError{Resource: "schedule"}
}

// applyAdd appends after the day's last non-HOME activity (first position when
// the day is empty, before the lodging when only a HOME stop exists). Travel
// time stays empty: the batch path never calls the route provider.
func applyAdd(st *dayState, item models.ModificationItem) error {
	if item.PlaceName == "" {
		return domain.ValidationError{Field: "place_name", Msg: "required for ADD"}
	}
	if item.Minutes < 0 {
		return domain.ValidationError{Field: "minutes", Msg: "must not be negative"}
	}

	// Anchor for an empty day; otherwise the chain pass recomputes arrival.
	arrival := time.Date(st.date.Year(), st.date.Month(), st.date.Day(), 9, 0, 0, 0, st.date.Location())
	stop := models.Schedule{
		TripID:    st.tripID,
		DayNumber: st.day,
		VisitDate: st.date,
		PlaceName: item.PlaceName,
		PlaceTag:  item.PlaceTag,
		Lat:       item.Lat,
		Lng:       item.Lng,
		Arrival:   arrival,
		Departure: arrival.Add(time.Duration(item.Minutes) * time.Minute),
	}

	idx := -1
	for i := range st.stops {
		if !st.stops[i].IsHome() {
			idx = i
		}
	}

	pos := idx + 1
	st.stops = append(st.stops, models.Schedule{})
	copy(st.stops[pos+1:], st.stops[pos:])
	st.stops[pos] = stop
	st.renumber()
	return nil
}

func applyReorder(st *dayState, item models.ModificationItem) error {
	if item.Position < 1 || item.Position > len(st.stops) {
		return domain.ValidationError{Field: "position", Msg: fmt.Sprintf("must be between 1 and %d", len(st.stops))}
	}
	from := -1
	for i := range st.stops {
		if st.stops[i].ID == item.ScheduleID {
			from = i
			break
		}
	}
	if from < 0 {
		return domain.NotFoundError{Resource: "schedule"}
	}

	stop := st.stops[from]
	st.stops = append(st.stops[:from], st.stops[from+1:]...)
	to := item.Position - 1
	st.stops = append(st.stops, models.Schedule{})
	copy(st.stops[to+1:], st.stops[to:])
	st.stops[to] = stop
	st.renumber()
	return nil
}

func applyUpdateAccommodation(st *dayState, item models.ModificationItem) error {
	stop, err := st.find(item.ScheduleID)
	if err != nil {
		return err
	}
	if !stop.IsHome() {
		return domain.ValidationError{Field: "schedule_id", Msg: "accommodation update targets a non-lodging stop"}
	}
	if item.PlaceName != "" {
		stop.PlaceName = item.PlaceName
	}
	stop.Lat = item.Lat
	stop.Lng = item.Lng
	return nil
}

func applyUpdateVisitTime(st *dayState, item models.ModificationItem) error {
	stop, err := st.find(item.ScheduleID)
	if err != nil {
		return err
	}
	arrival, err := utils.CombineDateClock(stop.VisitDate, item.VisitTime)
	if err != nil {
		return domain.ValidationError{Field: "visit_time", Msg: "expected HH:MM", Err: err}
	}
	stay := stop.StayDuration()
	stop.Arrival = arrival
	stop.Departure = arrival.Add(stay)
	return nil
}

func applyUpdateStayDuration(st *dayState, item models.ModificationItem) error {
	stop, err := st.find(item.ScheduleID)
	if err != nil {
		return err
	}
	if item.Minutes < 0 {
		return domain.ValidationError{Field: "minutes", Msg: "must not be negative"}
	}
	stop.Departure = stop.Arrival.Add(time.Duration(item.Minutes) * time.Minute)
	return nil
}

func applyUpdateTravelTime(st *dayState, item models.ModificationItem) error {
	stop, err := st.find(item.ScheduleID)
	if err != nil {
		return err
	}
	if item.Minutes < 0 {
		return domain.ValidationError{Field: "minutes", Msg: "must not be negative"}
	}
	stop.TravelTime = utils.HumanizeMinutes(item.Minutes)
	return nil
}

// Preview runs the full pipeline against an isolated copy of the day and
// returns the recalculated result without any durable effect.
func (s ModificationService) Preview(ctx context.Context, tripID int64, day int, items []models.ModificationItem) ([]models.Schedule, error) {
	trip, err := s.trips().GetTrip(tripID)
	if err != nil {
		return nil, err
	}
	if day < 1 {
		return nil, domain.ValidationError{Field: "day", Msg: "must be at least 1"}
	}

	repo := s.schedulesPlain()
	stops, err := repo.ListDay(tripID, day)
	if err != nil {
		return nil, err
	}
	date, err := s.dayDate(trip, day, stops)
	if err != nil {
		return nil, err
	}

	st := &dayState{tripID: tripID, day: day, date: date, stops: models.CopySchedules(stops)}
	if err := runPipeline(st, items); err != nil {
		return nil, err
	}
	return st.stops, nil
}

// Apply runs the pipeline and persists the resulting day in one transaction.
func (s ModificationService) Apply(ctx context.Context, tripID int64, day int, items []models.ModificationItem) ([]models.Schedule, error) {
	return s.apply(ctx, tripID, day, items, nil)
}

// AddStopNow is the out-of-batch add: it appends the stop, then synchronously
// queries the route provider for the legs touching it so the caller sees final
// timing immediately.
func (s ModificationService) AddStopNow(ctx context.Context, tripID int64, day int, item models.ModificationItem) ([]models.Schedule, error) {
	trip, err := s.trips().GetTrip(tripID)
	if err != nil {
		return nil, err
	}
	item.Kind = models.ModAdd

	return s.apply(ctx, tripID, day, []models.ModificationItem{item}, func(st *dayState) error {
		idx := -1
		for i := range st.stops {
			if st.stops[i].ID == 0 {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil
		}
		if idx > 0 {
			st.stops[idx-1].TravelTime = utils.HumanizeMinutes(
				s.Recalc.legMinutes(ctx, trip.Mode(), st.stops[idx-1], st.stops[idx]))
		}
		if idx < len(st.stops)-1 {
			st.stops[idx].TravelTime = utils.HumanizeMinutes(
				s.Recalc.legMinutes(ctx, trip.Mode(), st.stops[idx], st.stops[idx+1]))
		}
		st.stops = ChainSnapshot(st.stops)
		return nil
	})
}

func (s ModificationService) apply(ctx context.Context, tripID int64, day int, items []models.ModificationItem, post func(*dayState) error) ([]models.Schedule, error) {
	trip, err := s.trips().GetTrip(tripID)
	if err != nil {
		return nil, err
	}
	if day < 1 {
		return nil, domain.ValidationError{Field: "day", Msg: "must be at least 1"}
	}

	tx, err := s.db().BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.InternalError{Msg: "begin transaction", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	repo := s.schedulesPlain().WithTx(tx)
	stops, err := repo.ListDay(tripID, day)
	if err != nil {
		return nil, err
	}
	date, err := s.dayDate(trip, day, stops)
	if err != nil {
		return nil, err
	}

	existing := make(map[int64]bool, len(stops))
	for _, st := range stops {
		existing[st.ID] = true
	}

	st := &dayState{tripID: tripID, day: day, date: date, stops: stops}
	if err := runPipeline(st, items); err != nil {
		return nil, err
	}
	if post != nil {
		if err := post(st); err != nil {
			return nil, err
		}
	}

	kept := make(map[int64]bool, len(st.stops))
	for _, stop := range st.stops {
		if stop.ID != 0 {
			kept[stop.ID] = true
		}
	}
	for id := range existing {
		if !kept[id] {
			if err := repo.Delete(id); err != nil {
				return nil, err
			}
		}
	}
	for i := range st.stops {
		if st.stops[i].ID == 0 {
			id, err := repo.Insert(st.stops[i])
			if err != nil {
				return nil, err
			}
			st.stops[i].ID = id
		} else if err := repo.Update(st.stops[i]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.InternalError{Msg: "commit transaction", Err: err}
	}
	return st.stops, nil
}

func (s ModificationService) schedulesPlain() repositories.ScheduleRepository {
	if s.ScheduleRepo.DB != nil || s.ScheduleRepo.Q != nil {
		return s.ScheduleRepo
	}
	return repositories.ScheduleRepository{DB: s.db()}
}

// dayDate resolves the calendar date of a day: from its stops when it has any,
// otherwise from the room's start date.
func (s ModificationService) dayDate(trip models.Trip, day int, stops []models.Schedule) (time.Time, error) {
	if len(stops) > 0 {
		return stops[0].VisitDate, nil
	}
	room, err := s.rooms().GetRoom(trip.RoomID)
	if err != nil {
		return time.Time{}, err
	}
	return room.StartDate.AddDate(0, 0, day-1), nil
}
