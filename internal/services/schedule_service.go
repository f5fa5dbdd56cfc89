package services

import (
	"context"
	"database/sql"

	intconfig "tripmate/internal/config"
	"tripmate/internal/domain"
	"tripmate/internal/domain/models"
	"tripmate/internal/repositories"
)

// ScheduleService is the single-item edit surface. Each operation resolves the
// stop, wraps itself as a one-item batch and runs the same pipeline the batch
// endpoint uses, so single edits and batches can never drift apart. Unlike
// batches, structural single edits (delete, reorder) change which stops are
// adjacent, so they finish with a provider refresh of the day's travel legs.
type ScheduleService struct {
	TripRepo     repositories.TripRepository
	ScheduleRepo repositories.ScheduleRepository
	Mods         ModificationService
	Recalc       RecalcService
	DB           *sql.DB
}

func (s ScheduleService) schedules() repositories.ScheduleRepository {
	if s.ScheduleRepo.DB != nil || s.ScheduleRepo.Q != nil {
		return s.ScheduleRepo
	}
	if s.DB != nil {
		return repositories.ScheduleRepository{DB: s.DB}
	}
	return repositories.ScheduleRepository{DB: intconfig.DB}
}

func (s ScheduleService) trips() repositories.TripRepository {
	if s.TripRepo.DB != nil || s.TripRepo.Q != nil {
		return s.TripRepo
	}
	if s.DB != nil {
		return repositories.TripRepository{DB: s.DB}
	}
	return repositories.TripRepository{DB: intconfig.DB}
}

func (s ScheduleService) GetDaySchedule(ctx context.Context, tripID int64, day int) ([]models.Schedule, error) {
	if _, err := s.trips().GetTrip(tripID); err != nil {
		return nil, err
	}
	if day < 1 {
		return nil, domain.ValidationError{Field: "day", Msg: "must be at least 1"}
	}
	return s.schedules().ListDay(tripID, day)
}

// locate resolves a stop to its (trip, day) so single-item operations can reuse
// the batch pipeline.
func (s ScheduleService) locate(scheduleID int64) (models.Schedule, error) {
	return s.schedules().GetByID(scheduleID)
}

// DeleteStop removes the stop and refreshes the surviving day's legs: the stops
// around the gap are now adjacent and their old travel times describe routes
// that no longer exist.
func (s ScheduleService) DeleteStop(ctx context.Context, scheduleID int64) ([]models.Schedule, error) {
	stop, err := s.locate(scheduleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Mods.Apply(ctx, stop.TripID, stop.DayNumber, []models.ModificationItem{
		{Kind: models.ModDelete, ScheduleID: scheduleID},
	}); err != nil {
		return nil, err
	}
	return s.Recalc.RecalcTravelTimes(ctx, stop.TripID, stop.DayNumber)
}

// ReorderStop moves the stop and then recomputes every leg of the day; moving
// one stop rewires up to three adjacencies, so the whole day is refreshed.
func (s ScheduleService) ReorderStop(ctx context.Context, scheduleID int64, position int) ([]models.Schedule, error) {
	stop, err := s.locate(scheduleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Mods.Apply(ctx, stop.TripID, stop.DayNumber, []models.ModificationItem{
		{Kind: models.ModReorder, ScheduleID: scheduleID, Position: position},
	}); err != nil {
		return nil, err
	}
	return s.Recalc.RecalcTravelTimes(ctx, stop.TripID, stop.DayNumber)
}

func (s ScheduleService) UpdateStayDuration(ctx context.Context, scheduleID int64, minutes int) ([]models.Schedule, error) {
	stop, err := s.locate(scheduleID)
	if err != nil {
		return nil, err
	}
	return s.Mods.Apply(ctx, stop.TripID, stop.DayNumber, []models.ModificationItem{
		{Kind: models.ModUpdateStayDuration, ScheduleID: scheduleID, Minutes: minutes},
	})
}

func (s ScheduleService) UpdateVisitTime(ctx context.Context, scheduleID int64, visitTime string) ([]models.Schedule, error) {
	stop, err := s.locate(scheduleID)
	if err != nil {
		return nil, err
	}
	return s.Mods.Apply(ctx, stop.TripID, stop.DayNumber, []models.ModificationItem{
		{Kind: models.ModUpdateVisitTime, ScheduleID: scheduleID, VisitTime: visitTime},
	})
}

func (s ScheduleService) UpdateTravelTime(ctx context.Context, scheduleID int64, minutes int) ([]models.Schedule, error) {
	stop, err := s.locate(scheduleID)
	if err != nil {
		return nil, err
	}
	return s.Mods.Apply(ctx, stop.TripID, stop.DayNumber, []models.ModificationItem{
		{Kind: models.ModUpdateTravelTime, ScheduleID: scheduleID, Minutes: minutes},
	})
}

// UpdateAccommodation relocates the day's lodging, then recomputes only the two
// legs touching it.
func (s ScheduleService) UpdateAccommodation(ctx context.Context, scheduleID int64, placeName string, lat, lng float64) ([]models.Schedule, error) {
	stop, err := s.locate(scheduleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Mods.Apply(ctx, stop.TripID, stop.DayNumber, []models.ModificationItem{
		{Kind: models.ModUpdateAccommodation, ScheduleID: scheduleID, PlaceName: placeName, Lat: lat, Lng: lng},
	}); err != nil {
		return nil, err
	}
	if err := s.Recalc.RecalcAccommodationLegs(ctx, stop.TripID, stop.DayNumber); err != nil {
		return nil, err
	}
	return s.schedules().ListDay(stop.TripID, stop.DayNumber)
}

// AddStopNow is the synchronous add used outside batches; the provider call
// gives the caller final timing immediately.
func (s ScheduleService) AddStopNow(ctx context.Context, tripID int64, day int, item models.ModificationItem) ([]models.Schedule, error) {
	return s.Mods.AddStopNow(ctx, tripID, day, item)
}

func (s ScheduleService) MarkVisited(ctx context.Context, scheduleID int64, visited bool) error {
	if _, err := s.locate(scheduleID); err != nil {
		return err
	}
	return s.schedules().SetVisited(scheduleID, visited)
}
