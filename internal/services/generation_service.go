package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tripmate/internal/clients"
	intconfig "tripmate/internal/config"
	"tripmate/internal/domain"
	"tripmate/internal/domain/models"
	"tripmate/internal/events"
	"tripmate/internal/lock"
	"tripmate/internal/repositories"
	"tripmate/internal/utils"
	"tripmate/internal/worker"
)

// Poll statuses. WAITING covers both the pre-call and in-call lease states;
// pollers cannot and need not distinguish them. A failed generation leaves no
// persisted status: the lease disappears and polling reports NOT_STARTED again,
// permitting retry.
const (
	GenerationNotStarted = "NOT_STARTED"
	GenerationWaiting    = "WAITING"
	GenerationSuccess    = "SUCCESS"
)

type GenerationStatus struct {
	Status string `json:"status"`
	TripID int64  `json:"trip_id,omitempty"`
}

// PreferenceSource supplies the room's chat-derived generation hints. Chat
// itself lives in another service.
type PreferenceSource interface {
	Preferences(ctx context.Context, roomID int64) (rules []string, excerpts []string, err error)
}

// GenerationService serializes itinerary generation per room behind a TTL
// lease, runs the planner call off the request path on the worker pool, and
// persists the result as the room's new trip version.
type GenerationService struct {
	RoomRepo     repositories.RoomRepository
	TripRepo     repositories.TripRepository
	ScheduleRepo repositories.ScheduleRepository
	Planner      clients.PlannerClient
	Lock         lock.Lock
	Publisher    events.Publisher
	Pool         *worker.Pool
	Prefs        PreferenceSource
	DB           *sql.DB

	WaitingTTL time.Duration
	RunningTTL time.Duration
}

func (s GenerationService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s GenerationService) rooms() repositories.RoomRepository {
	if s.RoomRepo.DB != nil || s.RoomRepo.Q != nil {
		return s.RoomRepo
	}
	return repositories.RoomRepository{DB: s.db()}
}

func (s GenerationService) trips() repositories.TripRepository {
	if s.TripRepo.DB != nil || s.TripRepo.Q != nil {
		return s.TripRepo
	}
	return repositories.TripRepository{DB: s.db()}
}

func (s GenerationService) schedules() repositories.ScheduleRepository {
	if s.ScheduleRepo.DB != nil || s.ScheduleRepo.Q != nil {
		return s.ScheduleRepo
	}
	return repositories.ScheduleRepository{DB: s.db()}
}

func (s GenerationService) waitingTTL() time.Duration {
	if s.WaitingTTL > 0 {
		return s.WaitingTTL
	}
	return 2 * time.Minute
}

func (s GenerationService) runningTTL() time.Duration {
	if s.RunningTTL > 0 {
		return s.RunningTTL
	}
	return 10 * time.Minute
}

func leaseKey(roomID int64) string {
	return fmt.Sprintf("generation:room:%d", roomID)
}

// RequestGeneration acquires the room's lease and schedules the generation work.
// It returns as soon as the lease is held; the caller polls for the outcome.
// A second request while a lease exists is rejected, never queued.
func (s GenerationService) RequestGeneration(ctx context.Context, roomID, userID int64) error {
	room, err := s.rooms().GetRoom(roomID)
	if err != nil {
		return err
	}
	member, err := s.rooms().IsMember(roomID, userID)
	if err != nil {
		return domain.InternalError{Msg: "membership lookup", Err: err}
	}
	if !member {
		return domain.AuthorizationError{Msg: "caller is not a room participant"}
	}

	acquired, err := s.Lock.Acquire(ctx, leaseKey(roomID), lock.StateWaiting, s.waitingTTL())
	if err != nil {
		return domain.InternalError{Msg: "acquire generation lease", Err: err}
	}
	if !acquired {
		return domain.ConflictError{Resource: "generation", Msg: "already in progress for this room"}
	}

	if !s.Pool.Submit(func() { s.runGeneration(room) }) {
		_ = s.Lock.Release(ctx, leaseKey(roomID))
		return domain.InternalError{Msg: "worker pool is shut down"}
	}

	utils.LogEvent("", "generation", "requested", fmt.Sprintf("room_id=%d user_id=%d", roomID, userID))
	return nil
}

// runGeneration is the worker-side job. The lease is released on every exit
// path — success, typed failure, or panic — so a dead generation never wedges
// the room until TTL expiry.
func (s GenerationService) runGeneration(room models.Room) {
	ctx := context.Background()
	defer func() {
		if err := s.Lock.Release(ctx, leaseKey(room.ID)); err != nil {
			utils.LogEvent("", "generation", "release_failed", fmt.Sprintf("room_id=%d err=%v", room.ID, err))
		}
	}()

	tripID, err := s.generate(ctx, room)
	if err != nil {
		utils.LogEvent("", "generation", "failed", fmt.Sprintf("room_id=%d err=%v", room.ID, err))
		s.Publisher.TripFailed(ctx, room.ID)
		return
	}

	utils.LogEvent("", "generation", "succeeded", fmt.Sprintf("room_id=%d trip_id=%d", room.ID, tripID))
	s.Publisher.TripGenerated(ctx, tripID, room.ID)
}

func (s GenerationService) generate(ctx context.Context, room models.Room) (int64, error) {
	req, err := s.buildRequest(ctx, room)
	if err != nil {
		return 0, err
	}

	// The WAITING TTL only needs to cover payload assembly; the planner call
	// gets the longer RUNNING lease.
	if err := s.Lock.Extend(ctx, leaseKey(room.ID), lock.StateRunning, s.runningTTL()); err != nil {
		return 0, domain.InternalError{Msg: "extend generation lease", Err: err}
	}

	plan, err := s.Planner.GeneratePlan(ctx, req)
	if err != nil {
		return 0, err
	}

	return s.persistPlan(ctx, room, plan)
}

func (s GenerationService) buildRequest(ctx context.Context, room models.Room) (clients.PlanRequest, error) {
	places, err := s.rooms().ListPlaces(room.ID)
	if err != nil {
		return clients.PlanRequest{}, domain.InternalError{Msg: "load room places", Err: err}
	}
	memberCount, err := s.rooms().MemberCount(room.ID)
	if err != nil {
		return clients.PlanRequest{}, domain.InternalError{Msg: "count room members", Err: err}
	}

	req := clients.PlanRequest{
		Days:         room.Days(),
		StartDate:    utils.FormatDate(room.StartDate),
		Country:      room.Country,
		MemberCount:  memberCount,
		Places:       make([]clients.PlanPlace, 0, len(places)),
		MustVisit:    []string{},
		Rules:        []string{},
		ChatExcerpts: []string{},
	}
	for _, p := range places {
		req.Places = append(req.Places, clients.PlanPlace{Name: p.Name, Tag: p.Tag})
		if p.MustVisit {
			req.MustVisit = append(req.MustVisit, p.Name)
		}
	}

	if s.Prefs != nil {
		rules, excerpts, err := s.Prefs.Preferences(ctx, room.ID)
		if err != nil {
			utils.LogEvent("", "generation", "prefs_degraded", fmt.Sprintf("room_id=%d err=%v", room.ID, err))
		} else {
			req.Rules = rules
			req.ChatExcerpts = excerpts
		}
	}
	return req, nil
}

// persistPlan writes the new trip and its schedules in one transaction,
// demoting the room's previous NEW trip to OLD.
func (s GenerationService) persistPlan(ctx context.Context, room models.Room, plan clients.PlanResponse) (int64, error) {
	tx, err := s.db().BeginTx(ctx, nil)
	if err != nil {
		return 0, domain.InternalError{Msg: "begin transaction", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	tripRepo := s.trips().WithTx(tx)
	if err := tripRepo.DemoteNewTrips(room.ID); err != nil {
		return 0, domain.InternalError{Msg: "demote previous trip", Err: err}
	}

	tripID, err := tripRepo.InsertTrip(models.Trip{
		RoomID:          room.ID,
		Destination:     room.Country,
		VersionStatus:   models.VersionNew,
		TripStatus:      models.TripStatusReady,
		TravelMode:      plan.TravelMode,
		Budget:          plan.Budget,
		LodgingCostInfo: plan.AccommodationCostInfo,
	})
	if err != nil {
		return 0, domain.InternalError{Msg: "insert trip", Err: err}
	}

	stops := make([]models.Schedule, 0)
	for _, dayResult := range plan.Itinerary {
		date := room.StartDate.AddDate(0, 0, dayResult.Day-1)
		for i, visit := range dayResult.Visits {
			arrival, err := utils.CombineDateClock(date, visit.Arrival)
			if err != nil {
				return 0, domain.UpstreamError{Service: "planner", Err: fmt.Errorf("day %d visit %d arrival %q: %w", dayResult.Day, visit.Order, visit.Arrival, err)}
			}
			departure, err := utils.CombineDateClock(date, visit.Departure)
			if err != nil {
				return 0, domain.UpstreamError{Service: "planner", Err: fmt.Errorf("day %d visit %d departure %q: %w", dayResult.Day, visit.Order, visit.Departure, err)}
			}

			travelTime := ""
			if i < len(dayResult.Visits)-1 {
				travelTime = utils.HumanizeMinutes(visit.TravelTimeMinutes)
			}

			stops = append(stops, models.Schedule{
				TripID:        tripID,
				DayNumber:     dayResult.Day,
				VisitDate:     date,
				VisitOrder:    visit.Order,
				PlaceName:     visit.DisplayName,
				PlaceTag:      visit.PlaceTag,
				Lat:           visit.Lat,
				Lng:           visit.Long,
				Arrival:       arrival,
				Departure:     departure,
				TravelTime:    travelTime,
				EstimatedCost: visit.EstimatedCost,
				CostNotes:     visit.CostExplanation,
			})
		}
	}
	if err := s.schedules().WithTx(tx).BulkInsert(stops); err != nil {
		return 0, domain.InternalError{Msg: "insert schedules", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return 0, domain.InternalError{Msg: "commit transaction", Err: err}
	}
	return tripID, nil
}

// PollStatus reports WAITING while a lease exists for the room, SUCCESS with
// the current NEW trip id when one exists, and NOT_STARTED otherwise.
func (s GenerationService) PollStatus(ctx context.Context, roomID int64) (GenerationStatus, error) {
	held, err := s.Lock.Exists(ctx, leaseKey(roomID))
	if err != nil {
		return GenerationStatus{}, domain.InternalError{Msg: "check generation lease", Err: err}
	}
	if held {
		return GenerationStatus{Status: GenerationWaiting}, nil
	}

	trip, found, err := s.trips().FindNewTrip(roomID)
	if err != nil {
		return GenerationStatus{}, domain.InternalError{Msg: "find trip", Err: err}
	}
	if found {
		return GenerationStatus{Status: GenerationSuccess, TripID: trip.ID}, nil
	}
	return GenerationStatus{Status: GenerationNotStarted}, nil
}
