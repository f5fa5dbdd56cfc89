package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tripmate/internal/clients"
	"tripmate/internal/domain"
	"tripmate/internal/domain/models"
	"tripmate/internal/lock"
	"tripmate/internal/worker"

	"github.com/DATA-DOG/go-sqlmock"
)

type memLock struct {
	mu   sync.Mutex
	vals map[string]string
}

func newMemLock() *memLock {
	return &memLock{vals: map[string]string{}}
}

func (l *memLock) Acquire(ctx context.Context, key, state string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.vals[key]; held {
		return false, nil
	}
	l.vals[key] = state
	return true, nil
}

func (l *memLock) Extend(ctx context.Context, key, state string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.vals[key]; !held {
		return errors.New("lease not held")
	}
	l.vals[key] = state
	return nil
}

func (l *memLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.vals, key)
	return nil
}

func (l *memLock) Exists(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, held := l.vals[key]
	return held, nil
}

func (l *memLock) state(key string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.vals[key]
}

type fakePlanner struct {
	plan    clients.PlanResponse
	err     error
	lastReq clients.PlanRequest
	// state of the lease at call time, captured to assert the extend-before-call
	// ordering
	leaseState string
	lock       *memLock
	key        string
}

func (p *fakePlanner) GeneratePlan(ctx context.Context, req clients.PlanRequest) (clients.PlanResponse, error) {
	p.lastReq = req
	if p.lock != nil {
		p.leaseState = p.lock.state(p.key)
	}
	return p.plan, p.err
}

type recordPublisher struct {
	mu        sync.Mutex
	generated []int64
	failed    []int64
}

func (p *recordPublisher) TripGenerated(ctx context.Context, tripID, roomID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generated = append(p.generated, tripID)
}

func (p *recordPublisher) TripFailed(ctx context.Context, roomID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, roomID)
}

var roomCols = []string{"id", "name", "country", "start_date", "end_date", "travel_mode"}

func roomRow() *sqlmock.Rows {
	return sqlmock.NewRows(roomCols).AddRow(
		int64(10), "Summer trip", "Portugal",
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
		"DRIVING",
	)
}

func expectRoomAndMember(mock sqlmock.Sqlmock, member int) {
	mock.ExpectQuery("SELECT id, name, country, start_date, end_date, travel_mode").
		WithArgs(int64(10)).
		WillReturnRows(roomRow())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM room_members WHERE room_id = \? AND user_id`).
		WithArgs(int64(10), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(member))
}

func TestRequestGenerationRejectsSecondRequestWhileLeased(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	expectRoomAndMember(mock, 1)

	locks := newMemLock()
	if ok, _ := locks.Acquire(context.Background(), leaseKey(10), lock.StateWaiting, time.Minute); !ok {
		t.Fatalf("setup acquire failed")
	}

	svc := GenerationService{DB: db, Lock: locks, Publisher: &recordPublisher{}}
	err = svc.RequestGeneration(context.Background(), 10, 7)
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict while lease is held, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRequestGenerationRejectsNonMember(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	expectRoomAndMember(mock, 0)

	locks := newMemLock()
	svc := GenerationService{DB: db, Lock: locks, Publisher: &recordPublisher{}}
	err = svc.RequestGeneration(context.Background(), 10, 7)
	if !domain.IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if held, _ := locks.Exists(context.Background(), leaseKey(10)); held {
		t.Fatalf("lease acquired for rejected caller")
	}
}

func TestRequestGenerationRoomNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectQuery("SELECT id, name, country, start_date, end_date, travel_mode").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(roomCols))

	svc := GenerationService{DB: db, Lock: newMemLock(), Publisher: &recordPublisher{}}
	if err := svc.RequestGeneration(context.Background(), 99, 7); !domain.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRequestGenerationReleasesLeaseWhenPoolRejects(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	expectRoomAndMember(mock, 1)

	pool := worker.NewPool(1)
	pool.Shutdown()

	locks := newMemLock()
	svc := GenerationService{DB: db, Lock: locks, Publisher: &recordPublisher{}, Pool: pool}
	if err := svc.RequestGeneration(context.Background(), 10, 7); !domain.IsInternal(err) {
		t.Fatalf("expected internal error from shut-down pool, got %v", err)
	}
	if held, _ := locks.Exists(context.Background(), leaseKey(10)); held {
		t.Fatalf("lease must be released when the job cannot be scheduled")
	}
}

func expectGenerationReads(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT id, room_id, name, tag, must_visit").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "name", "tag", "must_visit"}).
			AddRow(int64(1), int64(10), "Belem Tower", "SIGHT", true).
			AddRow(int64(2), int64(10), "Time Out Market", "FOOD", false))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM room_members WHERE room_id = \?`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(3))
}

func testRoom() (int64, time.Time) {
	return 10, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}

func roomModel(roomID int64, start time.Time) models.Room {
	return models.Room{
		ID:        roomID,
		Name:      "Summer trip",
		Country:   "Portugal",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 2),
	}
}

func TestRunGenerationFailureReleasesLeaseAndPublishes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	expectGenerationReads(mock)

	locks := newMemLock()
	roomID, start := testRoom()
	if ok, _ := locks.Acquire(context.Background(), leaseKey(roomID), lock.StateWaiting, time.Minute); !ok {
		t.Fatalf("setup acquire failed")
	}

	planner := &fakePlanner{err: domain.UpstreamError{Service: "planner", Kind: "timeout", Err: errors.New("deadline")}}
	pub := &recordPublisher{}
	svc := GenerationService{DB: db, Lock: locks, Planner: planner, Publisher: pub}

	svc.runGeneration(roomModel(roomID, start))

	if held, _ := locks.Exists(context.Background(), leaseKey(roomID)); held {
		t.Fatalf("lease not released after failure")
	}
	if len(pub.failed) != 1 || pub.failed[0] != roomID {
		t.Fatalf("failure event not published: %v", pub.failed)
	}
	if len(pub.generated) != 0 {
		t.Fatalf("unexpected success event: %v", pub.generated)
	}
}

func TestRunGenerationSuccessPersistsAndPublishes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	expectGenerationReads(mock)

	cost := int64(1500)
	planner := &fakePlanner{
		plan: clients.PlanResponse{
			Budget:                120000,
			TravelMode:            "TRANSIT",
			AccommodationCostInfo: "hotel avg 90/night",
			Itinerary: []clients.PlanDayResult{{
				Day: 1,
				Visits: []clients.PlanVisit{
					{
						Order: 1, DisplayName: "Belem Tower", PlaceTag: "SIGHT",
						Lat: 38.69, Long: -9.21, Arrival: "09:00", Departure: "10:30",
						TravelTimeMinutes: 30, EstimatedCost: &cost, CostExplanation: "entry fee",
					},
					{
						Order: 2, DisplayName: "Time Out Market", PlaceTag: "FOOD",
						Lat: 38.70, Long: -9.14, Arrival: "11:00", Departure: "12:00",
						TravelTimeMinutes: 999, // last visit of the day: must not be persisted
					},
				},
			}},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE trips SET version_status").
		WithArgs("OLD", sqlmock.AnyArg(), int64(10), "NEW").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO trips").
		WithArgs(int64(10), "Portugal", "NEW", "READY", "TRANSIT",
			int64(120000), "hotel avg 90/night", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("INSERT INTO schedules").
		WithArgs(int64(42), 1, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 1,
			"Belem Tower", "SIGHT", 38.69, -9.21, false,
			time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 1, 10, 30, 0, 0, time.UTC),
			"30m", int64(1500), "entry fee").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO schedules").
		WithArgs(int64(42), 1, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 2,
			"Time Out Market", "FOOD", 38.70, -9.14, false,
			time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
			"", nil, "").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	locks := newMemLock()
	roomID, start := testRoom()
	if ok, _ := locks.Acquire(context.Background(), leaseKey(roomID), lock.StateWaiting, time.Minute); !ok {
		t.Fatalf("setup acquire failed")
	}
	planner.lock = locks
	planner.key = leaseKey(roomID)

	pub := &recordPublisher{}
	svc := GenerationService{DB: db, Lock: locks, Planner: planner, Publisher: pub}

	svc.runGeneration(roomModel(roomID, start))

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
	if len(pub.generated) != 1 || pub.generated[0] != 42 {
		t.Fatalf("success event not published with trip id: %v", pub.generated)
	}
	if held, _ := locks.Exists(context.Background(), leaseKey(roomID)); held {
		t.Fatalf("lease not released after success")
	}
	if planner.leaseState != lock.StateRunning {
		t.Fatalf("lease state during planner call = %q, want RUNNING", planner.leaseState)
	}

	req := planner.lastReq
	if req.Days != 3 {
		t.Fatalf("days = %d, want 3 (inclusive range)", req.Days)
	}
	if req.MemberCount != 3 {
		t.Fatalf("member count = %d, want 3", req.MemberCount)
	}
	if len(req.Places) != 2 {
		t.Fatalf("places = %d, want 2", len(req.Places))
	}
	if len(req.MustVisit) != 1 || req.MustVisit[0] != "Belem Tower" {
		t.Fatalf("must-visit list wrong: %v", req.MustVisit)
	}
}

func TestPollStatusTransitions(t *testing.T) {
	ctx := context.Background()

	// Lease held: WAITING regardless of persisted trips.
	locks := newMemLock()
	_, _ = locks.Acquire(ctx, leaseKey(10), lock.StateRunning, time.Minute)
	svc := GenerationService{Lock: locks}
	got, err := svc.PollStatus(ctx, 10)
	if err != nil || got.Status != GenerationWaiting {
		t.Fatalf("status while leased = %+v, %v; want WAITING", got, err)
	}

	// No lease, NEW trip exists: SUCCESS with its id.
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectQuery("FROM trips WHERE room_id").
		WithArgs(int64(10), "NEW").
		WillReturnRows(tripRow())
	svc = GenerationService{DB: db, Lock: newMemLock()}
	got, err = svc.PollStatus(ctx, 10)
	if err != nil || got.Status != GenerationSuccess || got.TripID != 1 {
		t.Fatalf("status with NEW trip = %+v, %v; want SUCCESS trip 1", got, err)
	}

	// No lease, no trip: NOT_STARTED.
	mock.ExpectQuery("FROM trips WHERE room_id").
		WithArgs(int64(10), "NEW").
		WillReturnRows(sqlmock.NewRows(tripCols))
	got, err = svc.PollStatus(ctx, 10)
	if err != nil || got.Status != GenerationNotStarted {
		t.Fatalf("status with nothing = %+v, %v; want NOT_STARTED", got, err)
	}
}
