package services

import (
	"context"
	"testing"
	"time"

	"tripmate/internal/domain"
	"tripmate/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func testDay(stops ...models.Schedule) *dayState {
	return &dayState{
		tripID: 1,
		day:    1,
		date:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		stops:  stops,
	}
}

func threeStops() []models.Schedule {
	return []models.Schedule{
		testStop(1, 1, "A", at(9, 0), at(10, 0), "30m"),
		testStop(2, 2, "B", at(10, 30), at(11, 30), "15m"),
		testStop(3, 3, "C", at(11, 45), at(12, 45), ""),
	}
}

func names(stops []models.Schedule) []string {
	out := make([]string, len(stops))
	for i, s := range stops {
		out[i] = s.PlaceName
	}
	return out
}

func TestRunPipelineReorderMovesStop(t *testing.T) {
	st := testDay(threeStops()...)
	err := runPipeline(st, []models.ModificationItem{
		{Kind: models.ModReorder, ScheduleID: 2, Position: 1},
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	got := names(st.stops)
	want := []string{"B", "A", "C"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order after reorder = %v, want %v", got, want)
		}
		if st.stops[i].VisitOrder != i+1 {
			t.Fatalf("visit order not contiguous: %+v", st.stops[i])
		}
	}
	// B keeps its dwell, A is re-chained after it.
	if st.stops[0].StayDuration() != time.Hour {
		t.Fatalf("B dwell changed: %v", st.stops[0].StayDuration())
	}
}

func TestRunPipelineDeleteRenumbers(t *testing.T) {
	st := testDay(threeStops()...)
	err := runPipeline(st, []models.ModificationItem{
		{Kind: models.ModDelete, ScheduleID: 2},
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if len(st.stops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(st.stops))
	}
	if st.stops[0].PlaceName != "A" || st.stops[1].PlaceName != "C" {
		t.Fatalf("wrong survivors: %v", names(st.stops))
	}
	if st.stops[0].VisitOrder != 1 || st.stops[1].VisitOrder != 2 {
		t.Fatalf("orders not renumbered: %d, %d", st.stops[0].VisitOrder, st.stops[1].VisitOrder)
	}
	// C now follows A's 30m leg.
	if !st.stops[1].Arrival.Equal(at(10, 30)) {
		t.Fatalf("C arrival = %v, want 10:30", st.stops[1].Arrival)
	}
}

func TestRunPipelineOrderIndependent(t *testing.T) {
	items := []models.ModificationItem{
		{Kind: models.ModUpdateStayDuration, ScheduleID: 1, Minutes: 90},
		{Kind: models.ModDelete, ScheduleID: 3},
		{Kind: models.ModReorder, ScheduleID: 2, Position: 1},
	}
	reversed := []models.ModificationItem{items[2], items[1], items[0]}

	a := testDay(models.CopySchedules(threeStops())...)
	b := testDay(models.CopySchedules(threeStops())...)
	if err := runPipeline(a, items); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := runPipeline(b, reversed); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if len(a.stops) != len(b.stops) {
		t.Fatalf("lengths differ: %d vs %d", len(a.stops), len(b.stops))
	}
	for i := range a.stops {
		if a.stops[i].PlaceName != b.stops[i].PlaceName ||
			!a.stops[i].Arrival.Equal(b.stops[i].Arrival) ||
			!a.stops[i].Departure.Equal(b.stops[i].Departure) {
			t.Fatalf("results diverge at %d:\n%+v\n%+v", i, a.stops[i], b.stops[i])
		}
	}
}

func TestRunPipelineUnknownKindRejected(t *testing.T) {
	st := testDay(threeStops()...)
	err := runPipeline(st, []models.ModificationItem{{Kind: "EXPLODE", ScheduleID: 1}})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(st.stops) != 3 {
		t.Fatalf("day mutated despite rejected batch")
	}
}

func TestRunPipelineUnknownScheduleRejected(t *testing.T) {
	st := testDay(threeStops()...)
	err := runPipeline(st, []models.ModificationItem{
		{Kind: models.ModUpdateStayDuration, ScheduleID: 999, Minutes: 30},
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestApplyAddOnEmptyDay(t *testing.T) {
	st := testDay()
	err := runPipeline(st, []models.ModificationItem{
		{Kind: models.ModAdd, PlaceName: "Museum", Minutes: 60},
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if len(st.stops) != 1 {
		t.Fatalf("expected 1 stop, got %d", len(st.stops))
	}
	s := st.stops[0]
	if s.VisitOrder != 1 {
		t.Fatalf("visit order = %d", s.VisitOrder)
	}
	if !s.Arrival.Equal(at(9, 0)) || !s.Departure.Equal(at(10, 0)) {
		t.Fatalf("anchor times wrong: %v - %v", s.Arrival, s.Departure)
	}
}

func TestApplyAddGoesAfterLastActivityBeforeLodging(t *testing.T) {
	st := testDay(
		testStop(1, 1, "A", at(9, 0), at(10, 0), "30m"),
		testStop(2, 2, "B", at(10, 30), at(11, 30), "20m"),
		models.Schedule{
			ID: 3, TripID: 1, DayNumber: 1, VisitOrder: 3,
			VisitDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			PlaceName: "Hotel", PlaceTag: models.PlaceTagHome,
			Arrival: at(11, 50), Departure: at(11, 50),
		},
	)
	err := runPipeline(st, []models.ModificationItem{
		{Kind: models.ModAdd, PlaceName: "Cafe", Minutes: 45},
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	got := names(st.stops)
	want := []string{"A", "B", "Cafe", "Hotel"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("placement wrong: %v, want %v", got, want)
		}
	}
	if st.stops[2].TravelTime != "" {
		t.Fatalf("batch add must not fill travel time, got %q", st.stops[2].TravelTime)
	}
}

func TestApplyAddBeforeLoneLodging(t *testing.T) {
	st := testDay(models.Schedule{
		ID: 1, TripID: 1, DayNumber: 1, VisitOrder: 1,
		VisitDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		PlaceName: "Hotel", PlaceTag: models.PlaceTagHome,
		Arrival: at(18, 0), Departure: at(18, 0),
	})
	err := runPipeline(st, []models.ModificationItem{
		{Kind: models.ModAdd, PlaceName: "Park", Minutes: 30},
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if st.stops[0].PlaceName != "Park" || st.stops[1].PlaceName != "Hotel" {
		t.Fatalf("add should precede the lone lodging: %v", names(st.stops))
	}
}

func TestApplyAddRequiresPlaceName(t *testing.T) {
	st := testDay()
	err := runPipeline(st, []models.ModificationItem{{Kind: models.ModAdd, Minutes: 30}})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyReorderRejectsOutOfRangePosition(t *testing.T) {
	for _, pos := range []int{0, 4, -1} {
		st := testDay(threeStops()...)
		err := runPipeline(st, []models.ModificationItem{
			{Kind: models.ModReorder, ScheduleID: 1, Position: pos},
		})
		if !domain.IsValidation(err) {
			t.Fatalf("position %d: expected validation error, got %v", pos, err)
		}
	}
}

func TestApplyUpdateAccommodationRejectsActivity(t *testing.T) {
	st := testDay(threeStops()...)
	err := runPipeline(st, []models.ModificationItem{
		{Kind: models.ModUpdateAccommodation, ScheduleID: 1, PlaceName: "New Hotel", Lat: 1, Lng: 2},
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyUpdateVisitTimePreservesStay(t *testing.T) {
	st := testDay(threeStops()...)
	err := runPipeline(st, []models.ModificationItem{
		{Kind: models.ModUpdateVisitTime, ScheduleID: 1, VisitTime: "11:00"},
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if !st.stops[0].Arrival.Equal(at(11, 0)) {
		t.Fatalf("arrival = %v, want 11:00", st.stops[0].Arrival)
	}
	if st.stops[0].StayDuration() != time.Hour {
		t.Fatalf("dwell changed: %v", st.stops[0].StayDuration())
	}
	// Downstream stops shift with the new anchor.
	if !st.stops[1].Arrival.Equal(at(12, 30)) {
		t.Fatalf("B arrival = %v, want 12:30", st.stops[1].Arrival)
	}
}

func TestApplyUpdateStayDurationShiftsDownstream(t *testing.T) {
	st := testDay(threeStops()...)
	err := runPipeline(st, []models.ModificationItem{
		{Kind: models.ModUpdateStayDuration, ScheduleID: 1, Minutes: 90},
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if !st.stops[0].Departure.Equal(at(10, 30)) {
		t.Fatalf("A departure = %v, want 10:30", st.stops[0].Departure)
	}
	if !st.stops[1].Arrival.Equal(at(11, 0)) {
		t.Fatalf("B arrival = %v, want 11:00", st.stops[1].Arrival)
	}
	if st.stops[1].StayDuration() != time.Hour {
		t.Fatalf("B dwell changed: %v", st.stops[1].StayDuration())
	}
}

var tripCols = []string{"id", "room_id", "destination", "version_status", "trip_status",
	"travel_mode", "budget", "lodging_cost_info", "created_at", "updated_at"}

var scheduleCols = []string{"id", "trip_id", "day_number", "visit_date", "visit_order",
	"place_name", "place_tag", "lat", "lng", "visited", "arrival", "departure",
	"travel_time", "estimated_cost", "cost_notes"}

func tripRow() *sqlmock.Rows {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(tripCols).
		AddRow(int64(1), int64(10), "Lisbon", models.VersionNew, models.TripStatusReady,
			"DRIVING", int64(0), "", now, now)
}

func scheduleRows(stops []models.Schedule) *sqlmock.Rows {
	rows := sqlmock.NewRows(scheduleCols)
	for _, s := range stops {
		rows.AddRow(s.ID, s.TripID, s.DayNumber, s.VisitDate, s.VisitOrder,
			s.PlaceName, s.PlaceTag, s.Lat, s.Lng, s.Visited, s.Arrival, s.Departure,
			s.TravelTime, nil, "")
	}
	return rows
}

// Preview must run the same pipeline as Apply but issue reads only; any write
// or transaction would be an unexpected call and fail the mock.
func TestPreviewWritesNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM trips WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(tripRow())
	mock.ExpectQuery("FROM schedules").
		WithArgs(int64(1), 1).
		WillReturnRows(scheduleRows(threeStops()))

	svc := ModificationService{DB: db}
	out, err := svc.Preview(context.Background(), 1, 1, []models.ModificationItem{
		{Kind: models.ModDelete, ScheduleID: 2},
	})
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 stops in preview, got %d", len(out))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPreviewRejectsInvalidDay(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM trips WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(tripRow())

	svc := ModificationService{DB: db}
	if _, err := svc.Preview(context.Background(), 1, 0, nil); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for day 0, got %v", err)
	}
}

func TestApplyPersistsInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery("FROM trips WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(tripRow())
	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules").
		WithArgs(int64(1), 1).
		WillReturnRows(scheduleRows(threeStops()))
	mock.ExpectExec("DELETE FROM schedules").
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE schedules SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE schedules SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := ModificationService{DB: db}
	out, err := svc.Apply(context.Background(), 1, 1, []models.ModificationItem{
		{Kind: models.ModDelete, ScheduleID: 2},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 stops after delete, got %d", len(out))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
