package repositories

import (
	"database/sql"

	intconfig "tripmate/internal/config"
	"tripmate/internal/domain"
	"tripmate/internal/domain/models"
)

type ScheduleRepository struct {
	DB *sql.DB
	Q  Querier
}

func (r ScheduleRepository) q() Querier {
	if r.Q != nil {
		return r.Q
	}
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r ScheduleRepository) WithTx(tx *sql.Tx) ScheduleRepository {
	return ScheduleRepository{DB: r.DB, Q: tx}
}

const scheduleColumns = `id, trip_id, day_number, visit_date, visit_order, place_name,
	place_tag, lat, lng, visited, arrival, departure, COALESCE(travel_time,''),
	estimated_cost, COALESCE(cost_notes,'')`

func scanSchedule(scan func(dest ...any) error) (models.Schedule, error) {
	var s models.Schedule
	var cost sql.NullInt64
	err := scan(
		&s.ID, &s.TripID, &s.DayNumber, &s.VisitDate, &s.VisitOrder, &s.PlaceName,
		&s.PlaceTag, &s.Lat, &s.Lng, &s.Visited, &s.Arrival, &s.Departure, &s.TravelTime,
		&cost, &s.CostNotes,
	)
	if err != nil {
		return models.Schedule{}, err
	}
	if cost.Valid {
		v := cost.Int64
		s.EstimatedCost = &v
	}
	return s, nil
}

func (r ScheduleRepository) GetByID(scheduleID int64) (models.Schedule, error) {
	row := r.q().QueryRow(`SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, scheduleID)
	s, err := scanSchedule(row.Scan)
	if err == sql.ErrNoRows {
		return models.Schedule{}, domain.NotFoundError{Resource: "schedule"}
	}
	return s, err
}

// ListDay returns a day's stops ordered by visit_order with id as the stable
// tiebreaker.
func (r ScheduleRepository) ListDay(tripID int64, day int) ([]models.Schedule, error) {
	rows, err := r.q().Query(`
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE trip_id = ? AND day_number = ?
		ORDER BY visit_order ASC, id ASC
	`, tripID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Schedule{}
	for rows.Next() {
		s, err := scanSchedule(rows.Scan)
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FirstOfDay returns the day's first stop in visit order, if the day has any.
func (r ScheduleRepository) FirstOfDay(tripID int64, day int) (models.Schedule, bool, error) {
	row := r.q().QueryRow(`
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE trip_id = ? AND day_number = ?
		ORDER BY visit_order ASC, id ASC
		LIMIT 1
	`, tripID, day)
	s, err := scanSchedule(row.Scan)
	if err == sql.ErrNoRows {
		return models.Schedule{}, false, nil
	}
	if err != nil {
		return models.Schedule{}, false, err
	}
	return s, true, nil
}

func (r ScheduleRepository) Insert(s models.Schedule) (int64, error) {
	res, err := r.q().Exec(`
		INSERT INTO schedules (trip_id, day_number, visit_date, visit_order, place_name,
			place_tag, lat, lng, visited, arrival, departure, travel_time, estimated_cost, cost_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.TripID, s.DayNumber, s.VisitDate, s.VisitOrder, s.PlaceName,
		s.PlaceTag, s.Lat, s.Lng, s.Visited, s.Arrival, s.Departure, s.TravelTime,
		nullCost(s.EstimatedCost), s.CostNotes)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// BulkInsert persists the schedules of a freshly generated trip.
func (r ScheduleRepository) BulkInsert(stops []models.Schedule) error {
	for _, s := range stops {
		if _, err := r.Insert(s); err != nil {
			return err
		}
	}
	return nil
}

func (r ScheduleRepository) Update(s models.Schedule) error {
	_, err := r.q().Exec(`
		UPDATE schedules SET
			day_number=?, visit_date=?, visit_order=?, place_name=?, place_tag=?,
			lat=?, lng=?, visited=?, arrival=?, departure=?, travel_time=?,
			estimated_cost=?, cost_notes=?
		WHERE id = ?
	`, s.DayNumber, s.VisitDate, s.VisitOrder, s.PlaceName, s.PlaceTag,
		s.Lat, s.Lng, s.Visited, s.Arrival, s.Departure, s.TravelTime,
		nullCost(s.EstimatedCost), s.CostNotes, s.ID)
	return err
}

func (r ScheduleRepository) Delete(scheduleID int64) error {
	_, err := r.q().Exec(`DELETE FROM schedules WHERE id = ?`, scheduleID)
	return err
}

func (r ScheduleRepository) SetVisited(scheduleID int64, visited bool) error {
	res, err := r.q().Exec(`UPDATE schedules SET visited = ? WHERE id = ?`, visited, scheduleID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(scheduleID); err != nil {
			return err
		}
	}
	return nil
}

func nullCost(c *int64) any {
	if c == nil {
		return nil
	}
	return *c
}
