package repositories

import (
	"database/sql"

	intconfig "tripmate/internal/config"
	"tripmate/internal/domain"
	"tripmate/internal/domain/models"
	"tripmate/internal/utils"
)

type TripRepository struct {
	DB *sql.DB
	Q  Querier
}

func (r TripRepository) q() Querier {
	if r.Q != nil {
		return r.Q
	}
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r TripRepository) WithTx(tx *sql.Tx) TripRepository {
	return TripRepository{DB: r.DB, Q: tx}
}

const tripColumns = `id, room_id, destination, version_status, trip_status,
	COALESCE(travel_mode,''), budget, COALESCE(lodging_cost_info,''), created_at, updated_at`

func (r TripRepository) scanTrip(row *sql.Row) (models.Trip, error) {
	var t models.Trip
	err := row.Scan(
		&t.ID, &t.RoomID, &t.Destination, &t.VersionStatus, &t.TripStatus,
		&t.TravelMode, &t.Budget, &t.LodgingCostInfo, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

func (r TripRepository) GetTrip(tripID int64) (models.Trip, error) {
	t, err := r.scanTrip(r.q().QueryRow(`SELECT `+tripColumns+` FROM trips WHERE id = ?`, tripID))
	if err == sql.ErrNoRows {
		return models.Trip{}, domain.NotFoundError{Resource: "trip"}
	}
	return t, err
}

// FindNewTrip returns the room's currently active trip version, if any.
func (r TripRepository) FindNewTrip(roomID int64) (models.Trip, bool, error) {
	t, err := r.scanTrip(r.q().QueryRow(`
		SELECT `+tripColumns+` FROM trips WHERE room_id = ? AND version_status = ?
	`, roomID, models.VersionNew))
	if err == sql.ErrNoRows {
		return models.Trip{}, false, nil
	}
	if err != nil {
		return models.Trip{}, false, err
	}
	return t, true, nil
}

// DemoteNewTrips flips the room's current NEW trip to OLD. Called in the same
// transaction that inserts a freshly generated trip, keeping history append-only.
func (r TripRepository) DemoteNewTrips(roomID int64) error {
	_, err := r.q().Exec(`
		UPDATE trips SET version_status = ?, updated_at = ? WHERE room_id = ? AND version_status = ?
	`, models.VersionOld, utils.NowUTC(), roomID, models.VersionNew)
	return err
}

func (r TripRepository) InsertTrip(t models.Trip) (int64, error) {
	now := utils.NowUTC()
	res, err := r.q().Exec(`
		INSERT INTO trips (room_id, destination, version_status, trip_status, travel_mode,
			budget, lodging_cost_info, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.RoomID, t.Destination, t.VersionStatus, t.TripStatus, nullIfEmpty(t.TravelMode),
		t.Budget, t.LodgingCostInfo, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AcceptTrip flips a READY trip to ACCEPTED. Accepting an already accepted trip is a
// no-op, not an error; existence is checked by the caller via GetTrip.
func (r TripRepository) AcceptTrip(tripID int64) error {
	_, err := r.q().Exec(`
		UPDATE trips SET trip_status = ?, updated_at = ? WHERE id = ?
	`, models.TripStatusAccepted, utils.NowUTC(), tripID)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
