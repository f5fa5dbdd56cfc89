package repositories

import (
	"database/sql"

	intconfig "tripmate/internal/config"
	"tripmate/internal/domain"
	"tripmate/internal/domain/models"
)

type RoomRepository struct {
	DB *sql.DB
	Q  Querier
}

func (r RoomRepository) q() Querier {
	if r.Q != nil {
		return r.Q
	}
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r RoomRepository) GetRoom(roomID int64) (models.Room, error) {
	var room models.Room
	var travelMode sql.NullString
	err := r.q().QueryRow(`
		SELECT id, name, country, start_date, end_date, travel_mode
		FROM rooms
		WHERE id = ?
	`, roomID).Scan(&room.ID, &room.Name, &room.Country, &room.StartDate, &room.EndDate, &travelMode)
	if err == sql.ErrNoRows {
		return models.Room{}, domain.NotFoundError{Resource: "room"}
	}
	if err != nil {
		return models.Room{}, err
	}
	room.TravelMode = travelMode.String
	return room, nil
}

func (r RoomRepository) IsMember(roomID, userID int64) (bool, error) {
	var n int
	err := r.q().QueryRow(`
		SELECT COUNT(*) FROM room_members WHERE room_id = ? AND user_id = ?
	`, roomID, userID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r RoomRepository) MemberCount(roomID int64) (int, error) {
	var n int
	err := r.q().QueryRow(`
		SELECT COUNT(*) FROM room_members WHERE room_id = ?
	`, roomID).Scan(&n)
	return n, err
}

func (r RoomRepository) ListPlaces(roomID int64) ([]models.RoomPlace, error) {
	rows, err := r.q().Query(`
		SELECT id, room_id, name, tag, must_visit
		FROM room_places
		WHERE room_id = ?
		ORDER BY id ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.RoomPlace{}
	for rows.Next() {
		var p models.RoomPlace
		if err := rows.Scan(&p.ID, &p.RoomID, &p.Name, &p.Tag, &p.MustVisit); err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
