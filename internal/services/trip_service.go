package services

import (
	"context"
	"database/sql"

	intconfig "tripmate/internal/config"
	"tripmate/internal/domain/models"
	"tripmate/internal/repositories"
)

type TripService struct {
	TripRepo repositories.TripRepository
	DB       *sql.DB
}

func (s TripService) trips() repositories.TripRepository {
	if s.TripRepo.DB != nil || s.TripRepo.Q != nil {
		return s.TripRepo
	}
	if s.DB != nil {
		return repositories.TripRepository{DB: s.DB}
	}
	return repositories.TripRepository{DB: intconfig.DB}
}

func (s TripService) GetTrip(ctx context.Context, tripID int64) (models.Trip, error) {
	return s.trips().GetTrip(tripID)
}

// AcceptTrip flips the trip from READY to ACCEPTED. Idempotent.
func (s TripService) AcceptTrip(ctx context.Context, tripID int64) (models.Trip, error) {
	repo := s.trips()
	if _, err := repo.GetTrip(tripID); err != nil {
		return models.Trip{}, err
	}
	if err := repo.AcceptTrip(tripID); err != nil {
		return models.Trip{}, err
	}
	return repo.GetTrip(tripID)
}
