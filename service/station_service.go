package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/soob-forest/atdd-subway-admin/metrics"
	"github.com/soob-forest/atdd-subway-admin/models"
	"github.com/soob-forest/atdd-subway-admin/repository"
)

// StationService is the station registry. Lines only reference stations
// created here; they never create or delete them.
type StationService struct {
	repo StationRepository
}

// NewStationService creates a StationService backed by repo.
func NewStationService(repo StationRepository) *StationService {
	return &StationService{repo: repo}
}

// Create registers a new station.
func (s *StationService) Create(ctx context.Context, name string) (*models.Station, error) {
	station, err := models.NewStation(name)
	if err != nil {
		metrics.MutationRejected(metrics.OpCreateStation, models.ErrorKind(err))
		return nil, err
	}
	if err := s.repo.CreateStation(ctx, station); err != nil {
		return nil, fmt.Errorf("service: create station: %w", err)
	}
	metrics.MutationApplied(metrics.OpCreateStation)
	return station, nil
}

// Get returns a station by ID.
func (s *StationService) Get(ctx context.Context, id models.StationID) (*models.Station, error) {
	station, err := s.repo.GetStation(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrStationUnknown, id)
		}
		return nil, fmt.Errorf("service: get station %s: %w", id, err)
	}
	return station, nil
}

// List returns all registered stations.
func (s *StationService) List(ctx context.Context) ([]models.Station, error) {
	stations, err := s.repo.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: list stations: %w", err)
	}
	return stations, nil
}

// Delete removes a station that no line runs through.
func (s *StationService) Delete(ctx context.Context, id models.StationID) error {
	inUse, err := s.repo.IsStationReferenced(ctx, id)
	if err != nil {
		return fmt.Errorf("service: delete station %s: %w", id, err)
	}
	if inUse {
		metrics.MutationRejected(metrics.OpDeleteStation, "station_in_use")
		return fmt.Errorf("%w: %s", ErrStationInUse, id)
	}

	if err := s.repo.DeleteStation(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrStationUnknown, id)
		}
		return fmt.Errorf("service: delete station %s: %w", id, err)
	}
	metrics.MutationApplied(metrics.OpDeleteStation)
	return nil
}
