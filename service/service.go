// Package service implements line and station administration on top of the
// domain models and a repository.
package service

import (
	"context"
	"errors"

	"github.com/soob-forest/atdd-subway-admin/models"
)

var (
	// ErrLineNotFound is returned when the requested line does not exist.
	ErrLineNotFound = errors.New("line not found")

	// ErrStationUnknown is returned when a station ID is not in the station registry.
	ErrStationUnknown = errors.New("station not found")

	// ErrStationInUse is returned when deleting a station that a line still runs through.
	ErrStationInUse = errors.New("station is used by a line")

	// ErrDuplicateLineName is returned when another line already has the name.
	ErrDuplicateLineName = errors.New("line name already exists")
)

// StationRepository defines the persistence operations on stations
type StationRepository interface {
	CreateStation(ctx context.Context, station *models.Station) error
	GetStation(ctx context.Context, id models.StationID) (*models.Station, error)
	GetStationsByIDs(ctx context.Context, ids []models.StationID) (map[models.StationID]models.Station, error)
	ListStations(ctx context.Context) ([]models.Station, error)
	DeleteStation(ctx context.Context, id models.StationID) error
	IsStationReferenced(ctx context.Context, id models.StationID) (bool, error)
}

// LineRepository defines the persistence operations on lines.
// SaveLine must replace the line's sections atomically.
type LineRepository interface {
	CreateLine(ctx context.Context, line *models.Line) error
	GetLine(ctx context.Context, id models.LineID) (*models.Line, error)
	ListLines(ctx context.Context) ([]*models.Line, error)
	SaveLine(ctx context.Context, line *models.Line) error
	DeleteLine(ctx context.Context, id models.LineID) error
}
