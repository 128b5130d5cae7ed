package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/soob-forest/atdd-subway-admin/models"
	"github.com/soob-forest/atdd-subway-admin/repository"
)

// memoryStore is an in-memory implementation of both repositories.
// Lines are stored as copies so callers cannot mutate stored state.
type memoryStore struct {
	mu       sync.Mutex
	stations map[models.StationID]models.Station
	lines    map[models.LineID]models.Line

	getLineCalls int
	saveErr      error

	// afterGetLine, when set, runs after GetLine has read the line and
	// before it returns
	afterGetLine func()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		stations: make(map[models.StationID]models.Station),
		lines:    make(map[models.LineID]models.Line),
	}
}

func copyLine(l models.Line) *models.Line {
	l.Sections = models.RestoreSections(l.Sections.Items())
	return &l
}

func (m *memoryStore) CreateStation(ctx context.Context, station *models.Station) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stations[station.ID] = *station
	return nil
}

func (m *memoryStore) GetStation(ctx context.Context, id models.StationID) (*models.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stations[id]
	if !ok {
		return nil, fmt.Errorf("station %s: %w", id, repository.ErrNotFound)
	}
	return &s, nil
}

func (m *memoryStore) GetStationsByIDs(ctx context.Context, ids []models.StationID) (map[models.StationID]models.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[models.StationID]models.Station)
	for _, id := range ids {
		if s, ok := m.stations[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (m *memoryStore) ListStations(ctx context.Context) ([]models.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Station, 0, len(m.stations))
	for _, s := range m.stations {
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryStore) DeleteStation(ctx context.Context, id models.StationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stations[id]; !ok {
		return fmt.Errorf("station %s: %w", id, repository.ErrNotFound)
	}
	delete(m.stations, id)
	return nil
}

func (m *memoryStore) IsStationReferenced(ctx context.Context, id models.StationID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lines {
		if l.Sections.Contains(id) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) CreateLine(ctx context.Context, line *models.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lines {
		if l.Name == line.Name {
			return fmt.Errorf("line %q: %w", line.Name, repository.ErrDuplicateName)
		}
	}
	m.lines[line.ID] = *copyLine(*line)
	return nil
}

func (m *memoryStore) GetLine(ctx context.Context, id models.LineID) (*models.Line, error) {
	m.mu.Lock()
	m.getLineCalls++
	l, ok := m.lines[id]
	hook := m.afterGetLine
	m.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("line %s: %w", id, repository.ErrNotFound)
	}
	out := copyLine(l)
	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *memoryStore) ListLines(ctx context.Context) ([]*models.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Line, 0, len(m.lines))
	for _, l := range m.lines {
		out = append(out, copyLine(l))
	}
	return out, nil
}

func (m *memoryStore) SaveLine(ctx context.Context, line *models.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.lines[line.ID]; !ok {
		return fmt.Errorf("line %s: %w", line.ID, repository.ErrNotFound)
	}
	for id, l := range m.lines {
		if id != line.ID && l.Name == line.Name {
			return fmt.Errorf("line %q: %w", line.Name, repository.ErrDuplicateName)
		}
	}
	m.lines[line.ID] = *copyLine(*line)
	return nil
}

func (m *memoryStore) DeleteLine(ctx context.Context, id models.LineID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lines[id]; !ok {
		return fmt.Errorf("line %s: %w", id, repository.ErrNotFound)
	}
	delete(m.lines, id)
	return nil
}

var errStoreDown = errors.New("store unavailable")
