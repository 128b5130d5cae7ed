package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bluele/gcache"

	"github.com/soob-forest/atdd-subway-admin/metrics"
	"github.com/soob-forest/atdd-subway-admin/models"
	"github.com/soob-forest/atdd-subway-admin/repository"
)

// CreateLineInput holds the fields needed to open a new line with its first section.
type CreateLineInput struct {
	Name          string
	Color         string
	UpStationID   models.StationID
	DownStationID models.StationID
	Distance      int
}

// LineService owns lines and applies section changes to them.
//
// Each change to a line runs load -> mutate -> save under that line's lock, so
// concurrent requests for one line are applied one at a time. A rejected
// change is never saved.
type LineService struct {
	lines    LineRepository
	stations StationRepository
	cache    gcache.Cache // models.LineID -> *models.LineDetails

	mu    sync.Mutex
	locks map[models.LineID]*sync.Mutex
}

// NewLineService creates a LineService.
//
//   - cacheSize bounds the number of line views kept in the LRU read cache.
//   - cacheTTL is how long a cached view may be served; changes purge it earlier.
func NewLineService(lines LineRepository, stations StationRepository, cacheSize int, cacheTTL time.Duration) *LineService {
	return &LineService{
		lines:    lines,
		stations: stations,
		cache:    gcache.New(cacheSize).LRU().Expiration(cacheTTL).Build(),
		locks:    make(map[models.LineID]*sync.Mutex),
	}
}

// Create opens a line running between two registered stations.
func (s *LineService) Create(ctx context.Context, in CreateLineInput) (*models.LineDetails, error) {
	registry, err := s.resolveStations(ctx, in.UpStationID, in.DownStationID)
	if err != nil {
		return nil, err
	}

	first, err := models.NewSection(in.UpStationID, in.DownStationID, in.Distance)
	if err != nil {
		return nil, s.rejected(metrics.OpCreateLine, err)
	}
	line, err := models.NewLine(in.Name, in.Color, first)
	if err != nil {
		return nil, s.rejected(metrics.OpCreateLine, err)
	}

	if err := s.lines.CreateLine(ctx, line); err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLineName, line.Name)
		}
		return nil, fmt.Errorf("service: create line: %w", err)
	}

	metrics.MutationApplied(metrics.OpCreateLine)
	metrics.SectionCount(line.Sections.Len())
	return models.NewLineDetails(line, registry), nil
}

// Get returns a line with its stations in traversal order.
//
// A miss is filled under the line's lock so a view loaded before a change
// cannot be cached after that change purged the entry.
func (s *LineService) Get(ctx context.Context, id models.LineID) (*models.LineDetails, error) {
	if cached, err := s.cache.Get(id); err == nil {
		metrics.CacheLookup(true)
		return cached.(*models.LineDetails), nil
	}

	lock := s.lineLock(id)
	lock.Lock()
	defer lock.Unlock()

	if cached, err := s.cache.Get(id); err == nil {
		metrics.CacheLookup(true)
		return cached.(*models.LineDetails), nil
	}
	metrics.CacheLookup(false)

	line, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.details(ctx, line)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(id, details); err != nil {
		return nil, fmt.Errorf("service: cache line %s: %w", id, err)
	}
	return details, nil
}

// List returns every line with its stations in traversal order.
func (s *LineService) List(ctx context.Context) ([]*models.LineDetails, error) {
	lines, err := s.lines.ListLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: list lines: %w", err)
	}

	var ids []models.StationID
	for _, l := range lines {
		ids = append(ids, l.Stations()...)
	}
	registry, err := s.stations.GetStationsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service: list lines: resolve stations: %w", err)
	}

	out := make([]*models.LineDetails, 0, len(lines))
	for _, l := range lines {
		out = append(out, models.NewLineDetails(l, registry))
	}
	return out, nil
}

// Update changes a line's name and color.
func (s *LineService) Update(ctx context.Context, id models.LineID, name, color string) (*models.LineDetails, error) {
	return s.mutate(ctx, id, metrics.OpUpdateLine, func(l *models.Line) error {
		return l.Update(name, color)
	})
}

// Delete removes a line and its sections.
func (s *LineService) Delete(ctx context.Context, id models.LineID) error {
	lock := s.lineLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := s.lines.DeleteLine(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrLineNotFound, id)
		}
		return fmt.Errorf("service: delete line %s: %w", id, err)
	}
	s.cache.Remove(id)
	metrics.MutationApplied(metrics.OpDeleteLine)
	return nil
}

// AddSection inserts a section between two registered stations into the line.
func (s *LineService) AddSection(ctx context.Context, id models.LineID, up, down models.StationID, distance int) (*models.LineDetails, error) {
	if _, err := s.resolveStations(ctx, up, down); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, metrics.OpAddSection, func(l *models.Line) error {
		return l.AddSection(up, down, distance)
	})
}

// RemoveStation takes a station off the line, merging its sections if it is interior.
func (s *LineService) RemoveStation(ctx context.Context, id models.LineID, station models.StationID) (*models.LineDetails, error) {
	return s.mutate(ctx, id, metrics.OpRemoveStation, func(l *models.Line) error {
		return l.RemoveStation(station)
	})
}

// mutate applies fn to a freshly loaded line under the line's lock and saves the result.
func (s *LineService) mutate(ctx context.Context, id models.LineID, op string, fn func(*models.Line) error) (*models.LineDetails, error) {
	lock := s.lineLock(id)
	lock.Lock()
	defer lock.Unlock()

	line, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(line); err != nil {
		return nil, s.rejected(op, err)
	}

	if err := s.lines.SaveLine(ctx, line); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrLineNotFound, id)
		case errors.Is(err, repository.ErrDuplicateName):
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLineName, line.Name)
		}
		return nil, fmt.Errorf("service: save line %s: %w", id, err)
	}
	s.cache.Remove(id)

	metrics.MutationApplied(op)
	metrics.SectionCount(line.Sections.Len())
	return s.details(ctx, line)
}

func (s *LineService) load(ctx context.Context, id models.LineID) (*models.Line, error) {
	line, err := s.lines.GetLine(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrLineNotFound, id)
		}
		return nil, fmt.Errorf("service: load line %s: %w", id, err)
	}
	return line, nil
}

func (s *LineService) details(ctx context.Context, line *models.Line) (*models.LineDetails, error) {
	registry, err := s.stations.GetStationsByIDs(ctx, line.Stations())
	if err != nil {
		return nil, fmt.Errorf("service: resolve stations of line %s: %w", line.ID, err)
	}
	return models.NewLineDetails(line, registry), nil
}

// resolveStations looks up every id in the registry, failing with ErrStationUnknown
// for the first one that is missing.
func (s *LineService) resolveStations(ctx context.Context, ids ...models.StationID) (map[models.StationID]models.Station, error) {
	registry, err := s.stations.GetStationsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service: resolve stations: %w", err)
	}
	for _, id := range ids {
		if _, ok := registry[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrStationUnknown, id)
		}
	}
	return registry, nil
}

func (s *LineService) rejected(op string, err error) error {
	metrics.MutationRejected(op, models.ErrorKind(err))
	return err
}

// lineLock returns the mutex serializing changes to one line.
func (s *LineService) lineLock(id models.LineID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}
