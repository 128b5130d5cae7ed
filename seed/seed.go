// Package seed loads an initial set of stations and lines from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/soob-forest/atdd-subway-admin/models"
	"github.com/soob-forest/atdd-subway-admin/service"
)

// File is the root of a seed document
type File struct {
	Stations []StationSeed `yaml:"stations" validate:"required,min=2,dive"`
	Lines    []LineSeed    `yaml:"lines" validate:"dive"`
}

// StationSeed declares a station; Key is how line sections refer to it
type StationSeed struct {
	Key  string `yaml:"key" validate:"required"`
	Name string `yaml:"name" validate:"required"`
}

// LineSeed declares a line. The first section opens the line and the rest
// are added one at a time in file order.
type LineSeed struct {
	Name     string        `yaml:"name" validate:"required"`
	Color    string        `yaml:"color" validate:"required"`
	Sections []SectionSeed `yaml:"sections" validate:"required,min=1,dive"`
}

// SectionSeed declares a section by station keys
type SectionSeed struct {
	Up       string `yaml:"up" validate:"required"`
	Down     string `yaml:"down" validate:"required,nefield=Up"`
	Distance int    `yaml:"distance" validate:"required,gt=0"`
}

// StationService is the subset of station operations Apply uses
type StationService interface {
	Create(ctx context.Context, name string) (*models.Station, error)
}

// LineService is the subset of line operations Apply uses
type LineService interface {
	List(ctx context.Context) ([]*models.LineDetails, error)
	Create(ctx context.Context, in service.CreateLineInput) (*models.LineDetails, error)
	AddSection(ctx context.Context, id models.LineID, up, down models.StationID, distance int) (*models.LineDetails, error)
}

// Result summarizes what Apply created
type Result struct {
	Skipped  bool
	Stations int
	Lines    int
	Sections int
}

// LoadFile reads and validates a seed file
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a seed document
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks field constraints, that every section refers to a declared
// station, and that each line's sections can be added in file order
func (f *File) Validate() error {
	v := validator.New()
	if err := v.Struct(f); err != nil {
		return fmt.Errorf("invalid seed file: %w", err)
	}

	var errs []error
	keys := make(map[string]bool, len(f.Stations))
	for _, s := range f.Stations {
		if keys[s.Key] {
			errs = append(errs, fmt.Errorf("station key %q is declared twice", s.Key))
		}
		keys[s.Key] = true
	}
	for _, l := range f.Lines {
		for i, s := range l.Sections {
			for _, key := range []string{s.Up, s.Down} {
				if !keys[key] {
					errs = append(errs, fmt.Errorf("line %q section %d: unknown station key %q", l.Name, i, key))
				}
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid seed file: %w", errors.Join(errs...))
	}

	if err := f.checkPaths(); err != nil {
		return fmt.Errorf("invalid seed file: %w", err)
	}
	return nil
}

// checkPaths builds every line's path in memory with the same rules Apply will
// hit, so a section that cannot be added fails before anything is saved.
func (f *File) checkPaths() error {
	ids := make(map[string]models.StationID, len(f.Stations))
	for _, s := range f.Stations {
		ids[s.Key] = uuid.New()
	}

	var errs []error
	for _, l := range f.Lines {
		var path models.Sections
		for i, s := range l.Sections {
			section, err := models.NewSection(ids[s.Up], ids[s.Down], s.Distance)
			if err == nil {
				err = path.Add(section)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("line %q section %d (%s -> %s): %w", l.Name, i, s.Up, s.Down, err))
				break
			}
		}
	}
	return errors.Join(errs...)
}

// Apply creates the seed's stations and lines. It does nothing when any line
// already exists, so restarting with the same seed file is safe.
func Apply(ctx context.Context, f *File, stations StationService, lines LineService) (Result, error) {
	existing, err := lines.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list lines: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("Seed skipped: database already has %d lines", len(existing))
		return Result{Skipped: true}, nil
	}

	var res Result
	ids := make(map[string]models.StationID, len(f.Stations))
	for _, s := range f.Stations {
		station, err := stations.Create(ctx, s.Name)
		if err != nil {
			return res, fmt.Errorf("failed to create station %q: %w", s.Key, err)
		}
		ids[s.Key] = station.ID
		res.Stations++
	}

	for _, l := range f.Lines {
		first := l.Sections[0]
		line, err := lines.Create(ctx, service.CreateLineInput{
			Name:          l.Name,
			Color:         l.Color,
			UpStationID:   ids[first.Up],
			DownStationID: ids[first.Down],
			Distance:      first.Distance,
		})
		if err != nil {
			return res, fmt.Errorf("failed to create line %q: %w", l.Name, err)
		}
		res.Lines++
		res.Sections++

		for i, s := range l.Sections[1:] {
			if _, err := lines.AddSection(ctx, line.ID, ids[s.Up], ids[s.Down], s.Distance); err != nil {
				return res, fmt.Errorf("failed to add section %d (%s -> %s) to line %q: %w", i+1, s.Up, s.Down, l.Name, err)
			}
			res.Sections++
		}
	}

	log.Printf("Seed applied: %d stations, %d lines, %d sections", res.Stations, res.Lines, res.Sections)
	return res, nil
}
