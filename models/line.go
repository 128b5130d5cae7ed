package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LineID identifies a line
type LineID = uuid.UUID

// Line is a named, colored route owning one path of sections.
// Path mutations are delegated to Sections.
type Line struct {
	ID        LineID
	Name      string
	Color     string // CSS class or hex, e.g. "bg-red-600"
	Sections  Sections
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLine creates a line whose path starts as the single given section
func NewLine(name, color string, first Section) (*Line, error) {
	now := time.Now().UTC()
	l := &Line{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Color:     strings.TrimSpace(color),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if err := l.Sections.Add(first); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate checks that required fields are set
func (l *Line) Validate() error {
	if l.ID == uuid.Nil {
		return fmt.Errorf("%w: id is required", ErrInvalidLine)
	}
	if l.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLine)
	}
	if l.Color == "" {
		return fmt.Errorf("%w: color is required", ErrInvalidLine)
	}
	return nil
}

// Update replaces the line's name and color
func (l *Line) Update(name, color string) error {
	updated := *l
	updated.Name = strings.TrimSpace(name)
	updated.Color = strings.TrimSpace(color)
	if err := updated.Validate(); err != nil {
		return err
	}
	l.Name = updated.Name
	l.Color = updated.Color
	l.touch()
	return nil
}

// AddSection inserts a new section into the line's path
func (l *Line) AddSection(up, down StationID, distance int) error {
	section, err := NewSection(up, down, distance)
	if err != nil {
		return err
	}
	if err := l.Sections.Add(section); err != nil {
		return err
	}
	l.touch()
	return nil
}

// RemoveStation takes a station off the line's path
func (l *Line) RemoveStation(station StationID) error {
	if err := l.Sections.RemoveStation(station); err != nil {
		return err
	}
	l.touch()
	return nil
}

// Stations returns the line's stations in traversal order
func (l *Line) Stations() []StationID {
	return l.Sections.Stations()
}

func (l *Line) touch() {
	l.UpdatedAt = time.Now().UTC()
}
