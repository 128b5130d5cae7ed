package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StationID identifies a station. Sections only ever compare station IDs.
type StationID = uuid.UUID

// Station is a registered stop that lines can run through
type Station struct {
	ID        StationID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewStation creates a station with a fresh identifier
func NewStation(name string) (*Station, error) {
	s := &Station{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that required fields are set
func (s *Station) Validate() error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("%w: id is required", ErrInvalidStation)
	}
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidStation)
	}
	return nil
}
