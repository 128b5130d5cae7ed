package models

import (
	"fmt"
	"iter"
	"slices"
)

// Sections is the set of sections making up one line. Once non-empty it always
// forms a single simple path: every station is the up station of at most one
// section and the down station of at most one section, with no cycles.
//
// Sections are kept in insertion order and never sorted or indexed; ordered
// traversal is a fresh scan from the first station. Not safe for concurrent use.
type Sections struct {
	items []Section
}

// RestoreSections rebuilds a path from persisted sections without re-validating it.
func RestoreSections(items []Section) Sections {
	return Sections{items: slices.Clone(items)}
}

// Len returns the number of sections.
func (s *Sections) Len() int {
	return len(s.items)
}

// Items returns a copy of the sections in insertion order.
func (s *Sections) Items() []Section {
	return slices.Clone(s.items)
}

// Distance returns the total length of the line.
func (s *Sections) Distance() int {
	total := 0
	for _, section := range s.items {
		total += section.Distance
	}
	return total
}

// Contains reports whether any section references the station.
func (s *Sections) Contains(station StationID) bool {
	return slices.ContainsFunc(s.items, func(it Section) bool {
		return it.Has(station)
	})
}

// Add inserts a section. The first section is accepted as is. Later sections must
// attach to the line; when one starts or ends at a station that already has a
// section leaving or entering it, that section is split to make room.
//
// Add either succeeds completely or leaves the sections untouched.
func (s *Sections) Add(section Section) error {
	if _, err := NewSection(section.UpStation, section.DownStation, section.Distance); err != nil {
		return err
	}

	if len(s.items) == 0 {
		s.items = append(s.items, section)
		return nil
	}

	if err := s.validateAdd(section); err != nil {
		return err
	}

	// Shrink on copies first so a distance failure leaves nothing half-applied.
	pending := make(map[int]Section, 2)
	if i, ok := s.findByUp(section.UpStation); ok {
		existing := s.items[i]
		if err := existing.shrinkFromUp(section.DownStation, section.Distance); err != nil {
			return err
		}
		pending[i] = existing
	}
	if i, ok := s.findByDown(section.DownStation); ok {
		existing := s.items[i]
		if p, seen := pending[i]; seen {
			existing = p
		}
		if err := existing.shrinkFromDown(section.UpStation, section.Distance); err != nil {
			return err
		}
		pending[i] = existing
	}

	for i, updated := range pending {
		s.items[i] = updated
	}
	s.items = append(s.items, section)
	return nil
}

func (s *Sections) validateAdd(section Section) error {
	// Only rejects a section that duplicates every existing one, which in practice
	// means a line with exactly one section.
	allDuplicate := !slices.ContainsFunc(s.items, func(it Section) bool {
		return !it.IsDuplicateOf(section)
	})
	if allDuplicate {
		return ErrDuplicateSection
	}

	connected := slices.ContainsFunc(s.items, func(it Section) bool {
		return it.SharesEndpointWith(section)
	})
	if !connected {
		return ErrDisconnectedSection
	}

	if s.Contains(section.UpStation) && s.Contains(section.DownStation) {
		return ErrStationsAlreadyOnLine
	}
	return nil
}

// RemoveStation takes a station off the line. An interior station's two sections
// are merged into one spanning both; a terminus simply loses its section.
//
// RemoveStation either succeeds completely or leaves the sections untouched.
func (s *Sections) RemoveStation(station StationID) error {
	if !s.Contains(station) {
		return fmt.Errorf("%w: %s", ErrStationNotFound, station)
	}
	if len(s.items) <= 1 {
		return ErrLastSection
	}

	outgoing, hasOutgoing := s.findByUp(station)
	incoming, hasIncoming := s.findByDown(station)

	switch {
	case hasOutgoing && hasIncoming:
		s.items[incoming].absorb(s.items[outgoing])
		s.removeAt(outgoing)
	case hasOutgoing:
		s.removeAt(outgoing)
	case hasIncoming:
		s.removeAt(incoming)
	}
	return nil
}

// OrderedStations yields the stations from the first terminus to the last.
// The sequence can be ranged over any number of times and always reflects the
// current sections.
func (s *Sections) OrderedStations() iter.Seq[StationID] {
	return func(yield func(StationID) bool) {
		i, ok := s.first()
		if !ok {
			return
		}
		current := s.items[i]
		if !yield(current.UpStation) {
			return
		}
		// Bounded by the section count so corrupt persisted data cannot loop forever.
		for range len(s.items) {
			if !yield(current.DownStation) {
				return
			}
			next, ok := s.findByUp(current.DownStation)
			if !ok {
				return
			}
			current = s.items[next]
		}
	}
}

// Stations returns the stations in traversal order.
func (s *Sections) Stations() []StationID {
	return slices.Collect(s.OrderedStations())
}

// first returns the index of the section whose up station is no section's down station.
func (s *Sections) first() (int, bool) {
	for i, candidate := range s.items {
		if _, ok := s.findByDown(candidate.UpStation); !ok {
			return i, true
		}
	}
	return 0, false
}

func (s *Sections) findByUp(station StationID) (int, bool) {
	i := slices.IndexFunc(s.items, func(it Section) bool {
		return it.UpStation == station
	})
	return i, i >= 0
}

func (s *Sections) findByDown(station StationID) (int, bool) {
	i := slices.IndexFunc(s.items, func(it Section) bool {
		return it.DownStation == station
	})
	return i, i >= 0
}

func (s *Sections) removeAt(i int) {
	s.items = slices.Delete(s.items, i, i+1)
}
