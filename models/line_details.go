package models

import "time"

// LineDetails is the API view of a line: its metadata and stations in traversal order
type LineDetails struct {
	ID        LineID    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Stations  []Station `json:"stations"`
	Sections  []Section `json:"sections"`
	Distance  int       `json:"distance"` // Sum of section distances
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewLineDetails resolves the line's ordered station IDs against registry.
// Stations missing from registry are returned with their ID only.
func NewLineDetails(l *Line, registry map[StationID]Station) *LineDetails {
	stations := make([]Station, 0, l.Sections.Len()+1)
	for id := range l.Sections.OrderedStations() {
		s, ok := registry[id]
		if !ok {
			s = Station{ID: id}
		}
		stations = append(stations, s)
	}

	return &LineDetails{
		ID:        l.ID,
		Name:      l.Name,
		Color:     l.Color,
		Stations:  stations,
		Sections:  l.Sections.Items(),
		Distance:  l.Sections.Distance(),
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}
