package models

import "fmt"

// Section is a directed track segment between two adjacent stations on a line.
// UpStation and DownStation always differ and Distance is always positive.
type Section struct {
	UpStation   StationID `json:"upStationId"`
	DownStation StationID `json:"downStationId"`
	Distance    int       `json:"distance"`
}

// NewSection builds a section, rejecting equal endpoints and non-positive distances.
func NewSection(up, down StationID, distance int) (Section, error) {
	if up == down {
		return Section{}, fmt.Errorf("%w: %s", ErrInvalidSection, up)
	}
	if distance <= 0 {
		return Section{}, fmt.Errorf("%w: got %d", ErrDistance, distance)
	}
	return Section{UpStation: up, DownStation: down, Distance: distance}, nil
}

// Has reports whether the station is one of the section's endpoints.
func (s Section) Has(station StationID) bool {
	return s.UpStation == station || s.DownStation == station
}

// SharesEndpointWith reports whether any endpoint of s coincides with any endpoint of other.
func (s Section) SharesEndpointWith(other Section) bool {
	return s.Has(other.UpStation) || s.Has(other.DownStation)
}

// IsDuplicateOf reports whether s connects exactly the same stations as other,
// in the same direction.
func (s Section) IsDuplicateOf(other Section) bool {
	return s.UpStation == other.UpStation && s.DownStation == other.DownStation
}

// absorb extends s over next, which must start where s ends.
func (s *Section) absorb(next Section) {
	s.DownStation = next.DownStation
	s.Distance += next.Distance
}

// shrinkFromUp moves the start of s forward to newUp, giving up consumed distance.
func (s *Section) shrinkFromUp(newUp StationID, consumed int) error {
	remaining, err := s.remainingAfter(consumed)
	if err != nil {
		return err
	}
	s.UpStation = newUp
	s.Distance = remaining
	return nil
}

// shrinkFromDown pulls the end of s back to newDown, giving up consumed distance.
func (s *Section) shrinkFromDown(newDown StationID, consumed int) error {
	remaining, err := s.remainingAfter(consumed)
	if err != nil {
		return err
	}
	s.DownStation = newDown
	s.Distance = remaining
	return nil
}

func (s Section) remainingAfter(consumed int) (int, error) {
	remaining := s.Distance - consumed
	if remaining <= 0 {
		return 0, fmt.Errorf("%w: new section distance %d must be shorter than the existing %d",
			ErrDistance, consumed, s.Distance)
	}
	return remaining, nil
}
