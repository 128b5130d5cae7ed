package models

import "errors"

// Domain errors returned by the line and section operations.
// All of them are caller errors: handlers map them to 400 responses.
var (
	// ErrInvalidSection is returned when a section's up and down stations are the same.
	ErrInvalidSection = errors.New("up station and down station cannot be the same")

	// ErrDuplicateSection is returned when the new section exactly duplicates the line's content.
	ErrDuplicateSection = errors.New("section is already registered on the line")

	// ErrDisconnectedSection is returned when the new section shares no station with the line.
	ErrDisconnectedSection = errors.New("neither the up station nor the down station is on the line")

	// ErrStationsAlreadyOnLine is returned when both stations of the new section are
	// already on the line, so adding it would close a cycle or open a branch.
	ErrStationsAlreadyOnLine = errors.New("both the up station and the down station are already on the line")

	// ErrDistance is returned when a distance is not positive, including the remaining
	// distance of a section that would be split.
	ErrDistance = errors.New("distance must be greater than zero")

	// ErrStationNotFound is returned when the station to remove is not on the line.
	ErrStationNotFound = errors.New("station is not on the line")

	// ErrLastSection is returned when removing a station from a line with a single section.
	ErrLastSection = errors.New("cannot remove a station from a line with only one section")

	// ErrInvalidLine is returned when a line's name or color is empty.
	ErrInvalidLine = errors.New("invalid line")

	// ErrInvalidStation is returned when a station's name is empty.
	ErrInvalidStation = errors.New("invalid station")
)

var domainErrors = []error{
	ErrInvalidSection,
	ErrDuplicateSection,
	ErrDisconnectedSection,
	ErrStationsAlreadyOnLine,
	ErrDistance,
	ErrStationNotFound,
	ErrLastSection,
	ErrInvalidLine,
	ErrInvalidStation,
}

// IsDomainError reports whether err wraps one of the domain errors above.
func IsDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ErrorKind returns a short, stable name for a domain error.
// It is used as a metrics label and in error response details.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSection):
		return "invalid_section"
	case errors.Is(err, ErrDuplicateSection):
		return "duplicate_section"
	case errors.Is(err, ErrDisconnectedSection):
		return "disconnected_section"
	case errors.Is(err, ErrStationsAlreadyOnLine):
		return "stations_already_on_line"
	case errors.Is(err, ErrDistance):
		return "distance"
	case errors.Is(err, ErrStationNotFound):
		return "station_not_found"
	case errors.Is(err, ErrLastSection):
		return "last_section"
	case errors.Is(err, ErrInvalidLine):
		return "invalid_line"
	case errors.Is(err, ErrInvalidStation):
		return "invalid_station"
	default:
		return "unknown"
	}
}
