// Package repository persists stations and lines in SQLite or PostgreSQL.
package repository

import (
	"errors"
	"time"

	"github.com/soob-forest/atdd-subway-admin/models"
)

var (
	// ErrNotFound is returned when a station or line does not exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned when a line name is already taken
	ErrDuplicateName = errors.New("name already exists")
)

// sectionRow is one persisted section together with its owning line
type sectionRow struct {
	LineID  models.LineID
	Section models.Section
}

// groupSections collects section rows per line, preserving row order
func groupSections(rows []sectionRow) map[models.LineID][]models.Section {
	grouped := make(map[models.LineID][]models.Section)
	for _, r := range rows {
		grouped[r.LineID] = append(grouped[r.LineID], r.Section)
	}
	return grouped
}

// sqliteTimeLayout is RFC3339 with a fixed nine-digit fraction so stored
// strings sort in time order
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime converts a time to the string stored by SQLite
func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

// parseTimeString converts an RFC3339 string to time.Time
// Returns the zero time if the input is empty or malformed
func parseTimeString(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
