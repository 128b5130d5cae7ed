package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/soob-forest/atdd-subway-admin/models"

	_ "modernc.org/sqlite"
)

// sqliteSchema is embedded at compile time from schema_sqlite.sql
//
//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLiteDB wraps a SQLite database connection with write serialization
type SQLiteDB struct {
	db      *sql.DB
	writeMu sync.Mutex // SQLite allows a single writer; all writes go through this lock
}

// NewSQLiteDB opens a SQLite database with WAL mode and foreign keys enabled
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps writes and reads on one consistent view
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *SQLiteDB) GetDB() *sql.DB {
	return s.db
}

// Ping checks database connectivity
func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates tables if they don't exist
func (s *SQLiteDB) EnsureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Println("Database schema ensured (from embedded schema_sqlite.sql)")
	return nil
}

// withTx runs fn inside a write transaction, committing only if fn succeeds
func (s *SQLiteDB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// SQLiteStationRepository handles database operations for stations using SQLite
type SQLiteStationRepository struct {
	db *SQLiteDB
}

// NewSQLiteStationRepository creates a new SQLiteStationRepository
func NewSQLiteStationRepository(db *SQLiteDB) *SQLiteStationRepository {
	return &SQLiteStationRepository{db: db}
}

// CreateStation inserts a new station
func (r *SQLiteStationRepository) CreateStation(ctx context.Context, station *models.Station) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO stations (id, name, created_at) VALUES (?, ?, ?)",
			station.ID.String(), station.Name, formatTime(station.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert station: %w", err)
		}
		return nil
	})
}

// GetStation returns a single station by ID
func (r *SQLiteStationRepository) GetStation(ctx context.Context, id models.StationID) (*models.Station, error) {
	var s models.Station
	var createdAt string
	err := r.db.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM stations WHERE id = ?", id.String(),
	).Scan(&s.ID, &s.Name, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("station %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query station: %w", err)
	}
	s.CreatedAt = parseTimeString(createdAt)
	return &s, nil
}

// GetStationsByIDs returns the stations that exist among ids, keyed by ID
func (r *SQLiteStationRepository) GetStationsByIDs(ctx context.Context, ids []models.StationID) (map[models.StationID]models.Station, error) {
	found := make(map[models.StationID]models.Station, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}
	query := "SELECT id, name, created_at FROM stations WHERE id IN (" + strings.Join(placeholders, ", ") + ")"

	stations, err := r.queryStations(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for _, s := range stations {
		found[s.ID] = s
	}
	return found, nil
}

// ListStations returns all stations ordered by creation time
func (r *SQLiteStationRepository) ListStations(ctx context.Context) ([]models.Station, error) {
	return r.queryStations(ctx, "SELECT id, name, created_at FROM stations ORDER BY created_at, name")
}

// DeleteStation removes a station by ID
func (r *SQLiteStationRepository) DeleteStation(ctx context.Context, id models.StationID) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM stations WHERE id = ?", id.String())
		if err != nil {
			return fmt.Errorf("failed to delete station: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("station %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// IsStationReferenced reports whether any line's section uses the station
func (r *SQLiteStationRepository) IsStationReferenced(ctx context.Context, id models.StationID) (bool, error) {
	var exists bool
	err := r.db.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM sections WHERE up_station_id = ? OR down_station_id = ?)",
		id.String(), id.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check station references: %w", err)
	}
	return exists, nil
}

func (r *SQLiteStationRepository) queryStations(ctx context.Context, query string, args ...interface{}) ([]models.Station, error) {
	rows, err := r.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	stations := []models.Station{}
	for rows.Next() {
		var s models.Station
		var createdAt string
		if err := rows.Scan(&s.ID, &s.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan station row: %w", err)
		}
		s.CreatedAt = parseTimeString(createdAt)
		stations = append(stations, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating station rows: %w", err)
	}
	return stations, nil
}

// SQLiteLineRepository handles database operations for lines and their sections using SQLite
type SQLiteLineRepository struct {
	db *SQLiteDB
}

// NewSQLiteLineRepository creates a new SQLiteLineRepository
func NewSQLiteLineRepository(db *SQLiteDB) *SQLiteLineRepository {
	return &SQLiteLineRepository{db: db}
}

// CreateLine inserts a line together with its sections
func (r *SQLiteLineRepository) CreateLine(ctx context.Context, line *models.Line) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO lines (id, name, color, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			line.ID.String(), line.Name, line.Color, formatTime(line.CreatedAt), formatTime(line.UpdatedAt),
		)
		if err != nil {
			if isSQLiteUniqueViolation(err) {
				return fmt.Errorf("line %q: %w", line.Name, ErrDuplicateName)
			}
			return fmt.Errorf("failed to insert line: %w", err)
		}
		return insertSQLiteSections(ctx, tx, line)
	})
}

// GetLine returns a line with its sections in stored order
func (r *SQLiteLineRepository) GetLine(ctx context.Context, id models.LineID) (*models.Line, error) {
	var l models.Line
	var createdAt, updatedAt string
	err := r.db.db.QueryRowContext(ctx,
		"SELECT id, name, color, created_at, updated_at FROM lines WHERE id = ?", id.String(),
	).Scan(&l.ID, &l.Name, &l.Color, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("line %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query line: %w", err)
	}
	l.CreatedAt = parseTimeString(createdAt)
	l.UpdatedAt = parseTimeString(updatedAt)

	rows, err := r.querySections(ctx,
		"SELECT line_id, up_station_id, down_station_id, distance FROM sections WHERE line_id = ? ORDER BY position",
		id.String())
	if err != nil {
		return nil, err
	}
	l.Sections = models.RestoreSections(groupSections(rows)[l.ID])
	return &l, nil
}

// ListLines returns all lines with their sections
func (r *SQLiteLineRepository) ListLines(ctx context.Context) ([]*models.Line, error) {
	rows, err := r.db.db.QueryContext(ctx,
		"SELECT id, name, color, created_at, updated_at FROM lines ORDER BY created_at, name")
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	lines := []*models.Line{}
	for rows.Next() {
		var l models.Line
		var createdAt, updatedAt string
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan line row: %w", err)
		}
		l.CreatedAt = parseTimeString(createdAt)
		l.UpdatedAt = parseTimeString(updatedAt)
		lines = append(lines, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating line rows: %w", err)
	}
	rows.Close()

	sectionRows, err := r.querySections(ctx,
		"SELECT line_id, up_station_id, down_station_id, distance FROM sections ORDER BY line_id, position")
	if err != nil {
		return nil, err
	}
	grouped := groupSections(sectionRows)
	for _, l := range lines {
		l.Sections = models.RestoreSections(grouped[l.ID])
	}
	return lines, nil
}

// SaveLine updates a line's metadata and replaces its sections atomically
func (r *SQLiteLineRepository) SaveLine(ctx context.Context, line *models.Line) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE lines SET name = ?, color = ?, updated_at = ? WHERE id = ?",
			line.Name, line.Color, formatTime(line.UpdatedAt), line.ID.String(),
		)
		if err != nil {
			if isSQLiteUniqueViolation(err) {
				return fmt.Errorf("line %q: %w", line.Name, ErrDuplicateName)
			}
			return fmt.Errorf("failed to update line: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("line %s: %w", line.ID, ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM sections WHERE line_id = ?", line.ID.String()); err != nil {
			return fmt.Errorf("failed to clear sections: %w", err)
		}
		return insertSQLiteSections(ctx, tx, line)
	})
}

// DeleteLine removes a line and its sections
func (r *SQLiteLineRepository) DeleteLine(ctx context.Context, id models.LineID) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sections WHERE line_id = ?", id.String()); err != nil {
			return fmt.Errorf("failed to delete sections: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM lines WHERE id = ?", id.String())
		if err != nil {
			return fmt.Errorf("failed to delete line: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("line %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (r *SQLiteLineRepository) querySections(ctx context.Context, query string, args ...interface{}) ([]sectionRow, error) {
	rows, err := r.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	var out []sectionRow
	for rows.Next() {
		var row sectionRow
		if err := rows.Scan(&row.LineID, &row.Section.UpStation, &row.Section.DownStation, &row.Section.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan section row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating section rows: %w", err)
	}
	return out, nil
}

func insertSQLiteSections(ctx context.Context, tx *sql.Tx, line *models.Line) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO sections (line_id, position, up_station_id, down_station_id, distance) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare section insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range line.Sections.Items() {
		if _, err := stmt.ExecContext(ctx, line.ID.String(), i, s.UpStation.String(), s.DownStation.String(), s.Distance); err != nil {
			return fmt.Errorf("failed to insert section %d: %w", i, err)
		}
	}
	return nil
}
