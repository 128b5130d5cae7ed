package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soob-forest/atdd-subway-admin/models"
)

// postgresSchema is embedded at compile time from schema_postgres.sql
//
//go:embed schema_postgres.sql
var postgresSchema string

const pgUniqueViolation = "23505"

// PostgresDB wraps a pgx connection pool
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB creates a connection pool and verifies connectivity
func NewPostgresDB(ctx context.Context, databaseURL string) (*PostgresDB, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the pool
func (p *PostgresDB) Close() {
	p.pool.Close()
}

// Ping checks database connectivity
func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// EnsureSchema creates tables if they don't exist
func (p *PostgresDB) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// PostgresStationRepository handles database operations for stations using PostgreSQL
type PostgresStationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresStationRepository creates a new PostgresStationRepository using an existing pool
func NewPostgresStationRepository(db *PostgresDB) *PostgresStationRepository {
	return &PostgresStationRepository{pool: db.pool}
}

// CreateStation inserts a new station
func (r *PostgresStationRepository) CreateStation(ctx context.Context, station *models.Station) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO stations (id, name, created_at) VALUES ($1, $2, $3)",
		station.ID, station.Name, station.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert station: %w", err)
	}
	return nil
}

// GetStation returns a single station by ID
func (r *PostgresStationRepository) GetStation(ctx context.Context, id models.StationID) (*models.Station, error) {
	var s models.Station
	err := r.pool.QueryRow(ctx,
		"SELECT id, name, created_at FROM stations WHERE id = $1", id,
	).Scan(&s.ID, &s.Name, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("station %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query station: %w", err)
	}
	return &s, nil
}

// GetStationsByIDs returns the stations that exist among ids, keyed by ID
func (r *PostgresStationRepository) GetStationsByIDs(ctx context.Context, ids []models.StationID) (map[models.StationID]models.Station, error) {
	found := make(map[models.StationID]models.Station, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	stations, err := r.queryStations(ctx,
		"SELECT id, name, created_at FROM stations WHERE id = ANY($1::uuid[])", keys)
	if err != nil {
		return nil, err
	}
	for _, s := range stations {
		found[s.ID] = s
	}
	return found, nil
}

// ListStations returns all stations ordered by creation time
func (r *PostgresStationRepository) ListStations(ctx context.Context) ([]models.Station, error) {
	return r.queryStations(ctx, "SELECT id, name, created_at FROM stations ORDER BY created_at, name")
}

// DeleteStation removes a station by ID
func (r *PostgresStationRepository) DeleteStation(ctx context.Context, id models.StationID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM stations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete station: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("station %s: %w", id, ErrNotFound)
	}
	return nil
}

// IsStationReferenced reports whether any line's section uses the station
func (r *PostgresStationRepository) IsStationReferenced(ctx context.Context, id models.StationID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM sections WHERE up_station_id = $1 OR down_station_id = $1)", id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check station references: %w", err)
	}
	return exists, nil
}

func (r *PostgresStationRepository) queryStations(ctx context.Context, query string, args ...interface{}) ([]models.Station, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	stations := []models.Station{}
	for rows.Next() {
		var s models.Station
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan station row: %w", err)
		}
		stations = append(stations, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating station rows: %w", err)
	}
	return stations, nil
}

// PostgresLineRepository handles database operations for lines and their sections using PostgreSQL
type PostgresLineRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresLineRepository creates a new PostgresLineRepository using an existing pool
func NewPostgresLineRepository(db *PostgresDB) *PostgresLineRepository {
	return &PostgresLineRepository{pool: db.pool}
}

// CreateLine inserts a line together with its sections
func (r *PostgresLineRepository) CreateLine(ctx context.Context, line *models.Line) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			"INSERT INTO lines (id, name, color, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)",
			line.ID, line.Name, line.Color, line.CreatedAt, line.UpdatedAt,
		)
		if err != nil {
			if isPgUniqueViolation(err) {
				return fmt.Errorf("line %q: %w", line.Name, ErrDuplicateName)
			}
			return fmt.Errorf("failed to insert line: %w", err)
		}
		return insertPgSections(ctx, tx, line)
	})
}

// GetLine returns a line with its sections in stored order
func (r *PostgresLineRepository) GetLine(ctx context.Context, id models.LineID) (*models.Line, error) {
	var l models.Line
	err := r.pool.QueryRow(ctx,
		"SELECT id, name, color, created_at, updated_at FROM lines WHERE id = $1", id,
	).Scan(&l.ID, &l.Name, &l.Color, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("line %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query line: %w", err)
	}

	rows, err := r.querySections(ctx,
		"SELECT line_id, up_station_id, down_station_id, distance FROM sections WHERE line_id = $1 ORDER BY position", id)
	if err != nil {
		return nil, err
	}
	l.Sections = models.RestoreSections(groupSections(rows)[l.ID])
	return &l, nil
}

// ListLines returns all lines with their sections
func (r *PostgresLineRepository) ListLines(ctx context.Context) ([]*models.Line, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT id, name, color, created_at, updated_at FROM lines ORDER BY created_at, name")
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	lines := []*models.Line{}
	for rows.Next() {
		var l models.Line
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan line row: %w", err)
		}
		lines = append(lines, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating line rows: %w", err)
	}

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
func (r *PostgresLineRepository) SaveLine(ctx context.Context, line *models.Line) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			"UPDATE lines SET name = $1, color = $2, updated_at = $3 WHERE id = $4",
			line.Name, line.Color, line.UpdatedAt, line.ID,
		)
		if err != nil {
			if isPgUniqueViolation(err) {
				return fmt.Errorf("line %q: %w", line.Name, ErrDuplicateName)
			}
			return fmt.Errorf("failed to update line: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("line %s: %w", line.ID, ErrNotFound)
		}

		if _, err := tx.Exec(ctx, "DELETE FROM sections WHERE line_id = $1", line.ID); err != nil {
			return fmt.Errorf("failed to clear sections: %w", err)
		}
		return insertPgSections(ctx, tx, line)
	})
}

// DeleteLine removes a line; its sections cascade
func (r *PostgresLineRepository) DeleteLine(ctx context.Context, id models.LineID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM lines WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("line %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *PostgresLineRepository) querySections(ctx context.Context, query string, args ...interface{}) ([]sectionRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
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

func insertPgSections(ctx context.Context, tx pgx.Tx, line *models.Line) error {
	batch := &pgx.Batch{}
	for i, s := range line.Sections.Items() {
		batch.Queue(
			"INSERT INTO sections (line_id, position, up_station_id, down_station_id, distance) VALUES ($1, $2, $3, $4, $5)",
			line.ID, i, s.UpStation, s.DownStation, s.Distance,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert sections: %w", err)
	}
	return nil
}
