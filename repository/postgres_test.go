package repository

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"

	"github.com/soob-forest/atdd-subway-admin/models"
)

func setupPostgres(t *testing.T) *PostgresDB {
	t.Helper()
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	db, err := NewPostgresDB(context.Background(), databaseURL)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	return db
}

func TestPostgresLineRepository_RoundTrip(t *testing.T) {
	db := setupPostgres(t)
	stationRepo := NewPostgresStationRepository(db)
	lineRepo := NewPostgresLineRepository(db)
	ctx := context.Background()

	var st []*models.Station
	for _, name := range []string{"Pangyo", "Jeongja", "Migeum"} {
		s, _ := models.NewStation(name)
		if err := stationRepo.CreateStation(ctx, s); err != nil {
			t.Fatalf("CreateStation failed: %v", err)
		}
		st = append(st, s)
	}

	first, _ := models.NewSection(st[0].ID, st[1].ID, 10)
	line, _ := models.NewLine("test-line-"+st[0].ID.String(), "RED", first)
	if err := lineRepo.CreateLine(ctx, line); err != nil {
		t.Fatalf("CreateLine failed: %v", err)
	}
	t.Cleanup(func() {
		lineRepo.DeleteLine(context.Background(), line.ID)
		for _, s := range st {
			stationRepo.DeleteStation(context.Background(), s.ID)
		}
	})

	if err := line.AddSection(st[1].ID, st[2].ID, 10); err != nil {
		t.Fatalf("AddSection failed: %v", err)
	}
	if err := lineRepo.SaveLine(ctx, line); err != nil {
		t.Fatalf("SaveLine failed: %v", err)
	}

	loaded, err := lineRepo.GetLine(ctx, line.ID)
	if err != nil {
		t.Fatalf("GetLine failed: %v", err)
	}
	want := []models.StationID{st[0].ID, st[1].ID, st[2].ID}
	if got := loaded.Stations(); !slices.Equal(got, want) {
		t.Errorf("loaded stations = %v, want %v", got, want)
	}

	found, err := stationRepo.GetStationsByIDs(ctx, want)
	if err != nil {
		t.Fatalf("GetStationsByIDs failed: %v", err)
	}
	if len(found) != 3 {
		t.Errorf("GetStationsByIDs returned %d stations, want 3", len(found))
	}

	dup, _ := models.NewLine(line.Name, "BLUE", first)
	if err := lineRepo.CreateLine(ctx, dup); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("CreateLine with taken name error = %v, want ErrDuplicateName", err)
	}
}
