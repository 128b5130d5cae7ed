package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/soob-forest/atdd-subway-admin/config"
	"github.com/soob-forest/atdd-subway-admin/handlers"
	"github.com/soob-forest/atdd-subway-admin/metrics"
	"github.com/soob-forest/atdd-subway-admin/repository"
	"github.com/soob-forest/atdd-subway-admin/seed"
	"github.com/soob-forest/atdd-subway-admin/service"
)

// storage is the database backend chosen at startup
type storage struct {
	stations service.StationRepository
	lines    service.LineRepository
	pinger   handlers.Pinger
	close    func()
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.close()

	stationService := service.NewStationService(store.stations)
	lineService := service.NewLineService(store.lines, store.stations, cfg.LineCacheSize, cfg.LineCacheTTL)

	if cfg.SeedFile != "" {
		f, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			log.Fatalf("Failed to load seed file: %v", err)
		}
		if _, err := seed.Apply(ctx, f, stationService, lineService); err != nil {
			log.Fatalf("Failed to apply seed file: %v", err)
		}
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Stations:       handlers.NewStationHandler(stationService),
		Lines:          handlers.NewLineHandler(lineService),
		Health:         handlers.NewHealthHandler(store.pinger),
		Metrics:        metrics.Handler(),
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("API server starting on :%d", cfg.Port)
		log.Println("Station endpoints:")
		log.Println("  POST/GET /stations, DELETE /stations/{id}")
		log.Println("Line endpoints:")
		log.Println("  POST/GET /lines, GET/PUT/DELETE /lines/{id}")
		log.Println("  POST /lines/{id}/sections, DELETE /lines/{id}/sections?stationId={id}")
		log.Println("Health: GET /health, Metrics: GET /metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shut down: %v", err)
	}
	log.Println("Goodbye!")
}

// openStorage connects to Postgres when DATABASE_URL is set and to SQLite otherwise,
// then makes sure the schema exists
func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.UsePostgres() {
		log.Println("Connecting to PostgreSQL database")
		db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		log.Println("PostgreSQL database connection established")
		return &storage{
			stations: repository.NewPostgresStationRepository(db),
			lines:    repository.NewPostgresLineRepository(db),
			pinger:   db,
			close:    db.Close,
		}, nil
	}

	log.Printf("Connecting to SQLite database: %s", cfg.SQLiteDatabase)
	if dir := filepath.Dir(cfg.SQLiteDatabase); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := repository.NewSQLiteDB(cfg.SQLiteDatabase)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Println("SQLite database connection established")
	return &storage{
		stations: repository.NewSQLiteStationRepository(db),
		lines:    repository.NewSQLiteLineRepository(db),
		pinger:   db,
		close:    func() { db.Close() },
	}, nil
}
