package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds everything NewRouter mounts
type RouterConfig struct {
	Stations       *StationHandler
	Lines          *LineHandler
	Health         *HealthHandler
	Metrics        http.Handler // optional, served at /metrics
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter builds the API router
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: true,
	}))

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.GetHealth)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		r.Route("/stations", cfg.Stations.Routes)
		r.Route("/lines", cfg.Lines.Routes)
	})

	return r
}
