package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soob-forest/atdd-subway-admin/models"
)

// StationService defines the station operations the handler needs
type StationService interface {
	Create(ctx context.Context, name string) (*models.Station, error)
	List(ctx context.Context) ([]models.Station, error)
	Delete(ctx context.Context, id models.StationID) error
}

// StationHandler handles HTTP requests for the station registry
type StationHandler struct {
	svc StationService
}

// NewStationHandler creates a new handler with the given service
func NewStationHandler(svc StationService) *StationHandler {
	return &StationHandler{svc: svc}
}

// CreateStationRequest is the JSON body for POST /stations
type CreateStationRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// StationListResponse is the JSON response for GET /stations
type StationListResponse struct {
	Stations []models.Station `json:"stations"`
	Count    int              `json:"count"`
}

// Routes mounts the station endpoints on r
func (h *StationHandler) Routes(r chi.Router) {
	r.Post("/", h.CreateStation)
	r.Get("/", h.ListStations)
	r.Delete("/{id}", h.DeleteStation)
}

// CreateStation handles POST /stations
func (h *StationHandler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var req CreateStationRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	station, err := h.svc.Create(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, r, "create station", err)
		return
	}

	w.Header().Set("Location", "/stations/"+station.ID.String())
	writeJSON(w, http.StatusCreated, station)
}

// ListStations handles GET /stations
func (h *StationHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, "retrieve stations", err)
		return
	}
	if stations == nil {
		stations = []models.Station{}
	}
	writeJSON(w, http.StatusOK, StationListResponse{Stations: stations, Count: len(stations)})
}

// DeleteStation handles DELETE /stations/{id}
// Stations still on a line are rejected with 409
func (h *StationHandler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, "delete station", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
