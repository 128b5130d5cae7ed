package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soob-forest/atdd-subway-admin/models"
	"github.com/soob-forest/atdd-subway-admin/service"
)

// LineService defines the line operations the handler needs
type LineService interface {
	Create(ctx context.Context, in service.CreateLineInput) (*models.LineDetails, error)
	Get(ctx context.Context, id models.LineID) (*models.LineDetails, error)
	List(ctx context.Context) ([]*models.LineDetails, error)
	Update(ctx context.Context, id models.LineID, name, color string) (*models.LineDetails, error)
	Delete(ctx context.Context, id models.LineID) error
	AddSection(ctx context.Context, id models.LineID, up, down models.StationID, distance int) (*models.LineDetails, error)
	RemoveStation(ctx context.Context, id models.LineID, station models.StationID) (*models.LineDetails, error)
}

// LineHandler handles HTTP requests for lines and their sections
type LineHandler struct {
	svc LineService
}

// NewLineHandler creates a new handler with the given service
func NewLineHandler(svc LineService) *LineHandler {
	return &LineHandler{svc: svc}
}

// CreateLineRequest is the JSON body for POST /lines
type CreateLineRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Color         string `json:"color" validate:"required,max=50"`
	UpStationID   string `json:"upStationId" validate:"required,uuid"`
	DownStationID string `json:"downStationId" validate:"required,uuid"`
	Distance      int    `json:"distance" validate:"required"`
}

// UpdateLineRequest is the JSON body for PUT /lines/{id}
type UpdateLineRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Color string `json:"color" validate:"required,max=50"`
}

// AddSectionRequest is the JSON body for POST /lines/{id}/sections
type AddSectionRequest struct {
	UpStationID   string `json:"upStationId" validate:"required,uuid"`
	DownStationID string `json:"downStationId" validate:"required,uuid"`
	Distance      int    `json:"distance" validate:"required"`
}

// LineListResponse is the JSON response for GET /lines
type LineListResponse struct {
	Lines []*models.LineDetails `json:"lines"`
	Count int                   `json:"count"`
}

// Routes mounts the line endpoints on r
func (h *LineHandler) Routes(r chi.Router) {
	r.Post("/", h.CreateLine)
	r.Get("/", h.ListLines)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetLine)
		r.Put("/", h.UpdateLine)
		r.Delete("/", h.DeleteLine)
		r.Post("/sections", h.AddSection)
		r.Delete("/sections", h.RemoveStation)
	})
}

// CreateLine handles POST /lines
// The line opens with a single section between the two given stations
func (h *LineHandler) CreateLine(w http.ResponseWriter, r *http.Request) {
	var req CreateLineRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	up, ok := parseID(w, "upStationId", req.UpStationID)
	if !ok {
		return
	}
	down, ok := parseID(w, "downStationId", req.DownStationID)
	if !ok {
		return
	}

	line, err := h.svc.Create(r.Context(), service.CreateLineInput{
		Name:          req.Name,
		Color:         req.Color,
		UpStationID:   up,
		DownStationID: down,
		Distance:      req.Distance,
	})
	if err != nil {
		writeServiceError(w, r, "create line", err)
		return
	}

	w.Header().Set("Location", "/lines/"+line.ID.String())
	writeJSON(w, http.StatusCreated, line)
}

// ListLines handles GET /lines
func (h *LineHandler) ListLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, "retrieve lines", err)
		return
	}
	if lines == nil {
		lines = []*models.LineDetails{}
	}
	writeJSON(w, http.StatusOK, LineListResponse{Lines: lines, Count: len(lines)})
}

// GetLine handles GET /lines/{id}
// Stations are returned in traversal order from the up terminus
func (h *LineHandler) GetLine(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	line, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "retrieve line", err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

// UpdateLine handles PUT /lines/{id}
func (h *LineHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req UpdateLineRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	line, err := h.svc.Update(r.Context(), id, req.Name, req.Color)
	if err != nil {
		writeServiceError(w, r, "update line", err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

// DeleteLine handles DELETE /lines/{id}
func (h *LineHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, "delete line", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddSection handles POST /lines/{id}/sections
func (h *LineHandler) AddSection(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req AddSectionRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	up, ok := parseID(w, "upStationId", req.UpStationID)
	if !ok {
		return
	}
	down, ok := parseID(w, "downStationId", req.DownStationID)
	if !ok {
		return
	}

	line, err := h.svc.AddSection(r.Context(), id, up, down, req.Distance)
	if err != nil {
		writeServiceError(w, r, "add section", err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

// RemoveStation handles DELETE /lines/{id}/sections?stationId={stationId}
// An interior station's two sections are merged into one
func (h *LineHandler) RemoveStation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	raw := r.URL.Query().Get("stationId")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "stationId query parameter is required", nil)
		return
	}
	station, ok := parseID(w, "stationId", raw)
	if !ok {
		return
	}

	if _, err := h.svc.RemoveStation(r.Context(), id, station); err != nil {
		writeServiceError(w, r, "remove station", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
