// Package handlers serves the line and station administration API over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/soob-forest/atdd-subway-admin/models"
	"github.com/soob-forest/atdd-subway-admin/service"
)

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string, details map[string]interface{}) {
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// decodeRequest reads a JSON body into dst and validates its struct tags.
func decodeRequest(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

// writeDecodeError reports a malformed or invalid request body as 400.
func writeDecodeError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]interface{}, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		writeError(w, http.StatusBadRequest, "Invalid request", fields)
		return
	}
	writeError(w, http.StatusBadRequest, err.Error(), nil)
}

// parseID parses a UUID path or query parameter, writing a 400 when it is malformed.
func parseID(w http.ResponseWriter, name, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be a valid UUID", map[string]interface{}{
			name: raw,
		})
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps service and domain errors to a status code.
// Anything unrecognized is an infrastructure failure: it is logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case models.IsDomainError(err):
		writeError(w, http.StatusBadRequest, err.Error(), map[string]interface{}{
			"kind": models.ErrorKind(err),
		})
	case errors.Is(err, service.ErrLineNotFound), errors.Is(err, service.ErrStationUnknown):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrStationInUse), errors.Is(err, service.ErrDuplicateLineName):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		log.Printf("%s %s: %s failed: %v", r.Method, r.URL.Path, action, err)
		writeError(w, http.StatusInternalServerError, "Failed to "+action, nil)
	}
}
