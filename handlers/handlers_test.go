package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/soob-forest/atdd-subway-admin/models"
	"github.com/soob-forest/atdd-subway-admin/repository"
	"github.com/soob-forest/atdd-subway-admin/service"
)

// setupRouter builds the full API on a fresh SQLite database
func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "subway.db"))
	if err != nil {
		t.Fatalf("Failed to open SQLite database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	stationRepo := repository.NewSQLiteStationRepository(db)
	lineRepo := repository.NewSQLiteLineRepository(db)

	return NewRouter(RouterConfig{
		Stations:       NewStationHandler(service.NewStationService(stationRepo)),
		Lines:          NewLineHandler(service.NewLineService(lineRepo, stationRepo, 16, time.Minute)),
		Health:         NewHealthHandler(db),
		AllowedOrigins: []string{"http://localhost:5173"},
		RequestTimeout: 5 * time.Second,
	})
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func createStation(t *testing.T, h http.Handler, name string) models.Station {
	t.Helper()
	w := do(t, h, http.MethodPost, "/stations", CreateStationRequest{Name: name})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /stations status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[models.Station](t, w)
}

func createLine(t *testing.T, h http.Handler, name string, up, down models.Station, distance int) models.LineDetails {
	t.Helper()
	w := do(t, h, http.MethodPost, "/lines", CreateLineRequest{
		Name: name, Color: "bg-red-600",
		UpStationID: up.ID.String(), DownStationID: down.ID.String(), Distance: distance,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /lines status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[models.LineDetails](t, w)
}

func assertLineStations(t *testing.T, line models.LineDetails, want ...models.Station) {
	t.Helper()
	if len(line.Stations) != len(want) {
		t.Fatalf("line has %d stations, want %d", len(line.Stations), len(want))
	}
	for i := range want {
		if line.Stations[i].ID != want[i].ID {
			t.Errorf("station[%d] = %s, want %s", i, line.Stations[i].Name, want[i].Name)
		}
	}
}

func TestStations(t *testing.T) {
	h := setupRouter(t)

	w := do(t, h, http.MethodPost, "/stations", CreateStationRequest{Name: "Gangnam"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	station := decode[models.Station](t, w)
	if loc := w.Header().Get("Location"); loc != "/stations/"+station.ID.String() {
		t.Errorf("Location = %q", loc)
	}

	w = do(t, h, http.MethodGet, "/stations", nil)
	list := decode[StationListResponse](t, w)
	if list.Count != 1 || list.Stations[0].Name != "Gangnam" {
		t.Errorf("GET /stations = %+v", list)
	}

	w = do(t, h, http.MethodDelete, "/stations/"+station.ID.String(), nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", w.Code)
	}
	w = do(t, h, http.MethodDelete, "/stations/"+station.ID.String(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", w.Code)
	}
}

func TestStations_InvalidRequests(t *testing.T) {
	h := setupRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"empty name", http.MethodPost, "/stations", CreateStationRequest{}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/stations", "not an object", http.StatusBadRequest},
		{"malformed id", http.MethodDelete, "/stations/abc", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestLines_SectionLifecycle(t *testing.T) {
	h := setupRouter(t)
	a := createStation(t, h, "A")
	b := createStation(t, h, "B")
	d := createStation(t, h, "D")

	line := createLine(t, h, "Line 1", a, d, 10)
	assertLineStations(t, line, a, d)

	w := do(t, h, http.MethodPost, "/lines/"+line.ID.String()+"/sections", AddSectionRequest{
		UpStationID: a.ID.String(), DownStationID: b.ID.String(), Distance: 4,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST sections status = %d, body = %s", w.Code, w.Body.String())
	}
	line = decode[models.LineDetails](t, w)
	assertLineStations(t, line, a, b, d)
	if line.Distance != 10 {
		t.Errorf("Distance = %d, want 10", line.Distance)
	}

	w = do(t, h, http.MethodDelete, "/lines/"+line.ID.String()+"/sections?stationId="+b.ID.String(), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("DELETE sections status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/lines/"+line.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET line status = %d", w.Code)
	}
	line = decode[models.LineDetails](t, w)
	assertLineStations(t, line, a, d)
	if len(line.Sections) != 1 || line.Sections[0].Distance != 10 {
		t.Errorf("Sections = %+v, want one section of 10", line.Sections)
	}
}

func TestLines_DomainErrors(t *testing.T) {
	h := setupRouter(t)
	a := createStation(t, h, "A")
	b := createStation(t, h, "B")
	c := createStation(t, h, "C")
	line := createLine(t, h, "Line 1", a, b, 5)
	sections := "/lines/" + line.ID.String() + "/sections"

	tests := []struct {
		name     string
		method   string
		path     string
		body     interface{}
		wantCode int
		wantKind string
	}{
		{"no room for split", http.MethodPost, sections, AddSectionRequest{UpStationID: a.ID.String(), DownStationID: c.ID.String(), Distance: 5}, http.StatusBadRequest, "distance"},
		{"duplicate", http.MethodPost, sections, AddSectionRequest{UpStationID: a.ID.String(), DownStationID: b.ID.String(), Distance: 3}, http.StatusBadRequest, "duplicate_section"},
		{"same stations", http.MethodPost, sections, AddSectionRequest{UpStationID: c.ID.String(), DownStationID: c.ID.String(), Distance: 3}, http.StatusBadRequest, "invalid_section"},
		{"last section", http.MethodDelete, sections + "?stationId=" + a.ID.String(), nil, http.StatusBadRequest, "last_section"},
		{"station not on line", http.MethodDelete, sections + "?stationId=" + c.ID.String(), nil, http.StatusBadRequest, "station_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			resp := decode[ErrorResponse](t, w)
			if resp.Details["kind"] != tt.wantKind {
				t.Errorf("kind = %v, want %s", resp.Details["kind"], tt.wantKind)
			}
		})
	}
}

func TestLines_NotFoundAndConflict(t *testing.T) {
	h := setupRouter(t)
	a := createStation(t, h, "A")
	b := createStation(t, h, "B")
	line := createLine(t, h, "Line 1", a, b, 5)

	if w := do(t, h, http.MethodGet, "/lines/"+uuid.NewString(), nil); w.Code != http.StatusNotFound {
		t.Errorf("GET unknown line status = %d, want 404", w.Code)
	}
	w := do(t, h, http.MethodPost, "/lines/"+line.ID.String()+"/sections", AddSectionRequest{
		UpStationID: b.ID.String(), DownStationID: uuid.NewString(), Distance: 1,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("unregistered station status = %d, want 404", w.Code)
	}

	w = do(t, h, http.MethodPost, "/lines", CreateLineRequest{
		Name: "Line 1", Color: "bg-blue-600", UpStationID: a.ID.String(), DownStationID: b.ID.String(), Distance: 3,
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate line name status = %d, want 409", w.Code)
	}

	if w := do(t, h, http.MethodDelete, "/stations/"+a.ID.String(), nil); w.Code != http.StatusConflict {
		t.Errorf("DELETE station on line status = %d, want 409", w.Code)
	}
}

func TestLines_UpdateListDelete(t *testing.T) {
	h := setupRouter(t)
	a := createStation(t, h, "A")
	b := createStation(t, h, "B")
	line := createLine(t, h, "Line 1", a, b, 5)
	path := "/lines/" + line.ID.String()

	w := do(t, h, http.MethodPut, path, UpdateLineRequest{Name: "Line 2", Color: "bg-green-600"})
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode[models.LineDetails](t, w); got.Name != "Line 2" {
		t.Errorf("Name = %q, want Line 2", got.Name)
	}

	if w := do(t, h, http.MethodPut, path, UpdateLineRequest{Name: "Line 3"}); w.Code != http.StatusBadRequest {
		t.Errorf("PUT without color status = %d, want 400", w.Code)
	}

	list := decode[LineListResponse](t, do(t, h, http.MethodGet, "/lines", nil))
	if list.Count != 1 || list.Lines[0].Name != "Line 2" {
		t.Errorf("GET /lines = %+v", list)
	}

	if w := do(t, h, http.MethodDelete, path, nil); w.Code != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", w.Code)
	}
	if w := do(t, h, http.MethodGet, path, nil); w.Code != http.StatusNotFound {
		t.Errorf("GET after DELETE status = %d, want 404", w.Code)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	h := setupRouter(t)
	w := do(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	NewHealthHandler(failingPinger{}).GetHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if resp := decode[HealthResponse](t, w); resp.Database != "disconnected" {
		t.Errorf("Database = %q, want disconnected", resp.Database)
	}
}
