package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/mattiasfr/kintree/internal/config"
	"github.com/mattiasfr/kintree/internal/journal"
	"github.com/mattiasfr/kintree/internal/snapshot"
	"github.com/mattiasfr/kintree/internal/storage"
	"github.com/mattiasfr/kintree/pkg/types"
)

// APIHandlers contains HTTP handlers for the REST API.
type APIHandlers struct {
	store        storage.TreeStore
	config       *config.Config
	journal      *journal.Journal // optional
	hub          *WebSocketHub    // optional
	snapshotPath string           // empty disables persistence
}

// NewAPIHandlers creates a new APIHandlers instance.
func NewAPIHandlers(store storage.TreeStore, cfg *config.Config) *APIHandlers {
	return &APIHandlers{
		store:        store,
		config:       cfg,
		snapshotPath: cfg.Storage.SnapshotPath,
	}
}

// SetJournal attaches a mutation journal. Journal failures never fail a
// request.
func (h *APIHandlers) SetJournal(j *journal.Journal) {
	h.journal = j
}

// SetHub attaches the websocket hub for insert-event broadcasts.
func (h *APIHandlers) SetHub(hub *WebSocketHub) {
	h.hub = hub
}

// ErrorResponse is the JSON shape of all API error bodies.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Persons  int    `json:"persons"`
	Families int    `json:"families"`
}

// StatsResponse is returned by GET /api/stats.
type StatsResponse struct {
	Persons   int `json:"persons"`
	Families  int `json:"families"`
	Mutations int `json:"mutations"`
}

// Health handles GET /api/health.
func (h *APIHandlers) Health(w http.ResponseWriter, r *http.Request) {
	persons, families := h.store.Counts()
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Persons:  persons,
		Families: families,
	})
}

// ListPersons handles GET /api/persons. Results are sorted by ID for stable
// output.
func (h *APIHandlers) ListPersons(w http.ResponseWriter, r *http.Request) {
	persons := h.store.ListPersons()
	sort.Slice(persons, func(i, j int) bool { return persons[i].ID < persons[j].ID })
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"persons": persons,
		"total":   len(persons),
	})
}

// GetPerson handles GET /api/persons/{id}.
func (h *APIHandlers) GetPerson(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "person ID is required", nil)
		return
	}

	p, err := h.store.GetPerson(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "person not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get person", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// ListFamilies handles GET /api/families. Results are sorted by ID.
func (h *APIHandlers) ListFamilies(w http.ResponseWriter, r *http.Request) {
	families := h.store.ListFamilies()
	sort.Slice(families, func(i, j int) bool { return families[i].ID < families[j].ID })
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"families": families,
		"total":    len(families),
	})
}

// GetFamily handles GET /api/families/{id}.
func (h *APIHandlers) GetFamily(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "family ID is required", nil)
		return
	}

	f, err := h.store.GetFamily(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "family not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get family", err)
		return
	}
	respondJSON(w, http.StatusOK, f)
}

// createPersonRequest is the body of POST /api/persons.
type createPersonRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Birth *struct {
		Date  string `json:"date,omitempty"`
		Place string `json:"place,omitempty"`
	} `json:"birth,omitempty"`
	Death *struct {
		Date  string `json:"date,omitempty"`
		Place string `json:"place,omitempty"`
	} `json:"death,omitempty"`
}

// CreatePerson handles POST /api/persons.
func (h *APIHandlers) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req createPersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "person ID is required", nil)
		return
	}

	p := types.Person{ID: req.ID}
	if req.Name != "" {
		name := req.Name
		p.Name = &name
	}
	p.Birth = optionalEvent(req.Birth)
	p.Death = optionalEvent(req.Death)

	if err := h.store.InsertPerson(p); err != nil {
		var dup *storage.DuplicateError
		if errors.As(err, &dup) {
			respondError(w, http.StatusConflict, dup.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to insert person", err)
		return
	}

	if !h.persist(w) {
		return
	}
	h.recordMutation(string(storage.KindPerson), req.ID)

	respondJSON(w, http.StatusCreated, map[string]interface{}{"id": req.ID, "created": true})
}

// createFamilyRequest is the body of POST /api/families.
type createFamilyRequest struct {
	ID       string   `json:"id"`
	Husband  string   `json:"husband,omitempty"`
	Wife     string   `json:"wife,omitempty"`
	Children []string `json:"children,omitempty"`
}

// CreateFamily handles POST /api/families. Member IDs are accepted without
// existence checks.
func (h *APIHandlers) CreateFamily(w http.ResponseWriter, r *http.Request) {
	var req createFamilyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "family ID is required", nil)
		return
	}

	f := types.Family{ID: req.ID, Children: []string{}}
	if req.Husband != "" {
		husband := req.Husband
		f.Husband = &husband
	}
	if req.Wife != "" {
		wife := req.Wife
		f.Wife = &wife
	}
	f.Children = append(f.Children, req.Children...)

	if err := h.store.InsertFamily(f); err != nil {
		var dup *storage.DuplicateError
		if errors.As(err, &dup) {
			respondError(w, http.StatusConflict, dup.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to insert family", err)
		return
	}

	if !h.persist(w) {
		return
	}
	h.recordMutation(string(storage.KindFamily), req.ID)

	respondJSON(w, http.StatusCreated, map[string]interface{}{"id": req.ID, "created": true})
}

// GetStats handles GET /api/stats.
func (h *APIHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	persons, families := h.store.Counts()

	mutations := 0
	if h.journal != nil {
		if n, err := h.journal.Total(); err == nil {
			mutations = n
		}
	}

	respondJSON(w, http.StatusOK, StatsResponse{
		Persons:   persons,
		Families:  families,
		Mutations: mutations,
	})
}

// GetActivity handles GET /api/activity - per-day mutation counts for the
// trailing window (default 30 days).
func (h *APIHandlers) GetActivity(w http.ResponseWriter, r *http.Request) {
	days := parseInt(r.URL.Query().Get("days"), 30)

	buckets := []journal.ActivityBucket{}
	if h.journal != nil {
		b, err := h.journal.Activity(days)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to query activity", err)
			return
		}
		if b != nil {
			buckets = b
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"days":     days,
		"activity": buckets,
	})
}

// persist writes the snapshot after a successful insert. On failure the
// insert is kept in memory and the handler reports 500; the next successful
// mutation writes the full state anyway. Returns false when a response has
// already been written.
func (h *APIHandlers) persist(w http.ResponseWriter) bool {
	if h.snapshotPath == "" {
		return true
	}
	if err := snapshot.Write(h.snapshotPath, h.store.Export()); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to persist data", err)
		return false
	}
	return true
}

func (h *APIHandlers) recordMutation(kind, id string) {
	if h.journal != nil {
		h.journal.Record(kind, id)
	}
	if h.hub != nil {
		h.hub.NotifyInsert(kind, id)
	}
}

func optionalEvent(e *struct {
	Date  string `json:"date,omitempty"`
	Place string `json:"place,omitempty"`
}) *types.Event {
	if e == nil || (e.Date == "" && e.Place == "") {
		return nil
	}
	ev := &types.Event{}
	if e.Date != "" {
		d := e.Date
		ev.Date = &d
	}
	if e.Place != "" {
		p := e.Place
		ev.Place = &p
	}
	return ev
}

// extractID extracts a path parameter from the request using Go 1.22+ path values.
func extractID(r *http.Request, key string) string {
	return r.PathValue(key)
}

// parseInt parses an integer from a string, returning defaultValue if parsing fails.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// If encoding fails, log but don't try to write another response
		// (headers already sent)
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}
