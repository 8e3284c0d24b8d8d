package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattiasfr/kintree/internal/config"
	"github.com/mattiasfr/kintree/internal/snapshot"
	"github.com/mattiasfr/kintree/internal/storage/memory"
	"github.com/mattiasfr/kintree/pkg/types"
	"github.com/mattiasfr/kintree/web/handlers"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Security: config.SecurityConfig{Mode: "development"},
		Storage: config.StorageConfig{
			SnapshotPath: filepath.Join(t.TempDir(), "snapshot.json"),
		},
	}
}

func strPtr(s string) *string { return &s }

func TestHealth(t *testing.T) {
	store := memory.NewStore(&types.Collection{
		Persons: []types.Person{{ID: "I1"}},
	})
	h := handlers.NewAPIHandlers(store, testConfig(t))

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Persons)
	assert.Zero(t, resp.Families)
}

func TestGetPerson(t *testing.T) {
	store := memory.NewStore(&types.Collection{
		Persons: []types.Person{{ID: "I1", Name: strPtr("John /Doe/")}},
	})
	h := handlers.NewAPIHandlers(store, testConfig(t))

	r := httptest.NewRequest(http.MethodGet, "/api/persons/I1", nil)
	r.SetPathValue("id", "I1")
	w := httptest.NewRecorder()
	h.GetPerson(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var p types.Person
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, "John /Doe/", *p.Name)
}

func TestGetPersonNotFound(t *testing.T) {
	h := handlers.NewAPIHandlers(memory.NewStore(nil), testConfig(t))

	r := httptest.NewRequest(http.MethodGet, "/api/persons/I404", nil)
	r.SetPathValue("id", "I404")
	w := httptest.NewRecorder()
	h.GetPerson(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPersonsSorted(t *testing.T) {
	store := memory.NewStore(&types.Collection{
		Persons: []types.Person{{ID: "I2"}, {ID: "I1"}},
	})
	h := handlers.NewAPIHandlers(store, testConfig(t))

	w := httptest.NewRecorder()
	h.ListPersons(w, httptest.NewRequest(http.MethodGet, "/api/persons", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Persons []types.Person `json:"persons"`
		Total   int            `json:"total"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "I1", resp.Persons[0].ID)
	assert.Equal(t, "I2", resp.Persons[1].ID)
}

func TestCreatePerson(t *testing.T) {
	cfg := testConfig(t)
	store := memory.NewStore(nil)
	h := handlers.NewAPIHandlers(store, cfg)

	body := `{"id":"I1","name":"John /Doe/","birth":{"date":"1 JAN 1900"}}`
	r := httptest.NewRequest(http.MethodPost, "/api/persons", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.CreatePerson(w, r)

	require.Equal(t, http.StatusCreated, w.Code)

	p, err := store.GetPerson("I1")
	require.NoError(t, err)
	require.NotNil(t, p.Birth)
	assert.Equal(t, "1 JAN 1900", *p.Birth.Date)
	assert.Nil(t, p.Birth.Place)

	// The insert was persisted.
	loaded, err := snapshot.Load(cfg.Storage.SnapshotPath)
	require.NoError(t, err)
	assert.Len(t, loaded.Persons, 1)
}

func TestCreatePersonConflict(t *testing.T) {
	store := memory.NewStore(&types.Collection{Persons: []types.Person{{ID: "I1"}}})
	h := handlers.NewAPIHandlers(store, testConfig(t))

	r := httptest.NewRequest(http.MethodPost, "/api/persons", strings.NewReader(`{"id":"I1"}`))
	w := httptest.NewRecorder()
	h.CreatePerson(w, r)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreatePersonBadBody(t *testing.T) {
	h := handlers.NewAPIHandlers(memory.NewStore(nil), testConfig(t))

	r := httptest.NewRequest(http.MethodPost, "/api/persons", strings.NewReader("{"))
	w := httptest.NewRecorder()
	h.CreatePerson(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/api/persons", strings.NewReader(`{"name":"No ID"}`))
	w = httptest.NewRecorder()
	h.CreatePerson(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateFamily(t *testing.T) {
	store := memory.NewStore(nil)
	h := handlers.NewAPIHandlers(store, testConfig(t))

	body := `{"id":"F1","husband":"I1","children":["I3"]}`
	r := httptest.NewRequest(http.MethodPost, "/api/families", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.CreateFamily(w, r)

	require.Equal(t, http.StatusCreated, w.Code)

	f, err := store.GetFamily("F1")
	require.NoError(t, err)
	assert.Equal(t, "I1", *f.Husband)
	assert.Equal(t, []string{"I3"}, f.Children)
}

func TestCreateFamilyWithoutChildrenHasEmptySlice(t *testing.T) {
	store := memory.NewStore(nil)
	h := handlers.NewAPIHandlers(store, testConfig(t))

	r := httptest.NewRequest(http.MethodPost, "/api/families", strings.NewReader(`{"id":"F1"}`))
	w := httptest.NewRecorder()
	h.CreateFamily(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	f, err := store.GetFamily("F1")
	require.NoError(t, err)
	assert.NotNil(t, f.Children)
	assert.Empty(t, f.Children)
}

func TestGetFamilyNotFound(t *testing.T) {
	h := handlers.NewAPIHandlers(memory.NewStore(nil), testConfig(t))

	r := httptest.NewRequest(http.MethodGet, "/api/families/F404", nil)
	r.SetPathValue("id", "F404")
	w := httptest.NewRecorder()
	h.GetFamily(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStatsWithoutJournal(t *testing.T) {
	store := memory.NewStore(&types.Collection{
		Persons:  []types.Person{{ID: "I1"}},
		Families: []types.Family{{ID: "F1", Children: []string{}}},
	})
	h := handlers.NewAPIHandlers(store, testConfig(t))

	w := httptest.NewRecorder()
	h.GetStats(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var stats handlers.StatsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Persons)
	assert.Equal(t, 1, stats.Families)
	assert.Zero(t, stats.Mutations)
}

func TestGetActivityWithoutJournal(t *testing.T) {
	h := handlers.NewAPIHandlers(memory.NewStore(nil), testConfig(t))

	w := httptest.NewRecorder()
	h.GetActivity(w, httptest.NewRequest(http.MethodGet, "/api/activity?days=7", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Days     int           `json:"days"`
		Activity []interface{} `json:"activity"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 7, resp.Days)
	assert.Empty(t, resp.Activity)
}
