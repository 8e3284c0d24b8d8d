package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattiasfr/kintree/internal/config"
	"github.com/mattiasfr/kintree/internal/server"
	"github.com/mattiasfr/kintree/internal/storage/memory"
	"github.com/mattiasfr/kintree/pkg/types"
)

func startTestServer(t *testing.T, cfg *config.Config) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		time.Sleep(50 * time.Millisecond)
	})

	store := memory.NewStore(&types.Collection{
		Persons: []types.Person{{ID: "I1"}},
	})
	addr, _ := server.Start(ctx, cfg, store, nil)
	return "http://" + addr
}

func devConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Security: config.SecurityConfig{Mode: "development"},
		Storage: config.StorageConfig{
			SnapshotPath: filepath.Join(t.TempDir(), "snapshot.json"),
		},
	}
}

func TestServerHealthAndSecurityHeaders(t *testing.T) {
	base := startTestServer(t, devConfig(t))

	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestServerCreateAndFetchPerson(t *testing.T) {
	base := startTestServer(t, devConfig(t))

	body := `{"id":"I2","name":"Jane /Doe/"}`
	resp, err := http.Post(base+"/api/persons", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(base + "/api/persons/I2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p types.Person
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, "Jane /Doe/", *p.Name)
}

func TestServerMethodNotAllowed(t *testing.T) {
	base := startTestServer(t, devConfig(t))

	req, err := http.NewRequest(http.MethodDelete, base+"/api/persons/I1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServerProductionAuth(t *testing.T) {
	cfg := devConfig(t)
	cfg.Security.Mode = "production"
	cfg.Security.APIToken = "secret"
	base := startTestServer(t, cfg)

	// Health stays open for monitoring.
	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// API routes require a bearer token.
	resp, err = http.Get(base + "/api/persons")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, base+"/api/persons", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
