package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ampel/internal/config"
	"ampel/internal/llm"
	"ampel/internal/monitoring"
	"ampel/internal/notify"
	"ampel/internal/store"
)

type nullGenerator struct{}

func (nullGenerator) Generate(ctx context.Context, model, prompt string, timeout time.Duration) (string, error) {
	return "OK", nil
}

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.ChecksDir = t.TempDir()
	cfg.Database.Path = filepath.Join(t.TempDir(), "ampel.db")

	require.NoError(t, os.WriteFile(filepath.Join(cfg.ChecksDir, "disk.yaml"), []byte(`name: disk-root
command: echo 40% used
schedule: "*/15 * * * *"
llm:
  prompt: Judge disk usage.
`), 0o644))

	st, err := store.NewBoltStore(cfg.Database.Path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	analyzer := llm.NewAnalyzer(nullGenerator{}, cfg)
	notifier := notify.NewClient("http://127.0.0.1:0", "ampel", "")
	engine := monitoring.NewEngine(cfg, st, analyzer, notifier)

	return NewServer(cfg, st, engine), st
}

func doRequest(t *testing.T, s *Server, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestGetChecks(t *testing.T) {
	s, _ := newTestServer(t)

	rec, body := doRequest(t, s, http.MethodGet, "/api/checks")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
}

func TestGetStatusEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	rec, body := doRequest(t, s, http.MethodGet, "/api/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].([]any)
	require.Len(t, data, 1)

	entry := data[0].(map[string]any)
	assert.Equal(t, "disk-root", entry["name"])
	assert.Nil(t, entry["last_run_at"])
}

func TestGetCheckNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec, _ := doRequest(t, s, http.MethodGet, "/api/checks/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunCheckEndpoint(t *testing.T) {
	s, st := newTestServer(t)

	rec, body := doRequest(t, s, http.MethodPost, "/api/checks/disk-root/run")

	assert.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])

	latest, err := st.GetLatestRun(context.Background(), "disk-root")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, store.StatusOK, latest.Status)
}

func TestGetHistoryFilters(t *testing.T) {
	s, st := newTestServer(t)

	_, err := st.SaveRun(context.Background(), &store.CheckRun{
		CheckName: "disk-root",
		RunAt:     time.Now(),
		Status:    store.StatusAlert,
	})
	require.NoError(t, err)

	rec, body := doRequest(t, s, http.MethodGet, "/api/history?check=disk-root&status=alert")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, _ = doRequest(t, s, http.MethodGet, "/api/history?status=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doRequest(t, s, http.MethodGet, "/api/history?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec, body := doRequest(t, s, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}
