package dashboard

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ampel/internal/config"
	"ampel/internal/store"
)

func setup(t *testing.T) (*Writer, store.Store, *config.Config) {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.ChecksDir = t.TempDir()
	cfg.Dashboard.OutputDir = t.TempDir()
	cfg.Database.Path = filepath.Join(t.TempDir(), "ampel.db")

	require.NoError(t, os.WriteFile(filepath.Join(cfg.ChecksDir, "disk.yaml"), []byte(`name: disk-root
command: df -h /
schedule: "*/15 * * * *"
description: Root disk usage
llm:
  prompt: Judge disk usage.
`), 0o644))

	st, err := store.NewBoltStore(cfg.Database.Path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewWriter(cfg, st), st, cfg
}

func readJSON(t *testing.T, path string, into any) {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, into))
}

func TestWriteAllProducesEveryFile(t *testing.T) {
	writer, st, cfg := setup(t)

	_, err := st.SaveRun(context.Background(), &store.CheckRun{
		CheckName:    "disk-root",
		RunAt:        time.Now().Add(-time.Hour),
		Status:       store.StatusAlert,
		AlertMessage: "Root disk at 95%",
	})
	require.NoError(t, err)

	require.NoError(t, writer.WriteAll(context.Background()))

	var status statusDoc
	readJSON(t, filepath.Join(cfg.Dashboard.OutputDir, "status.json"), &status)
	require.Len(t, status.Checks, 1)
	assert.Equal(t, "disk-root", status.Checks[0].Name)
	assert.Equal(t, "Root disk usage", status.Checks[0].Description)
	assert.Equal(t, store.StatusAlert, status.Checks[0].Status)
	assert.Equal(t, "Root disk at 95%", status.Checks[0].Message)

	var history historyDoc
	readJSON(t, filepath.Join(cfg.Dashboard.OutputDir, "history.json"), &history)
	assert.Equal(t, cfg.Dashboard.HistoryHours, history.WindowHours)
	assert.Len(t, history.Runs, 1)

	var stats statsDoc
	readJSON(t, filepath.Join(cfg.Dashboard.OutputDir, "stats.json"), &stats)
	require.Len(t, stats.Checks, 1)
	assert.Equal(t, 1, stats.Checks[0].Alert)
	assert.Equal(t, 1, stats.Checks[0].Total)
	assert.Equal(t, 0.0, stats.Checks[0].UptimePct)

	var detail checkDetailDoc
	readJSON(t, filepath.Join(cfg.Dashboard.OutputDir, "checks", "disk-root.json"), &detail)
	assert.Equal(t, "disk-root", detail.Check.Name)
	assert.Len(t, detail.Runs, 1)
}

func TestWriteAllNoRuns(t *testing.T) {
	writer, _, cfg := setup(t)

	require.NoError(t, writer.WriteAll(context.Background()))

	var status statusDoc
	readJSON(t, filepath.Join(cfg.Dashboard.OutputDir, "status.json"), &status)
	require.Len(t, status.Checks, 1)
	assert.Nil(t, status.Checks[0].LastRunAt)
	assert.Empty(t, status.Checks[0].Status)
}

func TestUptimePercentage(t *testing.T) {
	writer, st, cfg := setup(t)

	now := time.Now()
	for i, status := range []store.Status{store.StatusOK, store.StatusOK, store.StatusOK, store.StatusAlert} {
		_, err := st.SaveRun(context.Background(), &store.CheckRun{
			CheckName: "disk-root",
			RunAt:     now.Add(-time.Duration(i) * time.Hour),
			Status:    status,
		})
		require.NoError(t, err)
	}

	require.NoError(t, writer.WriteAll(context.Background()))

	var stats statsDoc
	readJSON(t, filepath.Join(cfg.Dashboard.OutputDir, "stats.json"), &stats)
	require.Len(t, stats.Checks, 1)
	assert.Equal(t, 4, stats.Checks[0].Total)
	assert.InDelta(t, 75.0, stats.Checks[0].UptimePct, 0.01)
}

func TestWriteAtomicReplacesExisting(t *testing.T) {
	writer, _, cfg := setup(t)

	require.NoError(t, writer.WriteAll(context.Background()))
	require.NoError(t, writer.WriteAll(context.Background()))

	// No temp files left behind.
	entries, err := os.ReadDir(cfg.Dashboard.OutputDir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".dashboard-")
	}
}
