package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()

	s, err := NewBoltStore(filepath.Join(t.TempDir(), "ampel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func saveRun(t *testing.T, s *BoltStore, name string, status Status, runAt time.Time) string {
	t.Helper()

	id, err := s.SaveRun(context.Background(), &CheckRun{
		CheckName:     name,
		RunAt:         runAt,
		CommandOutput: "output",
		Status:        status,
	})
	require.NoError(t, err)
	return id
}

func TestSaveRunAssignsID(t *testing.T) {
	s := newTestStore(t)

	run := &CheckRun{CheckName: "disk-root", Status: StatusOK}
	id, err := s.SaveRun(context.Background(), run)
	require.NoError(t, err)

	assert.NotEmpty(t, id)
	assert.Equal(t, id, run.ID)
	assert.False(t, run.RunAt.IsZero())
}

func TestGetRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().Add(-time.Hour)

	saveRun(t, s, "disk-root", StatusOK, base)
	saveRun(t, s, "disk-root", StatusAlert, base.Add(10*time.Minute))
	saveRun(t, s, "disk-root", StatusOK, base.Add(20*time.Minute))

	runs, err := s.GetRuns(context.Background(), RunFilters{})
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.True(t, runs[0].RunAt.After(runs[1].RunAt))
	assert.True(t, runs[1].RunAt.After(runs[2].RunAt))
	assert.Equal(t, StatusAlert, runs[1].Status)
}

func TestGetRunsFilters(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().Add(-time.Hour)

	saveRun(t, s, "disk-root", StatusOK, base)
	saveRun(t, s, "disk-root", StatusAlert, base.Add(time.Minute))
	saveRun(t, s, "raid-status", StatusError, base.Add(2*time.Minute))

	byName, err := s.GetRuns(context.Background(), RunFilters{CheckName: "disk-root"})
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	byStatus, err := s.GetRuns(context.Background(), RunFilters{Status: StatusAlert})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "disk-root", byStatus[0].CheckName)

	since, err := s.GetRuns(context.Background(), RunFilters{Since: base.Add(90 * time.Second)})
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, "raid-status", since[0].CheckName)

	limited, err := s.GetRuns(context.Background(), RunFilters{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestGetLatestRun(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().Add(-time.Hour)

	saveRun(t, s, "disk-root", StatusOK, base)
	latestID := saveRun(t, s, "disk-root", StatusAlert, base.Add(time.Minute))
	saveRun(t, s, "raid-status", StatusOK, base.Add(2*time.Minute))

	latest, err := s.GetLatestRun(context.Background(), "disk-root")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, latestID, latest.ID)

	missing, err := s.GetLatestRun(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStateRoundTrip(t *testing.T) {
	s := newTestStore(t)

	missing, err := s.GetState(context.Background(), "disk-root")
	require.NoError(t, err)
	assert.Nil(t, missing)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.UpdateState(context.Background(), &CheckState{
		CheckName:  "disk-root",
		LastRunAt:  now,
		LastStatus: StatusAlert,
		ConfigHash: "abc123",
	}))

	state, err := s.GetState(context.Background(), "disk-root")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, now, state.LastRunAt.UTC())
	assert.Equal(t, StatusAlert, state.LastStatus)
	assert.Equal(t, "abc123", state.ConfigHash)

	// Upsert replaces wholesale.
	require.NoError(t, s.UpdateState(context.Background(), &CheckState{
		CheckName: "disk-root",
		LastRunAt: now.Add(time.Minute),
	}))

	state, err = s.GetState(context.Background(), "disk-root")
	require.NoError(t, err)
	assert.Empty(t, state.LastStatus)
	assert.Empty(t, state.ConfigHash)
}

func TestCleanupOlderThan(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	saveRun(t, s, "disk-root", StatusOK, now.AddDate(0, 0, -100))
	saveRun(t, s, "disk-root", StatusOK, now.AddDate(0, 0, -91))
	saveRun(t, s, "disk-root", StatusOK, now.AddDate(0, 0, -10))
	saveRun(t, s, "disk-root", StatusOK, now)

	deleted, err := s.CleanupOlderThan(context.Background(), 90)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	runs, err := s.GetRuns(context.Background(), RunFilters{})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestGetStatusCounts(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	saveRun(t, s, "disk-root", StatusOK, now.Add(-3*time.Hour))
	saveRun(t, s, "disk-root", StatusOK, now.Add(-2*time.Hour))
	saveRun(t, s, "disk-root", StatusAlert, now.Add(-time.Hour))
	saveRun(t, s, "disk-root", StatusError, now.AddDate(0, 0, -30))
	saveRun(t, s, "raid-status", StatusError, now.Add(-time.Hour))

	counts, err := s.GetStatusCounts(context.Background(), "disk-root", 7)
	require.NoError(t, err)

	assert.Equal(t, 2, counts[StatusOK])
	assert.Equal(t, 1, counts[StatusAlert])
	assert.Equal(t, 0, counts[StatusError])
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"ok", "alert", "error"} {
		status, err := ParseStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, Status(valid), status)
	}

	_, err := ParseStatus("warning")
	assert.Error(t, err)
}
