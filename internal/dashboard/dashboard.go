// internal/dashboard/dashboard.go - static JSON dashboard generation
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"ampel/internal/checks"
	"ampel/internal/config"
	"ampel/internal/store"
)

// Writer renders run history into static JSON files that a plain file
// server can host. Every file is written atomically so readers never see a
// partial document.
type Writer struct {
	cfg   *config.Config
	store store.Store
}

func NewWriter(cfg *config.Config, st store.Store) *Writer {
	return &Writer{cfg: cfg, store: st}
}

type statusDoc struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Checks      []checkStatus `json:"checks"`
}

type checkStatus struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Enabled     bool         `json:"enabled"`
	Schedule    string       `json:"schedule"`
	Status      store.Status `json:"status"`
	LastRunAt   *time.Time   `json:"last_run_at,omitempty"`
	Message     string       `json:"message,omitempty"`
	DurationMS  int64        `json:"duration_ms,omitempty"`
}

type historyDoc struct {
	GeneratedAt time.Time        `json:"generated_at"`
	WindowHours int              `json:"window_hours"`
	Runs        []store.CheckRun `json:"runs"`
}

type statsDoc struct {
	GeneratedAt time.Time    `json:"generated_at"`
	WindowDays  int          `json:"window_days"`
	Checks      []checkStats `json:"checks"`
}

type checkStats struct {
	Name      string  `json:"name"`
	Total     int     `json:"total"`
	OK        int     `json:"ok"`
	Alert     int     `json:"alert"`
	Error     int     `json:"error"`
	UptimePct float64 `json:"uptime_pct"`
}

type checkDetailDoc struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Check       checkStatus      `json:"check"`
	Runs        []store.CheckRun `json:"runs"`
}

// WriteAll regenerates every dashboard file.
func (w *Writer) WriteAll(ctx context.Context) error {
	allChecks, err := checks.LoadDir(w.cfg.ChecksDir)
	if err != nil {
		return fmt.Errorf("failed to load checks: %w", err)
	}

	if err := w.writeStatus(ctx, allChecks); err != nil {
		return err
	}
	if err := w.writeHistory(ctx); err != nil {
		return err
	}
	if err := w.writeStats(ctx, allChecks); err != nil {
		return err
	}
	for i := range allChecks {
		if err := w.writeCheckDetail(ctx, &allChecks[i]); err != nil {
			return err
		}
	}

	logrus.WithField("output_dir", w.cfg.Dashboard.OutputDir).Debug("Dashboard updated")
	return nil
}

func (w *Writer) writeStatus(ctx context.Context, allChecks []checks.Check) error {
	doc := statusDoc{GeneratedAt: time.Now().UTC()}

	for i := range allChecks {
		check := &allChecks[i]
		cs, err := w.checkStatus(ctx, check)
		if err != nil {
			return err
		}
		doc.Checks = append(doc.Checks, cs)
	}

	return w.writeJSON("status.json", doc)
}

func (w *Writer) checkStatus(ctx context.Context, check *checks.Check) (checkStatus, error) {
	cs := checkStatus{
		Name:        check.Name,
		Description: check.Description,
		Enabled:     check.Enabled,
		Schedule:    check.Schedule,
	}

	latest, err := w.store.GetLatestRun(ctx, check.Name)
	if err != nil {
		return cs, fmt.Errorf("failed to load latest run for %s: %w", check.Name, err)
	}
	if latest != nil {
		cs.Status = latest.Status
		cs.LastRunAt = &latest.RunAt
		cs.Message = latest.AlertMessage
		cs.DurationMS = latest.CommandDurationMS
	}
	return cs, nil
}

func (w *Writer) writeHistory(ctx context.Context) error {
	since := time.Now().Add(-time.Duration(w.cfg.Dashboard.HistoryHours) * time.Hour)
	runs, err := w.store.GetRuns(ctx, store.RunFilters{Since: since})
	if err != nil {
		return fmt.Errorf("failed to load run history: %w", err)
	}

	return w.writeJSON("history.json", historyDoc{
		GeneratedAt: time.Now().UTC(),
		WindowHours: w.cfg.Dashboard.HistoryHours,
		Runs:        runs,
	})
}

func (w *Writer) writeStats(ctx context.Context, allChecks []checks.Check) error {
	doc := statsDoc{
		GeneratedAt: time.Now().UTC(),
		WindowDays:  w.cfg.Dashboard.StatsDays,
	}

	for i := range allChecks {
		name := allChecks[i].Name
		counts, err := w.store.GetStatusCounts(ctx, name, w.cfg.Dashboard.StatsDays)
		if err != nil {
			return fmt.Errorf("failed to load status counts for %s: %w", name, err)
		}

		cs := checkStats{
			Name:  name,
			OK:    counts[store.StatusOK],
			Alert: counts[store.StatusAlert],
			Error: counts[store.StatusError],
		}
		cs.Total = cs.OK + cs.Alert + cs.Error
		if cs.Total > 0 {
			cs.UptimePct = 100 * float64(cs.OK) / float64(cs.Total)
		}
		doc.Checks = append(doc.Checks, cs)
	}

	return w.writeJSON("stats.json", doc)
}

func (w *Writer) writeCheckDetail(ctx context.Context, check *checks.Check) error {
	cs, err := w.checkStatus(ctx, check)
	if err != nil {
		return err
	}

	runs, err := w.store.GetRuns(ctx, store.RunFilters{
		CheckName: check.Name,
		Limit:     w.cfg.Dashboard.CheckHistoryCount,
	})
	if err != nil {
		return fmt.Errorf("failed to load runs for %s: %w", check.Name, err)
	}

	return w.writeJSON(filepath.Join("checks", check.Name+".json"), checkDetailDoc{
		GeneratedAt: time.Now().UTC(),
		Check:       cs,
		Runs:        runs,
	})
}

// writeJSON marshals doc and renames it into place.
func (w *Writer) writeJSON(name string, doc any) error {
	path := filepath.Join(w.cfg.Dashboard.OutputDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create dashboard directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dashboard-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}
