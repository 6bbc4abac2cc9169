// internal/monitoring/service.go - the long-running check service
package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"ampel/internal/checks"
	"ampel/internal/config"
	"ampel/internal/metrics"
)

// DashboardWriter regenerates the static dashboard output.
type DashboardWriter interface {
	WriteAll(ctx context.Context) error
}

// Service drives the engine on a fixed tick, reloading check definitions
// each cycle so edits to the checks directory take effect without a restart.
type Service struct {
	cfg       *config.Config
	engine    *Engine
	dashboard DashboardWriter

	mu      sync.Mutex
	running bool
}

func NewService(cfg *config.Config, engine *Engine) *Service {
	return &Service{cfg: cfg, engine: engine}
}

func (s *Service) SetDashboard(w DashboardWriter) {
	s.dashboard = w
}

// Start blocks until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"interval":   s.cfg.Web.RunInterval,
		"checks_dir": s.cfg.ChecksDir,
	}).Info("Starting check service")

	ticker := time.NewTicker(s.cfg.Web.RunInterval)
	defer ticker.Stop()

	cleanup := time.NewTicker(24 * time.Hour)
	defer cleanup.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			logrus.Info("Check service stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		case <-cleanup.C:
			s.runCleanup(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	allChecks, err := checks.LoadDir(s.cfg.ChecksDir)
	if err != nil {
		logrus.WithError(err).Error("Failed to load check definitions")
		return
	}

	enabled := 0
	for i := range allChecks {
		if allChecks[i].Enabled {
			enabled++
		}
	}
	metrics.ActiveChecks.Set(float64(enabled))

	runs := s.engine.RunDue(ctx, allChecks, RunOptions{})
	if len(runs) > 0 {
		logrus.WithField("count", len(runs)).Debug("Completed due checks")
	}

	if s.dashboard != nil && (len(runs) > 0 || s.cfg.Dashboard.AutoUpdate) {
		if err := s.dashboard.WriteAll(ctx); err != nil {
			logrus.WithError(err).Warn("Dashboard update failed")
		}
	}
}

func (s *Service) runCleanup(ctx context.Context) {
	deleted, err := s.engine.store.CleanupOlderThan(ctx, s.cfg.Defaults.RetainDays)
	metrics.RecordStoreOperation("cleanup", err)
	if err != nil {
		logrus.WithError(err).Error("Run history cleanup failed")
		return
	}
	if deleted > 0 {
		logrus.WithFields(logrus.Fields{
			"deleted":     deleted,
			"retain_days": s.cfg.Defaults.RetainDays,
		}).Info("Cleaned up old runs")
	}
}
