// internal/monitoring/engine.go - the check execution pipeline
package monitoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ampel/internal/checks"
	"ampel/internal/config"
	"ampel/internal/llm"
	"ampel/internal/metrics"
	"ampel/internal/notify"
	"ampel/internal/runner"
	"ampel/internal/scheduler"
	"ampel/internal/store"
)

// Engine runs checks end to end: execute, classify, notify, persist. One
// check failing never prevents the others in a batch from running.
type Engine struct {
	cfg      *config.Config
	store    store.Store
	analyzer *llm.Analyzer
	notifier *notify.Client

	// runHook observes every completed run, after persistence. Used by the
	// web server to feed WebSocket subscribers.
	runHook func(*store.CheckRun)
}

// RunOptions adjust a single invocation of the pipeline.
type RunOptions struct {
	// Force runs checks regardless of schedule.
	Force bool
	// DryRun reports which checks would run without executing anything.
	DryRun bool
	// NoNotify suppresses notifications; classification and persistence
	// still happen.
	NoNotify bool
}

func NewEngine(cfg *config.Config, st store.Store, analyzer *llm.Analyzer, notifier *notify.Client) *Engine {
	return &Engine{
		cfg:      cfg,
		store:    st,
		analyzer: analyzer,
		notifier: notifier,
	}
}

func (e *Engine) SetRunHook(hook func(*store.CheckRun)) {
	e.runHook = hook
}

// RunDue evaluates every check against its schedule and runs the due ones
// sequentially. The returned slice holds the completed runs.
func (e *Engine) RunDue(ctx context.Context, allChecks []checks.Check, opts RunOptions) []store.CheckRun {
	var batch []checks.Check
	if opts.Force {
		for _, check := range allChecks {
			if check.Enabled {
				batch = append(batch, check)
			}
		}
	} else {
		eligible, lastRuns := e.lastRunTimes(ctx, allChecks)
		batch = scheduler.DueChecks(eligible, lastRuns, time.Now())
	}

	var runs []store.CheckRun
	for i := range batch {
		check := &batch[i]

		if opts.DryRun {
			logrus.WithField("check", check.Name).Info("Would run (dry run)")
			continue
		}

		run, err := e.RunCheck(ctx, check, opts)
		if err != nil {
			logrus.WithField("check", check.Name).WithError(err).Error("Check run failed")
			continue
		}
		runs = append(runs, *run)
	}

	return runs
}

// lastRunTimes loads per-check state for due-evaluation. Checks whose state
// cannot be read are dropped from the batch.
func (e *Engine) lastRunTimes(ctx context.Context, allChecks []checks.Check) ([]checks.Check, map[string]*time.Time) {
	eligible := make([]checks.Check, 0, len(allChecks))
	lastRuns := make(map[string]*time.Time, len(allChecks))

	for _, check := range allChecks {
		state, err := e.store.GetState(ctx, check.Name)
		if err != nil {
			logrus.WithField("check", check.Name).WithError(err).Error("Failed to load check state")
			continue
		}
		eligible = append(eligible, check)
		if state != nil {
			t := state.LastRunAt
			lastRuns[check.Name] = &t
		}
	}
	return eligible, lastRuns
}

// RunCheck executes one check through the full pipeline. The run record is
// always persisted, whatever happened along the way; the returned error
// covers persistence failures only.
func (e *Engine) RunCheck(ctx context.Context, check *checks.Check, opts RunOptions) (*store.CheckRun, error) {
	logrus.WithField("check", check.Name).Info("Running check")

	run := &store.CheckRun{
		CheckName: check.Name,
		RunAt:     time.Now().UTC(),
	}

	result, err := runner.Execute(ctx, check.Command, check.CommandTimeout(), check.Sudo)
	if err != nil {
		// The command never launched. There is nothing for the LLM to look
		// at, so classify directly.
		run.CommandOutput = err.Error()
		run.CommandExitCode = -1
		run.Status = store.StatusError
		run.AlertMessage = "Check execution failed: " + err.Error()
	} else {
		run.CommandOutput = runner.Truncate(result.Output, runner.MaxOutputChars)
		run.CommandExitCode = result.ExitCode
		run.CommandDurationMS = result.DurationMS

		e.warnIfSlow(check.Name, "command", result.DurationMS, e.cfg.Performance.CheckSlowThreshold)

		history := e.loadHistory(ctx, check)

		if result.ExitCode == 0 {
			e.analyzer.ClassifySuccess(ctx, check, run, history)
		} else if e.cfg.Defaults.AnalyzeErrorsEnabled() {
			e.analyzer.ClassifyFailure(ctx, check, run, history)
		} else {
			run.Status = store.StatusError
			run.AlertMessage = fmt.Sprintf("Command failed with exit code %d", result.ExitCode)
		}

		e.warnIfSlow(check.Name, "llm", run.LLMDurationMS, e.cfg.Performance.LLMSlowThreshold)
	}

	if !opts.NoNotify && e.shouldNotify(run) {
		sent := notify.SendAlert(ctx, e.notifier, run, check.Notify.Tags, check.Notify.Priority)
		run.AlertSent = sent
		metrics.RecordNotification(sent)
	}

	metrics.RecordCheckRun(check.Name, string(run.Status), time.Duration(run.CommandDurationMS)*time.Millisecond)

	if err := e.persist(ctx, check, run); err != nil {
		return run, err
	}

	if e.runHook != nil {
		e.runHook(run)
	}

	logrus.WithFields(logrus.Fields{
		"check":  check.Name,
		"status": run.Status,
		"exit":   run.CommandExitCode,
	}).Info("Check completed")

	return run, nil
}

func (e *Engine) loadHistory(ctx context.Context, check *checks.Check) []store.CheckRun {
	count := check.HistoryContext(e.cfg.Defaults.DefaultHistoryContext)
	if count <= 0 {
		return nil
	}

	history, err := e.store.GetRuns(ctx, store.RunFilters{
		CheckName: check.Name,
		Limit:     count,
	})
	if err != nil {
		// History is context, not a prerequisite.
		logrus.WithField("check", check.Name).WithError(err).Warn("Failed to load run history")
		return nil
	}
	return history
}

func (e *Engine) shouldNotify(run *store.CheckRun) bool {
	switch run.Status {
	case store.StatusAlert:
		return true
	case store.StatusError:
		return e.cfg.Defaults.AlertOnCheckErrorEnabled()
	}
	return false
}

// persist writes the run record first, then the per-check state. A crash
// between the two leaves a run without updated state, which only makes the
// check due again sooner.
func (e *Engine) persist(ctx context.Context, check *checks.Check, run *store.CheckRun) error {
	id, err := e.store.SaveRun(ctx, run)
	metrics.RecordStoreOperation("save_run", err)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	run.ID = id

	err = e.store.UpdateState(ctx, &store.CheckState{
		CheckName:  check.Name,
		LastRunAt:  run.RunAt,
		LastStatus: run.Status,
		ConfigHash: ConfigHash(check),
	})
	metrics.RecordStoreOperation("update_state", err)
	if err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}

	return nil
}

func (e *Engine) warnIfSlow(check, phase string, durationMS int64, thresholdSeconds int) {
	if thresholdSeconds <= 0 || durationMS < int64(thresholdSeconds)*1000 {
		return
	}
	logrus.WithFields(logrus.Fields{
		"check":    check,
		"phase":    phase,
		"duration": time.Duration(durationMS) * time.Millisecond,
	}).Warn("Slow check")
}

// ConfigHash fingerprints the fields whose change invalidates accumulated
// history context.
func ConfigHash(check *checks.Check) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s", check.Name, check.Command, check.Schedule, check.LLM.Prompt)
	return hex.EncodeToString(h.Sum(nil))[:16]
}
