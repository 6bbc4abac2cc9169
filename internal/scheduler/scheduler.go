// internal/scheduler/scheduler.go - due-check determination
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"ampel/internal/checks"
)

// parser accepts standard 5-field cron expressions
// (minute hour day-of-month month day-of-week).
var parser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// ScheduleError marks an unparseable cron expression. It is fatal to that
// check's due-evaluation only, never to a batch.
type ScheduleError struct {
	Schedule string
	Err      error
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("invalid cron schedule %q: %v", e.Schedule, e.Err)
}

func (e *ScheduleError) Unwrap() error { return e.Err }

// IsDue reports whether a check should run at now. A check that never ran is
// due immediately (its schedule is still validated so malformed expressions
// surface as an error rather than a silent pass). Otherwise the check is due
// once now reaches the first scheduled instant strictly after lastRun.
//
// Recurrence anchors to the actual last execution, not an idealized wall
// clock slot: a late run shifts every subsequent slot forward by the same
// lateness. This avoids catch-up storms at the cost of schedule drift.
func IsDue(check *checks.Check, lastRun *time.Time, now time.Time) (bool, error) {
	if !check.Enabled {
		return false, nil
	}

	schedule, err := parser.Parse(check.Schedule)
	if err != nil {
		return false, &ScheduleError{Schedule: check.Schedule, Err: err}
	}

	if lastRun == nil {
		return true, nil
	}

	return !now.Before(schedule.Next(*lastRun)), nil
}

// NextRun returns the first scheduled instant strictly after the given time.
func NextRun(scheduleExpr string, after time.Time) (time.Time, error) {
	schedule, err := parser.Parse(scheduleExpr)
	if err != nil {
		return time.Time{}, &ScheduleError{Schedule: scheduleExpr, Err: err}
	}
	return schedule.Next(after), nil
}

// DueChecks filters checks to those due at now. Checks with invalid schedules
// are excluded and logged, not batch-fatal.
func DueChecks(allChecks []checks.Check, lastRuns map[string]*time.Time, now time.Time) []checks.Check {
	var due []checks.Check
	for i := range allChecks {
		check := &allChecks[i]

		isDue, err := IsDue(check, lastRuns[check.Name], now)
		if err != nil {
			logrus.WithField("check", check.Name).WithError(err).Warn("Skipping check with invalid schedule")
			continue
		}
		if isDue {
			due = append(due, *check)
		}
	}
	return due
}
