// internal/checks/validate.go
package checks

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Validate returns every defect in a definition, empty when valid.
func Validate(check *Check) []string {
	var errs []string

	if check.Name == "" {
		errs = append(errs, "name is required")
	}
	if check.Command == "" {
		errs = append(errs, "command is required")
	}
	if check.Schedule == "" {
		errs = append(errs, "schedule is required")
	}
	if check.Timeout < 1 {
		errs = append(errs, "timeout must be positive")
	}
	if check.LLM.Prompt == "" {
		errs = append(errs, "llm.prompt is required")
	}

	if check.Schedule != "" {
		if _, err := cronParser.Parse(check.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("invalid schedule %q: %v", check.Schedule, err))
		}
	}

	if _, err := ParsePriority(string(check.Notify.Priority)); err != nil {
		errs = append(errs, err.Error())
	}

	return errs
}
