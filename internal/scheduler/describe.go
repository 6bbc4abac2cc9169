// internal/scheduler/describe.go
package scheduler

import (
	"fmt"
	"strings"
)

var weekdayNames = map[string]string{
	"0": "Sunday", "1": "Monday", "2": "Tuesday", "3": "Wednesday",
	"4": "Thursday", "5": "Friday", "6": "Saturday", "7": "Sunday",
}

// Describe maps common cron patterns to a fixed human-readable form, falling
// back to the raw expression. Presentation only; never part of the due
// decision.
func Describe(schedule string) string {
	parts := strings.Fields(schedule)
	if len(parts) != 5 {
		return schedule
	}

	minute, hour, day, month, weekday := parts[0], parts[1], parts[2], parts[3], parts[4]

	if schedule == "* * * * *" {
		return "every minute"
	}

	if strings.HasPrefix(minute, "*/") && hour == "*" && day == "*" && month == "*" && weekday == "*" {
		return fmt.Sprintf("every %s minutes", minute[2:])
	}

	if !isNumeric(minute) {
		return schedule
	}

	if hour == "*" && day == "*" && month == "*" && weekday == "*" {
		if minute == "0" {
			return "hourly"
		}
		return fmt.Sprintf("hourly at :%s", pad(minute))
	}

	if !isNumeric(hour) {
		return schedule
	}

	if day == "*" && month == "*" && weekday == "*" {
		return fmt.Sprintf("daily at %s:%s", pad(hour), pad(minute))
	}

	if day == "*" && month == "*" && weekday != "*" {
		name, ok := weekdayNames[weekday]
		if !ok {
			name = weekday
		}
		return fmt.Sprintf("weekly on %s at %s:%s", name, pad(hour), pad(minute))
	}

	return schedule
}

func isNumeric(field string) bool {
	if field == "" {
		return false
	}
	for _, r := range field {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pad(field string) string {
	if len(field) == 1 {
		return "0" + field
	}
	return field
}
