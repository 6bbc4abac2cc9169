// internal/store/models.go
package store

import (
	"fmt"
	"time"
)

// Status is the terminal classification of a check run.
type Status string

const (
	StatusOK    Status = "ok"
	StatusAlert Status = "alert"
	StatusError Status = "error"
)

// ParseStatus validates a status string from external input.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOK, StatusAlert, StatusError:
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid status: %q", s)
}

// CheckRun is one execution record of a check. Append-only: never mutated
// after it has been saved.
type CheckRun struct {
	ID                string    `json:"id"`
	CheckName         string    `json:"check_name"`
	RunAt             time.Time `json:"run_at"`
	CommandOutput     string    `json:"command_output"`
	CommandExitCode   int       `json:"command_exit_code"`
	CommandDurationMS int64     `json:"command_duration_ms"`
	Status            Status    `json:"status"`
	LLMModel          string    `json:"llm_model,omitempty"`
	LLMResponse       string    `json:"llm_response,omitempty"`
	LLMDurationMS     int64     `json:"llm_duration_ms,omitempty"`
	AlertSent         bool      `json:"alert_sent"`
	AlertMessage      string    `json:"alert_message,omitempty"`
}

// CheckState is the current-state pointer for a check, one row per name.
// Each run replaces it wholesale.
type CheckState struct {
	CheckName  string    `json:"check_name"`
	LastRunAt  time.Time `json:"last_run_at"`
	LastStatus Status    `json:"last_status,omitempty"`
	ConfigHash string    `json:"config_hash,omitempty"`
}

// RunFilters narrows GetRuns results. Zero values mean "no filter".
type RunFilters struct {
	CheckName string
	Status    Status
	Since     time.Time
	Limit     int
}
