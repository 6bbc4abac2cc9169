// internal/checks/checks.go - check definition model
package checks

import (
	"fmt"
	"time"
)

// Priority is an ntfy notification priority level.
type Priority string

const (
	PriorityMin     Priority = "min"
	PriorityLow     Priority = "low"
	PriorityDefault Priority = "default"
	PriorityHigh    Priority = "high"
	PriorityUrgent  Priority = "urgent"
)

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityMin, PriorityLow, PriorityDefault, PriorityHigh, PriorityUrgent:
		return Priority(s), nil
	case "":
		return PriorityDefault, nil
	}
	return "", fmt.Errorf("invalid priority: %q", s)
}

// LLMConfig is the per-check classification configuration.
type LLMConfig struct {
	Prompt         string `yaml:"prompt"`
	Model          string `yaml:"model"`
	TriageModel    string `yaml:"triage_model"`
	AnalysisModel  string `yaml:"analysis_model"`
	SkipAnalysis   bool   `yaml:"skip_analysis"`
	Timeout        int    `yaml:"timeout"`
	HistoryContext *int   `yaml:"history_context"`
}

// NotifyConfig is the per-check notification configuration.
type NotifyConfig struct {
	Priority Priority `yaml:"priority"`
	Tags     []string `yaml:"tags"`
}

// Check is one operator-defined health check, loaded from a YAML definition
// file (possibly matrix-expanded). The pipeline treats it as read-only input.
type Check struct {
	Name        string       `yaml:"name"`
	Command     string       `yaml:"command"`
	Schedule    string       `yaml:"schedule"`
	Description string       `yaml:"description"`
	Enabled     bool         `yaml:"enabled"`
	Timeout     int          `yaml:"timeout"`
	Sudo        bool         `yaml:"sudo"`
	LLM         LLMConfig    `yaml:"llm"`
	Notify      NotifyConfig `yaml:"notify"`

	// SourcePath is the definition file this check came from.
	SourcePath string `yaml:"-"`
}

// CommandTimeout returns the execution timeout as a duration.
func (c *Check) CommandTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// HistoryContext returns the configured history count, or fallback when the
// check does not override it.
func (c *Check) HistoryContext(fallback int) int {
	if c.LLM.HistoryContext != nil {
		return *c.LLM.HistoryContext
	}
	return fallback
}
