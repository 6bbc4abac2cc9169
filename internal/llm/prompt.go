// internal/llm/prompt.go - prompt construction
package llm

import (
	"fmt"
	"strings"

	"ampel/internal/checks"
	"ampel/internal/store"
)

// historyEntryMaxChars bounds each prior run's output inside the history
// block.
const historyEntryMaxChars = 500

// FormatHistory renders previous runs (newest first) for model context. Only
// raw command output and alert messages are included, never prior model
// responses, so the model cannot reinforce its own earlier hallucinations.
func FormatHistory(history []store.CheckRun) string {
	if len(history) == 0 {
		return ""
	}

	lines := []string{"--- Previous Runs (newest first) ---"}
	for _, run := range history {
		lines = append(lines, fmt.Sprintf("\n[%s] Status: %s",
			run.RunAt.Format("2006-01-02 15:04"),
			strings.ToUpper(string(run.Status))))

		if run.CommandOutput != "" {
			output := run.CommandOutput
			if len(output) > historyEntryMaxChars {
				output = output[:historyEntryMaxChars] + "\n... (truncated)"
			}
			lines = append(lines, output)
		}
		if run.AlertMessage != "" {
			lines = append(lines, "Alert: "+run.AlertMessage)
		}
	}
	lines = append(lines, "--- End Previous Runs ---\n")
	return strings.Join(lines, "\n")
}

// BuildPrompt assembles the full analysis prompt: instruction text, optional
// history block and the current (already truncated) output, with explicit
// section markers.
func BuildPrompt(check *checks.Check, commandOutput string, history []store.CheckRun) string {
	return fmt.Sprintf("%s\n%s\n--- Current Output ---\n%s\n--- End Output ---",
		check.LLM.Prompt, FormatHistory(history), commandOutput)
}

const triageTemplate = `Quickly assess this system check output. Respond with ONLY one word:
- "OK" if everything looks normal
- "ALERT" if there's any issue that needs attention

%s
%s
--- Output ---
%s
--- End Output ---`

// BuildTriagePrompt asks for the one-word OK/ALERT contract.
func BuildTriagePrompt(check *checks.Check, commandOutput string, history []store.CheckRun) string {
	return fmt.Sprintf(triageTemplate, check.LLM.Prompt, FormatHistory(history), commandOutput)
}

const errorTemplate = `A system monitoring command failed. Analyze the error and explain briefly what went wrong and how to fix it.

Command: %s
Exit code: %d
%s
--- Error Output ---
%s
--- End Output ---

Respond with a brief (1-2 sentence) explanation of the error and suggested fix.`

// BuildErrorPrompt assembles the error-explanation prompt for a failed
// command.
func BuildErrorPrompt(check *checks.Check, exitCode int, output string, history []store.CheckRun) string {
	if output == "" {
		output = "(no output)"
	}
	return fmt.Sprintf(errorTemplate, check.Command, exitCode, FormatHistory(history), output)
}
