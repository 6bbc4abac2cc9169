// internal/llm/parse.go - status parsing over free-form model output
package llm

import (
	"strings"

	"ampel/internal/store"
)

// Verdict is the structured reading of a model response.
type Verdict struct {
	Status  store.Status
	Message string
}

var alertMarkers = []string{"warning", "alert", "critical", "error"}

var allClearPhrases = []string{
	"no issues",
	"no problems",
	"all good",
	"all systems normal",
	"everything is fine",
}

// statusRules is the canonical, ordered, first-match-wins rule list for
// turning a model response into a status. Explicit markers outrank the
// single-word contract, which outranks the clear-phrase heuristic; anything
// unmatched is an alert carrying the full response.
var statusRules = []struct {
	name  string
	apply func(raw, lower string) (Verdict, bool)
}{
	{"status-marker", matchStatusMarker},
	{"ok-token", matchOKToken},
	{"all-clear-phrase", matchAllClearPhrase},
	{"default-alert", matchDefaultAlert},
}

// ParseStatus reads a free-form model response into an OK/ALERT verdict.
// Total: every input produces a verdict.
func ParseStatus(response string) Verdict {
	raw := strings.TrimSpace(response)
	lower := strings.ToLower(raw)

	for _, rule := range statusRules {
		if verdict, ok := rule.apply(raw, lower); ok {
			return verdict
		}
	}
	// Unreachable: default-alert always matches.
	return Verdict{Status: store.StatusAlert, Message: raw}
}

// matchStatusMarker scans line by line for an explicit "status:" marker.
func matchStatusMarker(raw, lower string) (Verdict, bool) {
	for _, line := range strings.Split(lower, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "status:") {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, "status:"))

		if strings.HasPrefix(value, "ok") {
			return Verdict{Status: store.StatusOK}, true
		}
		for _, marker := range alertMarkers {
			if strings.HasPrefix(value, marker) {
				return Verdict{Status: store.StatusAlert, Message: raw}, true
			}
		}
	}
	return Verdict{}, false
}

// matchOKToken accepts a response whose first token is exactly "ok".
func matchOKToken(raw, lower string) (Verdict, bool) {
	if lower == "ok" || strings.HasPrefix(lower, "ok.") || strings.HasPrefix(lower, "ok\n") {
		return Verdict{Status: store.StatusOK}, true
	}
	return Verdict{}, false
}

// matchAllClearPhrase accepts responses that state the all-clear in prose,
// unless the response opens with the word "alert" itself. Longer first words
// like "alerting" do not block the phrase match.
func matchAllClearPhrase(raw, lower string) (Verdict, bool) {
	fields := strings.Fields(lower)
	if len(fields) > 0 && strings.TrimRight(fields[0], ".,:;!") == "alert" {
		return Verdict{}, false
	}

	for _, phrase := range allClearPhrases {
		if strings.Contains(lower, phrase) {
			return Verdict{Status: store.StatusOK}, true
		}
	}
	return Verdict{}, false
}

func matchDefaultAlert(raw, lower string) (Verdict, bool) {
	return Verdict{Status: store.StatusAlert, Message: raw}, true
}
