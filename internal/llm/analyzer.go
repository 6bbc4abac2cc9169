// internal/llm/analyzer.go - single- and two-stage run classification
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ampel/internal/checks"
	"ampel/internal/config"
	"ampel/internal/metrics"
	"ampel/internal/store"
)

// skippedAnalysisMessage is the fixed alert text when triage flags an issue
// and detailed analysis is configured off.
const skippedAnalysisMessage = "Issue detected (detailed analysis skipped)"

// Analyzer classifies check runs. Classify methods are total: they always
// return the run with status and message populated and never propagate
// remote errors to the caller.
type Analyzer struct {
	client Generator
	cfg    *config.Config
}

func NewAnalyzer(client Generator, cfg *config.Config) *Analyzer {
	return &Analyzer{client: client, cfg: cfg}
}

// strategy is the per-check analysis mode, selected once from configuration
// rather than re-derived at each call site.
type strategy interface {
	classify(a *Analyzer, ctx context.Context, check *checks.Check, run *store.CheckRun, history []store.CheckRun, timeout time.Duration)
}

type singleStage struct {
	model string
}

type triageThenAnalysis struct {
	triageModel   string
	analysisModel string
	skipAnalysis  bool
}

func (a *Analyzer) strategyFor(check *checks.Check) strategy {
	if check.LLM.TriageModel != "" {
		analysisModel := check.LLM.AnalysisModel
		if analysisModel == "" {
			analysisModel = check.LLM.Model
		}
		if analysisModel == "" {
			analysisModel = a.cfg.Ollama.Model
		}
		return &triageThenAnalysis{
			triageModel:   check.LLM.TriageModel,
			analysisModel: analysisModel,
			skipAnalysis:  check.LLM.SkipAnalysis,
		}
	}

	model := check.LLM.Model
	if model == "" {
		model = a.cfg.Ollama.Model
	}
	return &singleStage{model: model}
}

func (a *Analyzer) timeoutFor(check *checks.Check) time.Duration {
	if check.LLM.Timeout > 0 {
		return time.Duration(check.LLM.Timeout) * time.Second
	}
	return a.cfg.Ollama.TimeoutDuration()
}

// ClassifySuccess analyzes the output of a command that exited zero and
// fills in the run's status, message and model bookkeeping.
func (a *Analyzer) ClassifySuccess(ctx context.Context, check *checks.Check, run *store.CheckRun, history []store.CheckRun) *store.CheckRun {
	// Exit-code-derived baseline; survives an LLM failure when the
	// escalation policy is off.
	run.Status = store.StatusOK
	a.strategyFor(check).classify(a, ctx, check, run, history, a.timeoutFor(check))
	return run
}

// generate is the instrumented path to the client, one call per stage.
func (a *Analyzer) generate(ctx context.Context, model, stage, prompt string, timeout time.Duration) (string, int64, error) {
	start := time.Now()
	response, err := a.client.Generate(ctx, model, prompt, timeout)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordLLMRequest(model, stage, outcome, elapsed)

	return response, elapsed.Milliseconds(), err
}

func (s *singleStage) classify(a *Analyzer, ctx context.Context, check *checks.Check, run *store.CheckRun, history []store.CheckRun, timeout time.Duration) {
	prompt := BuildPrompt(check, run.CommandOutput, history)

	response, durationMS, err := a.generate(ctx, s.model, "analysis", prompt, timeout)
	if err != nil {
		a.recordLLMError(run, s.model, durationMS, err)
		return
	}

	run.LLMModel = s.model
	run.LLMResponse = response
	run.LLMDurationMS = durationMS

	verdict := ParseStatus(response)
	run.Status = verdict.Status
	if verdict.Status == store.StatusAlert {
		run.AlertMessage = verdict.Message
	}
}

func (s *triageThenAnalysis) classify(a *Analyzer, ctx context.Context, check *checks.Check, run *store.CheckRun, history []store.CheckRun, timeout time.Duration) {
	triagePrompt := BuildTriagePrompt(check, run.CommandOutput, history)

	triageResponse, triageMS, err := a.generate(ctx, s.triageModel, "triage", triagePrompt, timeout)
	if err != nil {
		a.recordLLMError(run, s.triageModel, triageMS, err)
		return
	}

	if ParseStatus(triageResponse).Status == store.StatusOK {
		// All clear on the cheap model; the analysis model never runs.
		run.LLMModel = s.triageModel
		run.LLMResponse = triageResponse
		run.LLMDurationMS = triageMS
		run.Status = store.StatusOK
		return
	}

	if s.skipAnalysis {
		run.LLMModel = s.triageModel
		run.LLMResponse = triageResponse
		run.LLMDurationMS = triageMS
		run.Status = store.StatusAlert
		run.AlertMessage = skippedAnalysisMessage
		return
	}

	analysisPrompt := BuildPrompt(check, run.CommandOutput, history)
	analysisResponse, analysisMS, err := a.generate(ctx, s.analysisModel, "analysis", analysisPrompt, timeout)
	if err != nil {
		a.recordLLMError(run, s.triageModel, triageMS+analysisMS, err)
		return
	}

	// Both model identifiers and the summed duration make the two-call cost
	// auditable from the run record alone.
	run.LLMModel = s.triageModel + "+" + s.analysisModel
	run.LLMResponse = analysisResponse
	run.LLMDurationMS = triageMS + analysisMS
	run.Status = store.StatusAlert
	run.AlertMessage = analysisResponse
}

// ClassifyFailure explains a non-zero exit with a (possibly different)
// model. The status is ERROR regardless of what the model says.
func (a *Analyzer) ClassifyFailure(ctx context.Context, check *checks.Check, run *store.CheckRun, history []store.CheckRun) *store.CheckRun {
	model := a.cfg.Defaults.ErrorModel
	if model == "" {
		model = check.LLM.Model
	}
	if model == "" {
		model = a.cfg.Ollama.Model
	}

	prompt := BuildErrorPrompt(check, run.CommandExitCode, run.CommandOutput, history)

	response, durationMS, err := a.generate(ctx, model, "error", prompt, a.timeoutFor(check))

	run.LLMModel = model
	run.LLMDurationMS = durationMS
	run.Status = store.StatusError

	if err != nil {
		run.LLMResponse = "LLM Error: " + err.Error()
		run.AlertMessage = fmt.Sprintf("Command failed (exit %d)", run.CommandExitCode)
		return run
	}

	run.LLMResponse = response
	run.AlertMessage = response
	return run
}

// recordLLMError captures an exhausted-retries failure on the run. Whether
// it escalates the run to ERROR is policy-gated; when the policy is off the
// run keeps its exit-code-derived status.
func (a *Analyzer) recordLLMError(run *store.CheckRun, model string, durationMS int64, err error) {
	logrus.WithFields(logrus.Fields{
		"check": run.CheckName,
		"model": model,
	}).WithError(err).Warn("LLM classification failed")

	run.LLMModel = model
	run.LLMResponse = "LLM Error: " + err.Error()
	run.LLMDurationMS = durationMS

	if a.cfg.Defaults.AlertOnLLMErrorEnabled() {
		run.Status = store.StatusError
		run.AlertMessage = "LLM analysis failed: " + err.Error()
	}
}
