// cmd/ampel/cmd_run.go - run and test commands
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ampel/internal/checks"
	"ampel/internal/llm"
	"ampel/internal/monitoring"
	"ampel/internal/runner"
	"ampel/internal/store"
)

var (
	runAll      bool
	runForce    bool
	runDryRun   bool
	runNoNotify bool

	runCmd = &cobra.Command{
		Use:   "run [check]",
		Short: "Run due checks, or one check by name",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runChecks,
	}

	testVerbose bool

	testCmd = &cobra.Command{
		Use:   "test <check>",
		Short: "Run one check without persisting or notifying",
		Args:  cobra.ExactArgs(1),
		RunE:  testCheck,
	}
)

func init() {
	runCmd.Flags().BoolVar(&runAll, "all", false, "consider every check, not just the named one")
	runCmd.Flags().BoolVar(&runForce, "force", false, "run regardless of schedule")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "report which checks would run without executing")
	runCmd.Flags().BoolVar(&runNoNotify, "no-notify", false, "suppress notifications")
	rootCmd.AddCommand(runCmd)

	testCmd.Flags().BoolVarP(&testVerbose, "verbose", "v", false, "print command output and the full LLM response")
	rootCmd.AddCommand(testCmd)
}

func runChecks(cmd *cobra.Command, args []string) error {
	allChecks, err := checks.LoadDir(cfg.ChecksDir)
	if err != nil {
		return err
	}

	opts := monitoring.RunOptions{
		Force:    runForce,
		DryRun:   runDryRun,
		NoNotify: runNoNotify,
	}

	if len(args) == 1 {
		check, err := findCheck(allChecks, args[0])
		if err != nil {
			return err
		}
		if !check.Enabled {
			cmd.Printf("Check %q is disabled; enable it with 'ampel enable %s'\n", check.Name, check.Name)
			return nil
		}
		allChecks = []checks.Check{*check}
		// Naming a check implies you want it to run now.
		opts.Force = true
	} else if runAll {
		// Bare "ampel run" is the cron entry point and honors schedules;
		// --all runs every enabled check immediately.
		opts.Force = true
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	engine := buildEngine(st)
	runs := engine.RunDue(cmd.Context(), allChecks, opts)

	if runDryRun {
		return nil
	}

	for i := range runs {
		run := &runs[i]
		fmt.Printf("%-30s %-8s exit=%d %s\n", run.CheckName, run.Status, run.CommandExitCode, run.AlertMessage)
	}
	if len(runs) == 0 {
		fmt.Println("No checks due")
	}
	return nil
}

func testCheck(cmd *cobra.Command, args []string) error {
	allChecks, err := checks.LoadDir(cfg.ChecksDir)
	if err != nil {
		return err
	}
	check, err := findCheck(allChecks, args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	fmt.Printf("Running: %s\n", check.Command)
	result, err := runner.Execute(ctx, check.Command, check.CommandTimeout(), check.Sudo)
	if err != nil {
		return err
	}
	fmt.Printf("Exit code: %d (%dms)\n", result.ExitCode, result.DurationMS)
	if testVerbose {
		fmt.Printf("--- output ---\n%s\n--------------\n", result.Output)
	}

	client := llm.NewClient(cfg.Ollama.Host, cfg.Ollama.TimeoutDuration())
	if !client.IsAvailable(ctx) {
		return fmt.Errorf("ollama is not reachable at %s", cfg.Ollama.Host)
	}

	analyzer := llm.NewAnalyzer(client, cfg)
	run := &store.CheckRun{
		CheckName:         check.Name,
		CommandOutput:     runner.Truncate(result.Output, runner.MaxOutputChars),
		CommandExitCode:   result.ExitCode,
		CommandDurationMS: result.DurationMS,
	}

	if result.ExitCode == 0 {
		analyzer.ClassifySuccess(ctx, check, run, nil)
	} else {
		analyzer.ClassifyFailure(ctx, check, run, nil)
	}

	fmt.Printf("Status: %s (model %s, %dms)\n", run.Status, run.LLMModel, run.LLMDurationMS)
	if run.AlertMessage != "" {
		fmt.Printf("Message: %s\n", run.AlertMessage)
	}
	if testVerbose {
		fmt.Printf("--- llm response ---\n%s\n--------------------\n", run.LLMResponse)
	}
	return nil
}

func findCheck(allChecks []checks.Check, name string) (*checks.Check, error) {
	for i := range allChecks {
		if allChecks[i].Name == name {
			return &allChecks[i], nil
		}
	}
	return nil, fmt.Errorf("unknown check: %s", name)
}
