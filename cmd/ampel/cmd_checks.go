// cmd/ampel/cmd_checks.go - check definition management
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ampel/internal/checks"
	"ampel/internal/scheduler"
)

var (
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List configured checks",
		Args:  cobra.NoArgs,
		RunE:  listChecks,
	}

	showCmd = &cobra.Command{
		Use:   "show <check>",
		Short: "Show one check definition",
		Args:  cobra.ExactArgs(1),
		RunE:  showCheck,
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Validate all check definitions",
		Args:  cobra.NoArgs,
		RunE:  validateChecks,
	}

	enableCmd = &cobra.Command{
		Use:   "enable <check>",
		Short: "Enable a check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggleCheck(args[0], true)
		},
	}

	disableCmd = &cobra.Command{
		Use:   "disable <check>",
		Short: "Disable a check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggleCheck(args[0], false)
		},
	}
)

func init() {
	rootCmd.AddCommand(listCmd, showCmd, validateCmd, enableCmd, disableCmd)
}

func listChecks(cmd *cobra.Command, args []string) error {
	allChecks, err := checks.LoadDir(cfg.ChecksDir)
	if err != nil {
		return err
	}

	if len(allChecks) == 0 {
		fmt.Printf("No checks found in %s\n", cfg.ChecksDir)
		return nil
	}

	fmt.Printf("%-30s %-10s %-16s %s\n", "NAME", "ENABLED", "SCHEDULE", "DESCRIPTION")
	for i := range allChecks {
		check := &allChecks[i]
		enabled := "yes"
		if !check.Enabled {
			enabled = "no"
		}
		fmt.Printf("%-30s %-10s %-16s %s\n", check.Name, enabled, check.Schedule, check.Description)
	}
	return nil
}

func showCheck(cmd *cobra.Command, args []string) error {
	allChecks, err := checks.LoadDir(cfg.ChecksDir)
	if err != nil {
		return err
	}
	check, err := findCheck(allChecks, args[0])
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(check)
	if err != nil {
		return err
	}

	fmt.Printf("# %s\n", check.SourcePath)
	fmt.Printf("# schedule: %s\n", scheduler.Describe(check.Schedule))
	fmt.Print(string(data))
	return nil
}

func validateChecks(cmd *cobra.Command, args []string) error {
	allChecks, err := checks.LoadDir(cfg.ChecksDir)
	if err != nil {
		return err
	}

	defects := 0
	for i := range allChecks {
		check := &allChecks[i]
		for _, problem := range checks.Validate(check) {
			fmt.Printf("%s: %s: %s\n", check.SourcePath, check.Name, problem)
			defects++
		}
	}

	if defects > 0 {
		return fmt.Errorf("%d problem(s) in %d check(s)", defects, len(allChecks))
	}
	fmt.Printf("All %d checks valid\n", len(allChecks))
	return nil
}

func toggleCheck(name string, enabled bool) error {
	if err := checks.SetEnabled(cfg.ChecksDir, name, enabled); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("Check %s %s\n", name, state)
	return nil
}
