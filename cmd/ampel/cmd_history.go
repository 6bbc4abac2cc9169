// cmd/ampel/cmd_history.go - status, history and maintenance commands
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ampel/internal/checks"
	"ampel/internal/scheduler"
	"ampel/internal/store"
)

var (
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the latest result per check",
		Args:  cobra.NoArgs,
		RunE:  showStatus,
	}

	historyStatus string
	historyLimit  int

	historyCmd = &cobra.Command{
		Use:   "history [check]",
		Short: "Show recent run history",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showHistory,
	}

	cleanupDays int

	cleanupCmd = &cobra.Command{
		Use:   "cleanup",
		Short: "Delete run history older than the retention window",
		Args:  cobra.NoArgs,
		RunE:  runCleanup,
	}
)

func init() {
	rootCmd.AddCommand(statusCmd)

	historyCmd.Flags().StringVar(&historyStatus, "status", "", "filter by status (ok, alert, error)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to show")
	rootCmd.AddCommand(historyCmd)

	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "override the configured retention in days")
	rootCmd.AddCommand(cleanupCmd)
}

func showStatus(cmd *cobra.Command, args []string) error {
	allChecks, err := checks.LoadDir(cfg.ChecksDir)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Printf("%-30s %-8s %-20s %-20s %s\n", "NAME", "STATUS", "LAST RUN", "NEXT RUN", "MESSAGE")
	for i := range allChecks {
		check := &allChecks[i]

		latest, err := st.GetLatestRun(cmd.Context(), check.Name)
		if err != nil {
			return err
		}

		status, lastRun, nextRun, message := "-", "never", "-", ""
		if latest != nil {
			status = string(latest.Status)
			lastRun = latest.RunAt.Local().Format("2006-01-02 15:04:05")
			message = firstLine(latest.AlertMessage)
			if next, err := scheduler.NextRun(check.Schedule, latest.RunAt); err == nil {
				nextRun = next.Local().Format("2006-01-02 15:04:05")
			}
		} else if check.Enabled {
			nextRun = "now"
		}
		if !check.Enabled {
			nextRun = "disabled"
		}

		fmt.Printf("%-30s %-8s %-20s %-20s %s\n", check.Name, status, lastRun, nextRun, message)
	}
	return nil
}

func showHistory(cmd *cobra.Command, args []string) error {
	filters := store.RunFilters{Limit: historyLimit}
	if len(args) == 1 {
		filters.CheckName = args[0]
	}
	if historyStatus != "" {
		status, err := store.ParseStatus(historyStatus)
		if err != nil {
			return err
		}
		filters.Status = status
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.GetRuns(cmd.Context(), filters)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-20s %-30s %-8s %-6s %-8s %s\n", "RUN AT", "NAME", "STATUS", "EXIT", "LLM MS", "MESSAGE")
	for i := range runs {
		run := &runs[i]
		fmt.Printf("%-20s %-30s %-8s %-6d %-8d %s\n",
			run.RunAt.Local().Format("2006-01-02 15:04:05"),
			run.CheckName,
			run.Status,
			run.CommandExitCode,
			run.LLMDurationMS,
			firstLine(run.AlertMessage),
		)
	}
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	days := cfg.Defaults.RetainDays
	if cleanupDays > 0 {
		days = cleanupDays
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	deleted, err := st.CleanupOlderThan(cmd.Context(), days)
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %d run(s) older than %s\n", deleted, time.Now().AddDate(0, 0, -days).Format("2006-01-02"))
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
