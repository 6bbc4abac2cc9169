// cmd/ampel/cmd_alert.go - manual notification delivery
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ampel/internal/checks"
	"ampel/internal/notify"
)

var (
	alertTitle    string
	alertPriority string
	alertTags     []string

	alertCmd = &cobra.Command{
		Use:   "alert <message>",
		Short: "Send a notification through the configured ntfy topic",
		Long:  "Sends an arbitrary message, useful for verifying ntfy credentials and topic routing.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  sendAlert,
	}
)

func init() {
	alertCmd.Flags().StringVar(&alertTitle, "title", "Ampel", "notification title")
	alertCmd.Flags().StringVar(&alertPriority, "priority", "", "ntfy priority (min, low, default, high, urgent)")
	alertCmd.Flags().StringSliceVar(&alertTags, "tags", nil, "ntfy tags")
	rootCmd.AddCommand(alertCmd)
}

func sendAlert(cmd *cobra.Command, args []string) error {
	priority, err := checks.ParsePriority(alertPriority)
	if err != nil {
		return err
	}

	client := notify.NewClient(cfg.Ntfy.URL, cfg.Ntfy.Topic, cfg.Ntfy.Token)
	message := strings.Join(args, " ")

	if err := client.Send(cmd.Context(), message, alertTitle, priority, alertTags); err != nil {
		return err
	}

	fmt.Printf("Sent to %s/%s\n", cfg.Ntfy.URL, cfg.Ntfy.Topic)
	return nil
}
