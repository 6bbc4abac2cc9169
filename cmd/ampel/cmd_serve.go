// cmd/ampel/cmd_serve.go - daemon and dashboard commands
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ampel/internal/dashboard"
	"ampel/internal/monitoring"
	"ampel/internal/web"
)

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the check scheduler and web server",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}

	dashboardCmd = &cobra.Command{
		Use:   "dashboard",
		Short: "Regenerate the static dashboard files",
		Args:  cobra.NoArgs,
		RunE:  writeDashboard,
	}
)

func init() {
	rootCmd.AddCommand(serveCmd, dashboardCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	engine := buildEngine(st)

	service := monitoring.NewService(cfg, engine)
	service.SetDashboard(dashboard.NewWriter(cfg, st))

	server := web.NewServer(cfg, st, engine)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		return err
	}

	if err := service.Start(ctx); err != nil && err != context.Canceled {
		return err
	}

	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}

func writeDashboard(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	writer := dashboard.NewWriter(cfg, st)
	if err := writer.WriteAll(cmd.Context()); err != nil {
		return err
	}

	fmt.Printf("Dashboard written to %s\n", cfg.Dashboard.OutputDir)
	return nil
}
