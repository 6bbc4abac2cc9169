// cmd/ampel/main.go
package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ampel/internal/config"
	"ampel/internal/llm"
	"ampel/internal/monitoring"
	"ampel/internal/notify"
	"ampel/internal/store"
)

var (
	cfgFile string
	cfg     *config.Config

	rootCmd = &cobra.Command{
		Use:           "ampel",
		Short:         "LLM-assisted host check monitor",
		Long:          "Ampel runs scheduled shell checks and lets a local LLM decide whether the output warrants an alert.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfgFile != "" {
				cfg, err = config.Load(cfgFile)
			} else {
				cfg, err = config.LoadDefault()
			}
			if err != nil {
				return err
			}
			setupLogging(cfg.Logging)
			return nil
		},
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "configuration file path")
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

func openStore() (store.Store, error) {
	return store.NewBoltStore(cfg.Database.Path)
}

func buildEngine(st store.Store) *monitoring.Engine {
	client := llm.NewClient(cfg.Ollama.Host, cfg.Ollama.TimeoutDuration())
	analyzer := llm.NewAnalyzer(client, cfg)
	notifier := notify.NewClient(cfg.Ntfy.URL, cfg.Ntfy.Topic, cfg.Ntfy.Token)
	return monitoring.NewEngine(cfg, st, analyzer, notifier)
}
