// internal/config/config.go - application configuration
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Ollama      OllamaConfig      `yaml:"ollama"`
	Ntfy        NtfyConfig        `yaml:"ntfy"`
	Database    DatabaseConfig    `yaml:"database"`
	Logging     LoggingConfig     `yaml:"logging"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
	Defaults    DefaultsConfig    `yaml:"defaults"`
	Performance PerformanceConfig `yaml:"performance"`
	Web         WebConfig         `yaml:"web"`
	ChecksDir   string            `yaml:"checks_dir"`
}

type OllamaConfig struct {
	Host    string `yaml:"host"`
	Model   string `yaml:"model"`
	Timeout int    `yaml:"timeout"`
}

func (c *OllamaConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

type NtfyConfig struct {
	URL   string `yaml:"url"`
	Topic string `yaml:"topic"`
	Token string `yaml:"token"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DashboardConfig struct {
	OutputDir         string `yaml:"output_dir"`
	HistoryHours      int    `yaml:"history_hours"`
	StatsDays         int    `yaml:"stats_days"`
	CheckHistoryCount int    `yaml:"check_history_count"`
	AutoUpdate        bool   `yaml:"auto_update"`
}

// DefaultsConfig controls pipeline policy. The boolean knobs default to true,
// so they are pointers to tell "absent" apart from an explicit false.
type DefaultsConfig struct {
	AlertOnCheckError     *bool  `yaml:"alert_on_check_error"`
	AlertOnLLMError       *bool  `yaml:"alert_on_llm_error"`
	RetainDays            int    `yaml:"retain_days"`
	AnalyzeErrors         *bool  `yaml:"analyze_errors"`
	ErrorModel            string `yaml:"error_model"`
	DefaultHistoryContext int    `yaml:"default_history_context"`
}

func enabled(flag *bool) bool {
	return flag == nil || *flag
}

func (d *DefaultsConfig) AlertOnCheckErrorEnabled() bool { return enabled(d.AlertOnCheckError) }
func (d *DefaultsConfig) AlertOnLLMErrorEnabled() bool   { return enabled(d.AlertOnLLMError) }
func (d *DefaultsConfig) AnalyzeErrorsEnabled() bool     { return enabled(d.AnalyzeErrors) }

type PerformanceConfig struct {
	LLMSlowThreshold   int `yaml:"llm_slow_threshold"`
	CheckSlowThreshold int `yaml:"check_slow_threshold"`
}

type WebConfig struct {
	Listen      string        `yaml:"listen"`
	RunInterval time.Duration `yaml:"run_interval"`
	Metrics     bool          `yaml:"metrics"`
	MetricsPath string        `yaml:"metrics_path"`
}

// Load reads the config file, applies defaults and validates. A missing file
// yields the built-in defaults so the tool works without any configuration.
func Load(filename string) (*Config, error) {
	config := &Config{}

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	setDefaults(config)

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadDefault searches the conventional locations and falls back to built-in
// defaults when none exists.
func LoadDefault() (*Config, error) {
	home, _ := os.UserHomeDir()
	candidates := []string{
		"/etc/ampel/config.yaml",
		home + "/.config/ampel/config.yaml",
		"config.yaml",
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		}
	}
	return Load("")
}

func setDefaults(cfg *Config) {
	if cfg.Ollama.Host == "" {
		cfg.Ollama.Host = "http://localhost:11434"
	}
	cfg.Ollama.Host = strings.TrimRight(cfg.Ollama.Host, "/")
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = "qwen2.5:7b"
	}
	if cfg.Ollama.Timeout == 0 {
		cfg.Ollama.Timeout = 120
	}

	if cfg.Ntfy.URL == "" {
		cfg.Ntfy.URL = "https://ntfy.sh"
	}
	cfg.Ntfy.URL = strings.TrimRight(cfg.Ntfy.URL, "/")
	if cfg.Ntfy.Topic == "" {
		cfg.Ntfy.Topic = "ampel"
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/ampel/ampel.db"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Dashboard.OutputDir == "" {
		cfg.Dashboard.OutputDir = "/srv/site/ampel/www"
	}
	if cfg.Dashboard.HistoryHours == 0 {
		cfg.Dashboard.HistoryHours = 48
	}
	if cfg.Dashboard.StatsDays == 0 {
		cfg.Dashboard.StatsDays = 7
	}
	if cfg.Dashboard.CheckHistoryCount == 0 {
		cfg.Dashboard.CheckHistoryCount = 50
	}

	if cfg.Defaults.RetainDays == 0 {
		cfg.Defaults.RetainDays = 90
	}
	if cfg.Defaults.DefaultHistoryContext == 0 {
		cfg.Defaults.DefaultHistoryContext = 3
	}

	if cfg.Performance.LLMSlowThreshold == 0 {
		cfg.Performance.LLMSlowThreshold = 60
	}
	if cfg.Performance.CheckSlowThreshold == 0 {
		cfg.Performance.CheckSlowThreshold = 30
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}
	if cfg.Web.RunInterval == 0 {
		cfg.Web.RunInterval = time.Minute
	}
	if cfg.Web.MetricsPath == "" {
		cfg.Web.MetricsPath = "/metrics"
	}

	if cfg.ChecksDir == "" {
		cfg.ChecksDir = "/etc/ampel/checks.d"
	}
}

func validate(cfg *Config) error {
	if !strings.HasPrefix(cfg.Ollama.Host, "http://") && !strings.HasPrefix(cfg.Ollama.Host, "https://") {
		return fmt.Errorf("ollama.host must be an http(s) URL")
	}
	if !strings.HasPrefix(cfg.Ntfy.URL, "http://") && !strings.HasPrefix(cfg.Ntfy.URL, "https://") {
		return fmt.Errorf("ntfy.url must be an http(s) URL")
	}
	if cfg.Ntfy.Topic == "" {
		return fmt.Errorf("ntfy.topic cannot be empty")
	}
	if cfg.Ollama.Timeout < 1 {
		return fmt.Errorf("ollama.timeout must be positive")
	}
	if cfg.Defaults.RetainDays < 1 {
		return fmt.Errorf("defaults.retain_days must be positive")
	}
	if cfg.Defaults.DefaultHistoryContext < 0 {
		return fmt.Errorf("defaults.default_history_context cannot be negative")
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}

	return nil
}
