// Package config loads sitetrack settings from YAML, SITETRACK_* environment
// variables and built-in defaults, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// SITETRACK_SCHEDULER_INTERVAL=30m.
const EnvPrefix = "SITETRACK"

// Config keys
const (
	KeyDBPath = "db.path"

	KeySchedulerInterval   = "scheduler.interval"
	KeySchedulerRunTimeout = "scheduler.run_timeout"
	KeySchedulerRetention  = "scheduler.retention"
	KeySchedulerRunOnStart = "scheduler.run_on_start"

	KeyNATSURL           = "nats.url"
	KeyNATSSubjectPrefix = "nats.subject_prefix"
	KeyNATSClientName    = "nats.client_name"

	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"

	KeyTelemetryEnabled        = "telemetry.enabled"
	KeyTelemetryStdout         = "telemetry.stdout"
	KeyTelemetryExportInterval = "telemetry.export_interval"

	KeyAlertsDefaultDueDays = "alerts.default_due_days"
)

// Config is the full sitetrack configuration.
type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type SchedulerConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	RunTimeout time.Duration `mapstructure:"run_timeout"`
	Retention  time.Duration `mapstructure:"retention"`
	RunOnStart bool          `mapstructure:"run_on_start"`
}

// NATSConfig configures the messaging collaborator. An empty URL disables it.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
	ClientName    string `mapstructure:"client_name"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

type TelemetryConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Stdout         bool          `mapstructure:"stdout"`
	ExportInterval time.Duration `mapstructure:"export_interval"`
}

type AlertsConfig struct {
	DefaultDueDays int `mapstructure:"default_due_days"`
}

// Dir returns ~/.sitetrack.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".sitetrack"), nil
}

// DefaultPath returns ~/.sitetrack/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerDefaults(v)
	return v
}

func registerDefaults(v *viper.Viper) {
	dbPath := "sitetrack.db"
	if dir, err := Dir(); err == nil {
		dbPath = filepath.Join(dir, "sitetrack.db")
	}
	v.SetDefault(KeyDBPath, dbPath)

	v.SetDefault(KeySchedulerInterval, "1h")
	v.SetDefault(KeySchedulerRunTimeout, "5m")
	v.SetDefault(KeySchedulerRetention, "720h")
	v.SetDefault(KeySchedulerRunOnStart, false)

	v.SetDefault(KeyNATSURL, "")
	v.SetDefault(KeyNATSSubjectPrefix, "sitetrack")
	v.SetDefault(KeyNATSClientName, "sitetrack")

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	v.SetDefault(KeyTelemetryEnabled, false)
	v.SetDefault(KeyTelemetryStdout, false)
	v.SetDefault(KeyTelemetryExportInterval, "1m")

	v.SetDefault(KeyAlertsDefaultDueDays, 1)
}

// Load reads configuration. With an empty path the default location is used
// and a missing file is not an error; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := newViper()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.DB.Path) == "" {
		problems = append(problems, KeyDBPath+" is required")
	}
	if c.Scheduler.Interval <= 0 {
		problems = append(problems, KeySchedulerInterval+" must be positive")
	}
	if c.Scheduler.RunTimeout <= 0 {
		problems = append(problems, KeySchedulerRunTimeout+" must be positive")
	}
	if c.Scheduler.Retention < 0 {
		problems = append(problems, KeySchedulerRetention+" must not be negative")
	}
	if c.Alerts.DefaultDueDays < 1 {
		problems = append(problems, KeyAlertsDefaultDueDays+" must be at least 1")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("%s %q is not one of debug, info, warn, error", KeyLogLevel, c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("%s %q is not one of text, json", KeyLogFormat, c.Log.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// WriteDefault writes a config file holding every default. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	v := viper.New()
	v.SetConfigType("yaml")
	registerDefaults(v)
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
