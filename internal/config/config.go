package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the task desk service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	NotificationTTL         time.Duration
	DialogInactivityTimeout time.Duration
	DialogRetention         time.Duration
	DialogJanitorInterval   time.Duration

	LogLevel  string
	LogFormat string

	// ConfigFile is the TOML file the settings were overlaid from, if any.
	ConfigFile string
}

// fileConfig mirrors Config for the optional TOML overlay. Durations are
// strings in time.ParseDuration syntax.
type fileConfig struct {
	BindAddr                string `toml:"bind_addr"`
	ShutdownTimeout         string `toml:"shutdown_timeout"`
	MetricsNamespace        string `toml:"metrics_namespace"`
	AllowAnyOrigin          *bool  `toml:"allow_any_origin"`
	NotificationTTL         string `toml:"notification_ttl"`
	DialogInactivityTimeout string `toml:"dialog_inactivity_timeout"`
	DialogRetention         string `toml:"dialog_retention"`
	LogLevel                string `toml:"log_level"`
	LogFormat               string `toml:"log_format"`
}

// Load reads settings from defaults, an optional TOML file named by
// APP_CONFIG_FILE, then environment variables (a local .env file is loaded
// first when present). Later sources win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BindAddr:                ":8080",
		ShutdownTimeout:         15 * time.Second,
		MetricsNamespace:        "taskdesk",
		AllowAnyOrigin:          false,
		NotificationTTL:         3 * time.Second,
		DialogInactivityTimeout: 30 * time.Minute,
		DialogRetention:         time.Minute,
		DialogJanitorInterval:   5 * time.Second,
		LogLevel:                "info",
		LogFormat:               "text",
	}

	if path := stringsTrimSpace("APP_CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
		cfg.ConfigFile = path
	}

	cfg.BindAddr = envOrDefault("APP_BIND_ADDR", cfg.BindAddr)
	cfg.MetricsNamespace = envOrDefault("APP_METRICS_NAMESPACE", cfg.MetricsNamespace)
	cfg.LogLevel = strings.ToLower(envOrDefault("APP_LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(envOrDefault("APP_LOG_FORMAT", cfg.LogFormat))

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.NotificationTTL, err = durationFromEnv("APP_NOTIFICATION_TTL", cfg.NotificationTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.DialogInactivityTimeout, err = durationFromEnv("APP_DIALOG_INACTIVITY_TIMEOUT", cfg.DialogInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.DialogRetention, err = durationFromEnv("APP_DIALOG_RETENTION", cfg.DialogRetention)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.NotificationTTL < 100*time.Millisecond {
		return fmt.Errorf("APP_NOTIFICATION_TTL must be at least 100ms")
	}
	if c.DialogInactivityTimeout < 5*time.Second {
		return fmt.Errorf("APP_DIALOG_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if c.DialogRetention < 0 {
		return fmt.Errorf("APP_DIALOG_RETENTION must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive")
	}
	switch c.LogFormat {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("APP_LOG_FORMAT must be one of text|json|logfmt, got %q", c.LogFormat)
	}
	return nil
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	if fc.BindAddr != "" {
		cfg.BindAddr = fc.BindAddr
	}
	if fc.MetricsNamespace != "" {
		cfg.MetricsNamespace = fc.MetricsNamespace
	}
	if fc.AllowAnyOrigin != nil {
		cfg.AllowAnyOrigin = *fc.AllowAnyOrigin
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		cfg.LogFormat = fc.LogFormat
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"shutdown_timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout},
		{"notification_ttl", fc.NotificationTTL, &cfg.NotificationTTL},
		{"dialog_inactivity_timeout", fc.DialogInactivityTimeout, &cfg.DialogInactivityTimeout},
		{"dialog_retention", fc.DialogRetention, &cfg.DialogRetention},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.raw) == "" {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("%s: %s parse error: %w", path, d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
