package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.NotificationTTL != 3*time.Second {
		t.Fatalf("NotificationTTL = %v, want 3s", cfg.NotificationTTL)
	}
	if cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin = true, want false by default")
	}
	if cfg.ConfigFile != "" {
		t.Fatalf("ConfigFile = %q, want empty", cfg.ConfigFile)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9191")
	t.Setenv("APP_NOTIFICATION_TTL", "5s")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "yes")
	t.Setenv("APP_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9191" {
		t.Fatalf("BindAddr = %q, want explicit value", cfg.BindAddr)
	}
	if cfg.NotificationTTL != 5*time.Second {
		t.Fatalf("NotificationTTL = %v, want 5s", cfg.NotificationTTL)
	}
	if !cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin = false, want true")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want lowercased %q", cfg.LogLevel, "debug")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	setCoreEnvEmpty(t)
	path := filepath.Join(t.TempDir(), "taskdesk.toml")
	body := `
bind_addr = ":7070"
notification_ttl = "1500ms"
dialog_inactivity_timeout = "10m"
allow_any_origin = true
log_format = "json"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("APP_CONFIG_FILE", path)
	t.Setenv("APP_BIND_ADDR", ":6060")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":6060" {
		t.Fatalf("BindAddr = %q, env should win over file", cfg.BindAddr)
	}
	if cfg.NotificationTTL != 1500*time.Millisecond {
		t.Fatalf("NotificationTTL = %v, want 1.5s from file", cfg.NotificationTTL)
	}
	if cfg.DialogInactivityTimeout != 10*time.Minute {
		t.Fatalf("DialogInactivityTimeout = %v, want 10m", cfg.DialogInactivityTimeout)
	}
	if !cfg.AllowAnyOrigin || cfg.LogFormat != "json" {
		t.Fatalf("file overlay not applied: %+v", cfg)
	}
	if cfg.ConfigFile != path {
		t.Fatalf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"APP_NOTIFICATION_TTL":          "10ms",
		"APP_DIALOG_INACTIVITY_TIMEOUT": "1s",
		"APP_SHUTDOWN_TIMEOUT":          "soon",
		"APP_ALLOW_ANY_ORIGIN":          "maybe",
		"APP_LOG_FORMAT":                "xml",
		"APP_CONFIG_FILE":               filepath.Join(os.TempDir(), "does-not-exist-taskdesk.toml"),
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%q succeeded, want error", key, value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_CONFIG_FILE",
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_NOTIFICATION_TTL",
		"APP_DIALOG_INACTIVITY_TIMEOUT",
		"APP_DIALOG_RETENTION",
		"APP_LOG_LEVEL",
		"APP_LOG_FORMAT",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
