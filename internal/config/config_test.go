package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "boxwatch.toml", `
[router]
username = "admin"
password = "secret"
`)
	cfg, err := Load(p, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Router.Host != DefaultRouterHost || cfg.Router.Port != DefaultRouterPort {
		t.Fatalf("unexpected router defaults: %s:%d", cfg.Router.Host, cfg.Router.Port)
	}
	if cfg.Monitor.CheckInterval != time.Minute {
		t.Fatalf("check_interval default = %v", cfg.Monitor.CheckInterval)
	}
	if cfg.Monitor.MaxFailures != 2 || cfg.Monitor.MaxRestarts != 3 {
		t.Fatalf("unexpected thresholds: failures=%d restarts=%d", cfg.Monitor.MaxFailures, cfg.Monitor.MaxRestarts)
	}
	if cfg.Monitor.Cooldown != 12*time.Hour {
		t.Fatalf("cooldown default = %v", cfg.Monitor.Cooldown)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "boxwatch.toml", `
[router]
host = "10.0.0.1"
port = 49443
username = "admin"
password = "secret"

[monitor]
check_interval = "30s"
max_failures = 5
restart_wait = "90s"
cooldown = "1h"

[history]
enabled = true
dsn = ":memory:"
`)
	cfg, err := Load(p, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Router.Addr() != "10.0.0.1:49443" {
		t.Fatalf("Addr = %s", cfg.Router.Addr())
	}
	if cfg.Router.BaseURL() != "http://10.0.0.1:49443" {
		t.Fatalf("BaseURL = %s", cfg.Router.BaseURL())
	}
	if cfg.Monitor.CheckInterval != 30*time.Second || cfg.Monitor.RestartWait != 90*time.Second {
		t.Fatalf("durations not parsed: %v %v", cfg.Monitor.CheckInterval, cfg.Monitor.RestartWait)
	}
	if cfg.Monitor.MaxFailures != 5 {
		t.Fatalf("max_failures = %d", cfg.Monitor.MaxFailures)
	}
	if !cfg.History.Enabled || cfg.History.DSN != ":memory:" {
		t.Fatalf("history config not applied: %+v", cfg.History)
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "boxwatch.toml", `
[router]
host = "10.0.0.1"
`)
	if _, err := Load(p, ""); err == nil {
		t.Fatalf("expected error for missing credentials")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BOXWATCH_ROUTER_USERNAME", "envuser")
	t.Setenv("BOXWATCH_ROUTER_PASSWORD", "envpass")
	t.Setenv("BOXWATCH_MONITOR_MAX_FAILURES", "7")

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Router.Username != "envuser" || cfg.Router.Password != "envpass" {
		t.Fatalf("env credentials not applied: %+v", cfg.Router)
	}
	if cfg.Monitor.MaxFailures != 7 {
		t.Fatalf("env max_failures = %d", cfg.Monitor.MaxFailures)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "BOXWATCH_ROUTER_USERNAME=fileuser\nBOXWATCH_ROUTER_PASSWORD=filepass\n")

	cfg, err := Load("", envPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Router.Username != "fileuser" {
		t.Fatalf("dotenv username = %q", cfg.Router.Username)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := Config{
		Router:  RouterConfig{Host: "h", Port: 49000, Username: "u", Password: "p"},
		Monitor: MonitorConfig{CheckInterval: time.Minute, MaxFailures: 2, MaxRestarts: 3, Cooldown: time.Hour, PingCount: 3},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []func(*Config){
		func(c *Config) { c.Router.Port = 0 },
		func(c *Config) { c.Router.Port = 70000 },
		func(c *Config) { c.Router.Host = "" },
		func(c *Config) { c.Monitor.CheckInterval = 0 },
		func(c *Config) { c.Monitor.MaxFailures = 0 },
		func(c *Config) { c.Monitor.MaxRestarts = 0 },
		func(c *Config) { c.Monitor.Cooldown = 0 },
		func(c *Config) { c.Monitor.PingCount = 0 },
		func(c *Config) { c.History.Enabled = true },
	}
	for i, mutate := range cases {
		c := base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
