package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default monitoring values. They mirror the defaults the watchdog was
// originally tuned with for a consumer router on a home line.
const (
	DefaultRouterHost     = "192.168.1.1"
	DefaultRouterPort     = 49000
	DefaultCheckInterval  = time.Minute
	DefaultMaxFailures    = 2
	DefaultRestartWait    = 3 * time.Minute
	DefaultMaxRestarts    = 3
	DefaultCooldown       = 12 * time.Hour
	DefaultPingCount      = 3
	DefaultPingTimeout    = 10 * time.Second
	DefaultRequestTimeout = 10 * time.Second
)

// DefaultEnvFiles are the .env locations probed in order when no explicit
// env file is given. The first one that exists wins.
var DefaultEnvFiles = []string{
	"/opt/boxwatch/.env",
	"/etc/boxwatch/.env",
	".env",
}

// RouterConfig identifies the TR-064 endpoint and its credentials.
type RouterConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// MonitorConfig holds the decision-loop tuning knobs. All values are fixed
// after Load; the watchdog never mutates its configuration.
type MonitorConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	MaxFailures   int           `mapstructure:"max_failures"`
	RestartWait   time.Duration `mapstructure:"restart_wait"`
	MaxRestarts   int           `mapstructure:"max_restarts"`
	Cooldown      time.Duration `mapstructure:"cooldown"`
	PingCount     int           `mapstructure:"ping_count"`
	PingTimeout   time.Duration `mapstructure:"ping_timeout"`
}

// LogConfig describes the slog destination. When Dir or File is set a
// lumberjack-rotated file sink is attached in addition to the console.
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ServerConfig configures the status HTTP API exposed by `boxwatch monitor`.
type ServerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// HistoryConfig configures the optional sqlite event sink.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// Config is assembled exactly once at startup and passed by value into the
// components that need it.
type Config struct {
	Router  RouterConfig  `mapstructure:"router"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	History HistoryConfig `mapstructure:"history"`
}

// ErrMissingCredentials is returned when the router username or password is
// absent. The daemon refuses to start without them since a restart command
// could never succeed.
var ErrMissingCredentials = errors.New("router username and password must be configured")

// Load assembles the immutable runtime configuration. Precedence, lowest to
// highest: built-in defaults, the TOML file at path (optional), BOXWATCH_*
// environment variables. A .env file found at one of DefaultEnvFiles (or at
// envFile when given) is loaded into the environment first, without
// overriding variables already set by the caller's shell.
func Load(path string, envFile string) (Config, error) {
	loadEnvFiles(envFile)

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("boxwatch")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	// The parsed config is returned even when validation fails, so callers
	// that do not need credentials (one-shot checks) can still run.
	return cfg, cfg.Validate()
}

// Validate checks constraints that would make the watchdog misbehave at
// runtime. Credentials are mandatory; everything else only has to be positive.
func (c Config) Validate() error {
	if c.Router.Username == "" || c.Router.Password == "" {
		return ErrMissingCredentials
	}
	if c.Router.Host == "" {
		return errors.New("router host must not be empty")
	}
	if c.Router.Port <= 0 || c.Router.Port > 65535 {
		return fmt.Errorf("router port %d out of range", c.Router.Port)
	}
	if c.Monitor.CheckInterval <= 0 {
		return errors.New("check_interval must be positive")
	}
	if c.Monitor.MaxFailures <= 0 {
		return errors.New("max_failures must be positive")
	}
	if c.Monitor.MaxRestarts <= 0 {
		return errors.New("max_restarts must be positive")
	}
	if c.Monitor.Cooldown <= 0 {
		return errors.New("cooldown must be positive")
	}
	if c.Monitor.PingCount <= 0 {
		return errors.New("ping_count must be positive")
	}
	if c.History.Enabled && c.History.DSN == "" {
		return errors.New("history.dsn required when history is enabled")
	}
	return nil
}

// Addr returns the host:port the management endpoint listens on.
func (c RouterConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BaseURL returns the http URL prefix for TR-064 control requests.
func (c RouterConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("router.host", DefaultRouterHost)
	v.SetDefault("router.port", DefaultRouterPort)
	v.SetDefault("router.request_timeout", DefaultRequestTimeout)
	v.SetDefault("monitor.check_interval", DefaultCheckInterval)
	v.SetDefault("monitor.max_failures", DefaultMaxFailures)
	v.SetDefault("monitor.restart_wait", DefaultRestartWait)
	v.SetDefault("monitor.max_restarts", DefaultMaxRestarts)
	v.SetDefault("monitor.cooldown", DefaultCooldown)
	v.SetDefault("monitor.ping_count", DefaultPingCount)
	v.SetDefault("monitor.ping_timeout", DefaultPingTimeout)
	v.SetDefault("log.level", "info")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("metrics.listen", ":9090")
}

// bindEnvKeys makes AutomaticEnv work for nested keys that do not appear in
// the config file. Viper only consults the environment for keys it knows.
func bindEnvKeys(v *viper.Viper) {
	for _, k := range []string{
		"router.host", "router.port", "router.username", "router.password",
		"router.request_timeout",
		"monitor.check_interval", "monitor.max_failures", "monitor.restart_wait",
		"monitor.max_restarts", "monitor.cooldown",
		"monitor.ping_count", "monitor.ping_timeout",
		"log.dir", "log.file", "log.level",
		"server.enabled", "server.listen", "server.base_path",
		"metrics.enabled", "metrics.listen",
		"history.enabled", "history.dsn",
	} {
		_ = v.BindEnv(k)
	}
}

// loadEnvFiles loads the first existing .env file. godotenv never overrides
// variables already present in the environment, which keeps the documented
// precedence (shell beats file).
func loadEnvFiles(explicit string) {
	if explicit != "" {
		_ = godotenv.Load(filepath.Clean(explicit))
		return
	}
	for _, p := range DefaultEnvFiles {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}
