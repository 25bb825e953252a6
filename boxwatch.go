// Package boxwatch monitors internet connectivity and restarts a TR-064
// capable router when the connection stays down. This file is the public
// facade for embedding; the boxwatch binary lives in cmd/boxwatch.
package boxwatch

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/history"
	"github.com/boxwatch/boxwatch/internal/metrics"
	"github.com/boxwatch/boxwatch/internal/probe"
	"github.com/boxwatch/boxwatch/internal/router"
	iapi "github.com/boxwatch/boxwatch/internal/server"
	"github.com/boxwatch/boxwatch/internal/watchdog"
)

// Re-export core types for external consumers. These are aliases so
// conversions are zero-cost.

type Config = cfg.Config

type Status = watchdog.Status

type DeviceInfo = router.DeviceInfo

type HistoryEvent = history.Event

type Recorder = watchdog.Recorder

// Watchdog is a thin facade over the internal monitoring loop.
type Watchdog struct{ inner *watchdog.Watchdog }

// New assembles a watchdog from configuration: quorum ping probe, TR-064
// client, and the decision loop. rec may be nil.
func New(c Config, rec Recorder, log *slog.Logger) *Watchdog {
	if log == nil {
		log = slog.Default()
	}
	p := probe.New(probe.Config{
		Count:   c.Monitor.PingCount,
		Timeout: c.Monitor.PingTimeout,
	}, nil, log)
	rc := router.New(router.Config{
		Host:     c.Router.Host,
		Port:     c.Router.Port,
		Username: c.Router.Username,
		Password: c.Router.Password,
		Timeout:  c.Router.RequestTimeout,
	}, log)
	return &Watchdog{inner: watchdog.New(c.Monitor, p, rc, rec, log)}
}

// Monitor blocks running check cycles until ctx is canceled.
func (w *Watchdog) Monitor(ctx context.Context) error { return w.inner.Monitor(ctx) }

// CheckOnce performs a single connectivity check, attempting a router
// restart when the internet is down. True means the internet is up,
// possibly after the restart.
func (w *Watchdog) CheckOnce(ctx context.Context) bool { return w.inner.CheckOnce(ctx) }

// Status returns a point-in-time snapshot of the loop.
func (w *Watchdog) Status() Status { return w.inner.Status() }

// LoadConfig loads defaults, the optional TOML file at path, .env files and
// BOXWATCH_* environment variables.
func LoadConfig(path string) (Config, error) {
	return cfg.Load(path, "")
}

// NewHTTPServer starts the status API server for a running watchdog.
func NewHTTPServer(addr, basePath string, w *Watchdog, hist *history.SQLiteSink) *http.Server {
	return iapi.NewServer(addr, basePath, w.inner, hist)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry. It blocks in the caller goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
