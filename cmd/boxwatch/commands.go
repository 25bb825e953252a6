package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boxwatch/boxwatch"
	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/history"
	"github.com/boxwatch/boxwatch/internal/logger"
	"github.com/boxwatch/boxwatch/internal/probe"
	"github.com/boxwatch/boxwatch/internal/router"
	"github.com/boxwatch/boxwatch/internal/watchdog"
	"github.com/boxwatch/boxwatch/pkg/client"
)

type command struct {
	global *GlobalFlags
}

func (c command) loadConfig() (boxwatch.Config, error) {
	cfg, err := config.Load(c.global.ConfigPath, c.global.EnvFile)
	if err != nil {
		return cfg, err
	}
	if c.global.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// Monitor runs the watchdog daemon until SIGINT/SIGTERM.
func (c command) Monitor(f MonitorFlags) error {
	if f.Daemonize {
		child, err := daemonize(f.PIDFile, f.LogFile)
		if err != nil {
			return err
		}
		if !child {
			// Parent: the daemon is running, nothing left to do.
			return nil
		}
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	log, closer := logger.New(logger.Config{
		Dir:        cfg.Log.Dir,
		File:       cfg.Log.File,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}, os.Stderr)
	defer func() { _ = closer.Close() }()

	var rec boxwatch.Recorder
	var hist *history.SQLiteSink
	if cfg.History.Enabled {
		hist, err = history.NewSQLiteSink(cfg.History.DSN)
		if err != nil {
			return fmt.Errorf("open history sink: %w", err)
		}
		defer func() { _ = hist.Close() }()
		rec = history.NewRecorder(hist, log)
	}

	w := boxwatch.New(cfg, rec, log)

	if cfg.Metrics.Enabled {
		if err := boxwatch.RegisterMetricsDefault(); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		go func() {
			if err := boxwatch.ServeMetrics(cfg.Metrics.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed", "addr", cfg.Metrics.Listen, "error", err)
			}
		}()
		log.Info("Metrics server listening", "addr", cfg.Metrics.Listen)
	}

	var api *http.Server
	if cfg.Server.Enabled {
		api = boxwatch.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, w, hist)
		log.Info("Status API listening", "addr", cfg.Server.Listen, "base_path", cfg.Server.BasePath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = w.Monitor(ctx)

	if api != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = api.Shutdown(shutdownCtx)
	}
	return err
}

// Check performs one check-and-restart pass: probe connectivity and, when it
// is down, attempt a router restart. A check that ends with the internet
// still down surfaces as a non-nil error so the process exits 1.
func (c command) Check(f CheckFlags) error {
	cfg, err := c.loadConfig()
	if err != nil && !errors.Is(err, config.ErrMissingCredentials) {
		return err
	}

	log, closer := logger.New(logger.Config{Level: cfg.Log.Level}, os.Stderr)
	defer func() { _ = closer.Close() }()

	p := probe.New(probe.Config{
		Count:   cfg.Monitor.PingCount,
		Timeout: cfg.Monitor.PingTimeout,
	}, nil, log)
	rc := router.New(router.Config{
		Host:     cfg.Router.Host,
		Port:     cfg.Router.Port,
		Username: cfg.Router.Username,
		Password: cfg.Router.Password,
		Timeout:  cfg.Router.RequestTimeout,
	}, log)
	w := watchdog.New(cfg.Monitor, p, rc, nil, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	up := w.CheckOnce(ctx)
	if !up && f.Diagnose {
		printJSON(p.Diagnose(ctx))
	}

	if f.Device {
		info, err := rc.DeviceInfo(ctx)
		if err != nil {
			log.Warn("Device info unavailable", "error", err)
		} else {
			printJSON(info)
		}
	}

	if !up {
		return fmt.Errorf("internet connectivity check failed")
	}
	return nil
}

// Status queries a running daemon over its HTTP API.
func (c command) Status(f StatusFlags) error {
	apiURL := f.APIUrl
	if apiURL == "" {
		cfg, err := c.loadConfig()
		if err == nil || errors.Is(err, config.ErrMissingCredentials) {
			apiURL = "http://127.0.0.1" + cfg.Server.Listen + cfg.Server.BasePath
		}
	}

	apiClient := client.New(client.Config{BaseURL: apiURL, Timeout: f.APITimeout})

	ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout+time.Second)
	defer cancel()

	if !apiClient.IsReachable(ctx) {
		return fmt.Errorf("daemon not reachable at %s - start it first with 'boxwatch monitor'", apiURL)
	}

	st, err := apiClient.Status(ctx)
	if err != nil {
		return err
	}
	printStatusSummary(st)
	printJSON(st)

	if f.History > 0 {
		events, err := apiClient.History(ctx, f.History)
		if err != nil {
			return err
		}
		printJSON(events)
	}
	return nil
}

// Discover lists the router's SOAP control endpoints.
func (c command) Discover() error {
	cfg, err := c.loadConfig()
	if err != nil && !errors.Is(err, config.ErrMissingCredentials) {
		return err
	}

	log, closer := logger.New(logger.Config{Level: cfg.Log.Level}, os.Stderr)
	defer func() { _ = closer.Close() }()

	rc := router.New(router.Config{
		Host:     cfg.Router.Host,
		Port:     cfg.Router.Port,
		Username: cfg.Router.Username,
		Password: cfg.Router.Password,
		Timeout:  cfg.Router.RequestTimeout,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := rc.DiscoverServices(ctx)
	if err != nil {
		return err
	}
	printJSON(services)
	return nil
}

// Validate loads the configuration and reports the first problem, printing
// the effective settings (credentials redacted) on success.
func (c command) Validate() error {
	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	log, closer := logger.New(logger.Config{Level: cfg.Log.Level}, os.Stderr)
	defer func() { _ = closer.Close() }()

	shown := cfg
	shown.Router.Password = "<redacted>"
	printJSON(shown)

	rc := router.New(router.Config{
		Host:     cfg.Router.Host,
		Port:     cfg.Router.Port,
		Username: cfg.Router.Username,
		Password: cfg.Router.Password,
		Timeout:  cfg.Router.RequestTimeout,
	}, log)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if rc.CheckReachable(ctx) {
		fmt.Println("configuration OK, router reachable at " + rc.Addr())
	} else {
		// Not fatal: the router may simply be offline right now.
		fmt.Println("configuration OK, but router is not reachable at " + rc.Addr())
	}
	return nil
}
