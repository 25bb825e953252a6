// Package router speaks TR-064 style SOAP to a consumer router's management
// endpoint. It is a thin transport: everything surfaces as booleans plus a
// transport error, and the watchdog core never sees protocol details.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/imroc/req/v3"
)

const (
	defaultTimeout = 10 * time.Second

	// TCP reachability: 3 attempts, exponential backoff starting at 1s.
	reachabilityAttempts = 3
)

// Config identifies one router management endpoint.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// Client is the TR-064 management client for a single router.
type Client struct {
	cfg     Config
	baseURL string
	http    *req.Client
	log     *slog.Logger

	// dial is swappable for tests.
	dial func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// New builds a client. Digest authentication is configured when credentials
// are present; a basic-auth fallback is attempted on 401 responses.
func New(cfg Config, log *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	hc := req.C().SetTimeout(cfg.Timeout)
	if cfg.Username != "" && cfg.Password != "" {
		hc.SetCommonDigestAuth(cfg.Username, cfg.Password)
	}
	return &Client{
		cfg:     cfg,
		baseURL: fmt.Sprintf("http://%s", net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))),
		http:    hc,
		log:     log,
		dial:    net.DialTimeout,
	}
}

/// Addr returns the management host:port.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))
}

// CheckReachable probes the management port with a plain TCP connect,
// retrying with exponential backoff (1s, 2s). False only after every attempt
// is exhausted or the context is canceled.
func (c *Client) CheckReachable(ctx context.Context) bool {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	attempt := 0
	op := func() error {
		attempt++
		conn, err := c.dial("tcp", c.Addr(), c.cfg.Timeout)
		if err != nil {
			c.log.Warn("Router connection attempt failed", "addr", c.Addr(), "attempt", attempt, "error", err)
			return err
		}
		_ = conn.Close()
		if attempt > 1 {
			c.log.Info("Router connection succeeded after retry", "attempt", attempt)
		}
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, reachabilityAttempts-1), ctx))
	if err != nil {
		c.log.Error("Router unreachable", "addr", c.Addr(), "attempts", attempt)
		return false
	}
	return true
}

// restartMethod is one way of asking the router to reboot. Firmware builds
// differ in which service name and control path they accept, so Restart
// walks this list in order.
type restartMethod struct {
	name       string
	serviceURL string
	action     string
	body       string
}

var restartMethods = []restartMethod{
	{
		name:       "DeviceConfig Reboot",
		serviceURL: "/upnp/control/deviceconfig",
		action:     "urn:dslforum-org:service:DeviceConfig:1#Reboot",
		body:       `<u:Reboot xmlns:u="urn:dslforum-org:service:DeviceConfig:1"></u:Reboot>`,
	},
	{
		name:       "DeviceConfig Restart",
		serviceURL: "/upnp/control/deviceconfig",
		action:     "urn:dslforum-org:service:DeviceConfig:1#Restart",
		body:       `<u:Restart xmlns:u="urn:dslforum-org:service:DeviceConfig:1"></u:Restart>`,
	},
	{
		name:       "Alternative DeviceConfig",
		serviceURL: "/tr064/upnp/control/deviceconfig",
		action:     "urn:dslforum-org:service:DeviceConfig:1#Reboot",
		body:       `<u:Reboot xmlns:u="urn:dslforum-org:service:DeviceConfig:1"></u:Reboot>`,
	},
}

// Restart asks the router to reboot, trying each known method in order. The
// first method that yields an HTTP success response wins; the body is not
// content-validated since a responsive router is about to go down anyway.
//
// The returned error is non-nil only when no method elicited any HTTP
// response at all (a pure transport fault). A reachable router that refused
// every method yields (false, nil).
func (c *Client) Restart(ctx context.Context) (bool, error) {
	c.log.Info("Attempting router restart", "addr", c.Addr())

	// Advisory: log what we are about to reboot. Failure here never blocks
	// the restart itself.
	if info, err := c.DeviceInfo(ctx); err == nil {
		c.log.Info("Device identified", "model", info.ModelName, "software", info.SoftwareVersion, "serial", info.SerialNumber)
	} else {
		c.log.Warn("Could not retrieve device info, proceeding with restart anyway", "error", err)
	}

	var lastErr error
	gotResponse := false
	for _, m := range restartMethods {
		c.log.Info("Trying restart method", "method", m.name)
		status, _, err := c.soapRequest(ctx, m.serviceURL, m.action, m.body)
		if err != nil {
			lastErr = err
			c.log.Warn("Restart method transport error", "method", m.name, "error", err)
			continue
		}
		gotResponse = true
		if status >= 200 && status < 300 {
			c.log.Info("Restart command accepted", "method", m.name)
			return true, nil
		}
		c.log.Warn("Restart method rejected", "method", m.name, "status", status)
	}

	if !gotResponse && lastErr != nil {
		return false, fmt.Errorf("router restart transport failure: %w", lastErr)
	}
	c.log.Error("All restart methods failed")
	return false, nil
}
