package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/boxwatch/boxwatch/internal/metrics"
)

// DefaultHosts are geographically distributed, highly available anycast
// resolvers from independent operators. Quorum over independent targets keeps
// a single provider outage from being mistaken for a line failure.
var DefaultHosts = []string{
	"8.8.8.8",        // Google DNS (primary)
	"1.1.1.1",        // Cloudflare DNS
	"8.8.4.4",        // Google DNS (secondary)
	"208.67.222.222", // OpenDNS
}

// Config tunes the connectivity probe.
type Config struct {
	Hosts   []string
	Count   int           // echo requests per host
	Timeout time.Duration // per-host timeout
}

// Probe decides internet reachability by pinging a fixed host set and
// requiring a strict majority to answer.
type Probe struct {
	hosts   []string
	count   int
	timeout time.Duration
	pinger  Pinger
	log     *slog.Logger
}

func New(cfg Config, pinger Pinger, log *slog.Logger) *Probe {
	if len(cfg.Hosts) == 0 {
		cfg.Hosts = DefaultHosts
	}
	if cfg.Count <= 0 {
		cfg.Count = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	if pinger == nil {
		pinger = NewExecPinger(log)
	}
	return &Probe{hosts: cfg.Hosts, count: cfg.Count, timeout: cfg.Timeout, pinger: pinger, log: log}
}

// Quorum returns the number of hosts that must answer: a strict majority.
func (p *Probe) Quorum() int { return len(p.hosts)/2 + 1 }

// InternetUp probes every host and returns true iff a strict majority
// answered. Individual host failures are absorbed into the quorum count;
// this method never fails as a whole.
func (p *Probe) InternetUp(ctx context.Context) bool {
	p.log.Info("Testing internet connectivity", "hosts", len(p.hosts))

	working := 0
	for _, host := range p.hosts {
		ok := p.pinger.Ping(ctx, host, p.count, p.timeout)
		metrics.SetProbeHostUp(host, ok)
		if ok {
			working++
			p.log.Info("Host reachable", "host", host)
		} else {
			p.log.Info("Host unreachable", "host", host)
		}
	}

	required := p.Quorum()
	connected := working >= required
	if connected {
		p.log.Info("Connected", "reachable", working, "total", len(p.hosts))
	} else {
		p.log.Warn("Disconnected", "reachable", working, "total", len(p.hosts), "required", required)
	}
	return connected
}
