package probe

import (
	"context"
	"net"
	"os/exec"
	"strings"
	"time"
)

// Diagnostics is a best-effort snapshot of where the network path breaks.
// Every field defaults to false; sub-checks never abort the others.
type Diagnostics struct {
	Timestamp         time.Time `json:"timestamp"`
	LocalConnectivity bool      `json:"local_connectivity"`
	GatewayReachable  bool      `json:"gateway_reachable"`
	Gateway           string    `json:"gateway,omitempty"`
	DNSResolution     bool      `json:"dns_resolution"`
}

const diagnosticsResolver = "8.8.8.8:53"

// Diagnose runs the secondary checks used when failures accumulate: loopback
// ping, default-gateway ping, and a DNS lookup against a known resolver.
// Results are logged; the watchdog never branches on them.
func (p *Probe) Diagnose(ctx context.Context) Diagnostics {
	p.log.Info("Running network diagnostics")
	d := Diagnostics{Timestamp: time.Now()}

	d.LocalConnectivity = p.pinger.Ping(ctx, "127.0.0.1", 2, 5*time.Second)
	p.log.Info("Loopback check", "ok", d.LocalConnectivity)

	if gw := defaultGateway(ctx); gw != "" {
		d.Gateway = gw
		d.GatewayReachable = p.pinger.Ping(ctx, gw, 2, 5*time.Second)
		p.log.Info("Gateway check", "gateway", gw, "ok", d.GatewayReachable)
	} else {
		p.log.Warn("Could not determine default gateway")
	}

	d.DNSResolution = resolveCheck(ctx)
	p.log.Info("DNS check", "resolver", diagnosticsResolver, "ok", d.DNSResolution)

	return d
}

// defaultGateway shells out to `ip route show default` and extracts the
// next-hop address. Empty string when it cannot be determined.
func defaultGateway(ctx context.Context) string {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(cctx, "ip", "route", "show", "default").Output()
	if err != nil {
		return ""
	}
	return parseDefaultGateway(string(out))
}

func parseDefaultGateway(out string) string {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		for i, f := range fields {
			if f == "via" && i+1 < len(fields) {
				return fields[i+1]
			}
		}
	}
	return ""
}

// resolveCheck looks up a well-known name against a fixed public resolver so
// the result reflects upstream DNS rather than the local stub configuration.
func resolveCheck(ctx context.Context) bool {
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, diagnosticsResolver)
		},
	}
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	addrs, err := r.LookupHost(cctx, "google.com")
	return err == nil && len(addrs) > 0
}
