package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// Second call must be a no-op, not a duplicate-registration error.
	if err := Register(reg); err != nil {
		t.Fatalf("second Register: %v", err)
	}
}

func TestHelpersRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	before := testutil.ToFloat64(checksTotal.WithLabelValues("success"))
	IncCheck(true)
	IncCheck(false)
	if got := testutil.ToFloat64(checksTotal.WithLabelValues("success")); got != before+1 {
		t.Fatalf("success checks = %v, want %v", got, before+1)
	}

	SetConsecutiveFailures(4)
	if got := testutil.ToFloat64(consecutiveFailures); got != 4 {
		t.Fatalf("consecutive_failures = %v", got)
	}

	SetInCooldown(true, 120)
	if testutil.ToFloat64(inCooldown) != 1 || testutil.ToFloat64(cooldownRemaining) != 120 {
		t.Fatalf("cooldown gauges not set")
	}
	SetInCooldown(false, 55)
	if testutil.ToFloat64(inCooldown) != 0 || testutil.ToFloat64(cooldownRemaining) != 0 {
		t.Fatalf("cooldown remaining must clamp to 0 when inactive")
	}

	SetProbeHostUp("8.8.8.8", true)
	if got := testutil.ToFloat64(probeHostUp.WithLabelValues("8.8.8.8")); got != 1 {
		t.Fatalf("probe host gauge = %v", got)
	}
}

func TestHandlerServes(t *testing.T) {
	if Handler() == nil {
		t.Fatalf("nil handler")
	}
}
