package watchdog

import (
	"fmt"
	"time"
)

// Health classifications reported by Status.
const (
	HealthHealthy = "healthy"
	HealthWarning = "warning"
)

// Status is a point-in-time snapshot of the loop, served over the status API
// and printed by the status command.
type Status struct {
	Uptime              string    `json:"uptime"`
	CheckCount          int64     `json:"check_count"`
	TotalFailures       int64     `json:"total_failures"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	SuccessRate         float64   `json:"success_rate"`
	LastCheckTime       time.Time `json:"last_check_time"`
	LastCheckSuccess    bool      `json:"last_check_success"`
	LastSuccessTime     time.Time `json:"last_success_time"`
	LastFailureTime     time.Time `json:"last_failure_time"`

	RestartCount      int   `json:"restart_count"`
	MaxRestarts       int   `json:"max_restarts"`
	TotalRestarts     int64 `json:"total_restarts"`
	RestartsSucceeded int64 `json:"restarts_succeeded"`

	InCooldown        bool   `json:"in_cooldown"`
	CooldownRemaining string `json:"cooldown_remaining,omitempty"`

	Health       string `json:"health"`
	HealthReason string `json:"health_reason,omitempty"`
}

// Status returns the current snapshot.
func (w *Watchdog) Status() Status {
	now := w.now()

	w.mu.Lock()
	s := w.state
	w.mu.Unlock()

	st := Status{
		CheckCount:          s.CheckCount,
		TotalFailures:       s.TotalFailures,
		ConsecutiveFailures: s.ConsecutiveFailures,
		LastCheckTime:       s.LastCheckTime,
		LastCheckSuccess:    s.LastCheckSuccess,
		LastSuccessTime:     s.LastSuccessTime,
		LastFailureTime:     s.LastFailureTime,
		RestartCount:        s.Tracker.RestartCount,
		MaxRestarts:         w.cfg.MaxRestarts,
		TotalRestarts:       s.TotalRestarts,
		RestartsSucceeded:   s.RestartsSucceeded,
		InCooldown:          s.Tracker.InCooldown,
	}
	if !s.StartTime.IsZero() {
		st.Uptime = now.Sub(s.StartTime).Round(time.Second).String()
	}
	if s.CheckCount > 0 {
		st.SuccessRate = float64(s.CheckCount-s.TotalFailures) / float64(s.CheckCount)
	}
	if remaining := s.Tracker.Remaining(now); remaining > 0 {
		st.CooldownRemaining = remaining.Round(time.Second).String()
	}
	st.Health, st.HealthReason = classify(s, w.cfg.Cooldown, now)
	return st
}

// classify applies the self-diagnosis rules: a cooldown that outlived twice
// its window means the clearing path never ran, and a success rate below 50%
// over a meaningful sample means restarts are not helping.
func classify(s State, window time.Duration, now time.Time) (string, string) {
	if s.Tracker.InCooldown && !s.Tracker.LastRestart.IsZero() && now.Sub(s.Tracker.LastRestart) > 2*window {
		return HealthWarning, fmt.Sprintf("cooldown active for %s, more than twice the %s window",
			now.Sub(s.Tracker.LastRestart).Round(time.Minute), window)
	}
	if s.CheckCount >= 10 && s.TotalFailures*2 > s.CheckCount {
		return HealthWarning, fmt.Sprintf("failure rate %.0f%% over %d checks",
			100*float64(s.TotalFailures)/float64(s.CheckCount), s.CheckCount)
	}
	return HealthHealthy, ""
}

// selfCheck logs a warning when the loop looks unhealthy.
func (w *Watchdog) selfCheck() {
	now := w.now()
	w.mu.Lock()
	s := w.state
	w.mu.Unlock()

	if health, reason := classify(s, w.cfg.Cooldown, now); health != HealthHealthy {
		w.log.Warn("Watchdog health degraded", "reason", reason)
	}
}

func (w *Watchdog) logStats() {
	st := w.Status()
	w.log.Info("Periodic statistics",
		"uptime", st.Uptime,
		"checks", st.CheckCount,
		"failures", st.TotalFailures,
		"success_rate", fmt.Sprintf("%.1f%%", 100*st.SuccessRate),
		"restarts_attempted", st.TotalRestarts,
		"restarts_succeeded", st.RestartsSucceeded,
		"in_cooldown", st.InCooldown)
}

func (w *Watchdog) logFinalStats() {
	st := w.Status()
	w.log.Info("Watchdog stopped",
		"uptime", st.Uptime,
		"checks", st.CheckCount,
		"failures", st.TotalFailures,
		"restarts_attempted", st.TotalRestarts,
		"restarts_succeeded", st.RestartsSucceeded)
}
