// Package cooldown suppresses remedial restarts after the restart budget is
// spent, so a degraded router is not rebooted in a tight loop.
package cooldown

import "time"

// Decision is the outcome of a permission check.
type Decision struct {
	Permitted bool          `json:"permitted"`
	Remaining time.Duration `json:"remaining"`
}

// Tracker holds the restart budget and the cooldown window. MaxRestarts and
// Window are fixed at construction; the mutable fields belong to the single
// goroutine driving the watchdog loop.
type Tracker struct {
	MaxRestarts int
	Window      time.Duration

	RestartCount int
	LastRestart  time.Time
	InCooldown   bool
}

// Evaluate reports whether a restart is currently permitted.
//
// Checking permission is also what clears an expired cooldown: when the
// window has elapsed, Evaluate resets RestartCount and InCooldown before
// returning a permit. Callers that only want to observe the state must use
// Remaining instead.
func (t *Tracker) Evaluate(now time.Time) Decision {
	if t.RestartCount < t.MaxRestarts {
		return Decision{Permitted: true}
	}
	elapsed := now.Sub(t.LastRestart)
	if elapsed >= t.Window {
		t.RestartCount = 0
		t.InCooldown = false
		return Decision{Permitted: true}
	}
	return Decision{Permitted: false, Remaining: t.Window - elapsed}
}

// Remaining is the read-only counterpart of Evaluate: time left in the
// current cooldown window, 0 when no cooldown applies.
func (t *Tracker) Remaining(now time.Time) time.Duration {
	if !t.InCooldown || t.LastRestart.IsZero() {
		return 0
	}
	left := t.Window - now.Sub(t.LastRestart)
	if left < 0 {
		return 0
	}
	return left
}

// Clear resets the budget outright. Used when connectivity is confirmed
// restored, which is stronger evidence than window expiry.
func (t *Tracker) Clear() {
	t.RestartCount = 0
	t.InCooldown = false
}
