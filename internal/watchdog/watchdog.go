// Package watchdog runs the check/restart loop: probe internet connectivity
// on an interval, and after enough consecutive failures restart the router,
// bounded by a restart budget inside a cooldown window.
package watchdog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/cooldown"
	"github.com/boxwatch/boxwatch/internal/metrics"
	"github.com/boxwatch/boxwatch/internal/probe"
)

const (
	// Pause after a restart attempt that did not restore connectivity, so a
	// flapping link does not turn into a restart storm.
	restartFailedPenalty = 5 * time.Minute

	// Pause after an unexpected cycle error before resuming checks.
	errorPause = time.Minute

	// Long waits are sliced so context cancellation is honored promptly.
	sleepChunk = 30 * time.Second

	// Every statsEvery checks the loop logs counters and self-diagnoses.
	statsEvery = 100

	// Progress is logged during the post-restart wait while more than this
	// much of it remains.
	progressThreshold = time.Minute
)

// ConnectivityProbe reports whether the internet is reachable right now.
type ConnectivityProbe interface {
	InternetUp(ctx context.Context) bool
}

// Diagnoser is implemented by probes that can localize where a failure sits
// (local stack, gateway, DNS). The result is logged by the implementation;
// the loop only needs to trigger it.
type Diagnoser interface {
	Diagnose(ctx context.Context) probe.Diagnostics
}

// RouterControl is the slice of the management client the loop needs.
// Restart returns (false, err) only for transport faults where the router
// gave no response at all; a responsive router that refused every restart
// method is (false, nil).
type RouterControl interface {
	CheckReachable(ctx context.Context) bool
	Restart(ctx context.Context) (bool, error)
}

// Recorder receives loop events for persistence. Implementations must not
// block; failures are theirs to log.
type Recorder interface {
	RecordCheck(t time.Time, success bool, consecutiveFailures int)
	RecordRestart(t time.Time, outcome, detail string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCheck(time.Time, bool, int) {}
func (nopRecorder) RecordRestart(time.Time, string, string) {}

// Restart attempt outcomes as recorded.
const (
	OutcomeSucceeded   = "succeeded"
	OutcomeIneffective = "ineffective"
	OutcomeRejected    = "rejected"
	OutcomeTransport   = "transport_error"
	OutcomeUnreachable = "unreachable"
	OutcomeCooldown    = "cooldown"
)

// State holds the loop's counters. Access is guarded by the Watchdog mutex.
type State struct {
	StartTime           time.Time
	CheckCount          int64
	TotalFailures       int64
	ConsecutiveFailures int
	TotalRestarts       int64 // attempts that passed the cooldown gate
	RestartsSucceeded   int64
	LastCheckTime       time.Time
	LastCheckSuccess    bool
	LastSuccessTime     time.Time
	LastFailureTime     time.Time

	Tracker cooldown.Tracker
}

// Watchdog is the monitoring loop.
type Watchdog struct {
	cfg    config.MonitorConfig
	probe  ConnectivityProbe
	router RouterControl
	rec    Recorder
	log    *slog.Logger

	mu    sync.Mutex
	state State

	// Injected for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New wires a watchdog. A nil recorder is replaced with a no-op.
func New(cfg config.MonitorConfig, probe ConnectivityProbe, router RouterControl, rec Recorder, log *slog.Logger) *Watchdog {
	if rec == nil {
		rec = nopRecorder{}
	}
	if log == nil {
		log = slog.Default()
	}
	w := &Watchdog{
		cfg:    cfg,
		probe:  probe,
		router: router,
		rec:    rec,
		log:    log,
		now:    time.Now,
	}
	w.state.Tracker = cooldown.Tracker{
		MaxRestarts: cfg.MaxRestarts,
		Window:      cfg.Cooldown,
	}
	w.sleep = w.chunkedSleep
	return w
}

// Monitor runs check cycles until the context is canceled. Each cycle is
// guarded against panics; an unexpected cycle error pauses the loop briefly
// instead of killing the daemon.
func (w *Watchdog) Monitor(ctx context.Context) error {
	w.mu.Lock()
	w.state.StartTime = w.now()
	w.mu.Unlock()

	w.log.Info("Watchdog started",
		"interval", w.cfg.CheckInterval,
		"max_failures", w.cfg.MaxFailures,
		"max_restarts", w.cfg.MaxRestarts,
		"cooldown", w.cfg.Cooldown)

	for {
		if err := ctx.Err(); err != nil {
			w.logFinalStats()
			return nil
		}

		start := w.now()
		pause, err := w.safeCycle(ctx)
		if err != nil {
			w.log.Error("Check cycle failed unexpectedly", "error", err)
			pause = errorPause
		}

		if pause == 0 {
			elapsed := w.now().Sub(start)
			pause = w.cfg.CheckInterval - elapsed
			if pause < 0 {
				w.log.Warn("Check cycle exceeded the interval", "elapsed", elapsed, "interval", w.cfg.CheckInterval)
				pause = 0
			}
		}

		if err := w.sleep(ctx, pause); err != nil {
			w.logFinalStats()
			return nil
		}
	}
}

// safeCycle runs one cycle, converting a panic into an error. Returns a
// non-zero pause when the cycle wants to override the normal schedule.
func (w *Watchdog) safeCycle(ctx context.Context) (pause time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()
	return w.RunCycle(ctx), nil
}

// RunCycle performs one connectivity check and, when the failure threshold is
// reached, a restart attempt. Returns a pause override (0 means follow the
// regular interval).
func (w *Watchdog) RunCycle(ctx context.Context) time.Duration {
	cycleStart := w.now()
	defer func() {
		metrics.ObserveCycleDuration(w.now().Sub(cycleStart).Seconds())
	}()

	w.mu.Lock()
	w.state.CheckCount++
	count := w.state.CheckCount
	w.mu.Unlock()

	if count%statsEvery == 0 {
		w.selfCheck()
		w.logStats()
	}

	up := w.probe.InternetUp(ctx)
	now := w.now()

	w.mu.Lock()
	w.state.LastCheckTime = now
	w.state.LastCheckSuccess = up
	if up {
		w.state.LastSuccessTime = now
		recovered := w.state.ConsecutiveFailures > 0
		prior := w.state.ConsecutiveFailures
		w.state.ConsecutiveFailures = 0
		hadBudgetUsed := w.state.Tracker.RestartCount > 0 || w.state.Tracker.InCooldown
		w.state.Tracker.Clear()
		w.mu.Unlock()

		metrics.IncCheck(true)
		metrics.SetConsecutiveFailures(0)
		metrics.SetInCooldown(false, 0)
		w.rec.RecordCheck(now, true, 0)
		if recovered {
			w.log.Info("Connectivity restored", "after_failures", prior)
		}
		if hadBudgetUsed && recovered {
			w.log.Info("Restart budget cleared after recovery")
		}
		return 0
	}

	w.state.ConsecutiveFailures++
	w.state.TotalFailures++
	w.state.LastFailureTime = now
	failures := w.state.ConsecutiveFailures
	w.mu.Unlock()

	metrics.IncCheck(false)
	metrics.SetConsecutiveFailures(failures)
	w.rec.RecordCheck(now, false, failures)
	w.log.Warn("Connectivity check failed", "consecutive_failures", failures, "threshold", w.cfg.MaxFailures)

	if failures < w.cfg.MaxFailures {
		return 0
	}

	w.runDiagnostics(ctx)

	// Gate at the loop level too: during cooldown the cycle stays on the
	// regular schedule and no attempt is burned.
	w.mu.Lock()
	decision := w.state.Tracker.Evaluate(w.now())
	w.mu.Unlock()
	if !decision.Permitted {
		metrics.SetInCooldown(true, decision.Remaining.Seconds())
		w.log.Warn("Restart suppressed, in cooldown", "remaining", decision.Remaining.Round(time.Second))
		return 0
	}

	if w.AttemptRestart(ctx) {
		return 0
	}
	return restartFailedPenalty
}

// runDiagnostics triggers failure localization when the probe supports it.
func (w *Watchdog) runDiagnostics(ctx context.Context) {
	if d, ok := w.probe.(Diagnoser); ok {
		d.Diagnose(ctx)
	}
}

// AttemptRestart drives one restart attempt through the cooldown gate, the
// reachability check, the restart command, and the post-restart wait. True
// means connectivity was verified restored afterwards.
func (w *Watchdog) AttemptRestart(ctx context.Context) bool {
	now := w.now()

	w.mu.Lock()
	// The attempt is counted before the gate: a denied attempt still
	// happened, it just did nothing.
	w.state.TotalRestarts++
	decision := w.state.Tracker.Evaluate(now)
	if !decision.Permitted {
		remaining := decision.Remaining
		w.mu.Unlock()
		metrics.SetInCooldown(true, remaining.Seconds())
		w.rec.RecordRestart(now, OutcomeCooldown, remaining.String())
		w.log.Warn("Restart denied, in cooldown",
			"remaining", remaining.Round(time.Second),
			"max_restarts", w.cfg.MaxRestarts,
			"window", w.cfg.Cooldown)
		return false
	}
	w.state.Tracker.RestartCount++
	restartNum := w.state.Tracker.RestartCount
	w.mu.Unlock()

	metrics.IncRestartAttempt()
	w.log.Info("Restart permitted", "restart", restartNum, "of", w.cfg.MaxRestarts)
	if restartNum == w.cfg.MaxRestarts {
		w.log.Warn("Final restart attempt before cooldown", "window", w.cfg.Cooldown)
	}

	if !w.router.CheckReachable(ctx) {
		// The router itself is gone; the slot stays consumed so a dead
		// management interface cannot grant unlimited attempts.
		w.runDiagnostics(ctx)
		w.rec.RecordRestart(now, OutcomeUnreachable, "")
		w.log.Error("Router management interface unreachable, cannot restart")
		return false
	}

	ok, err := w.router.Restart(ctx)
	if err != nil {
		// Pure transport fault: the command never arrived, so neither the
		// attempt nor the slot counts.
		w.mu.Lock()
		w.state.Tracker.RestartCount--
		w.state.TotalRestarts--
		w.mu.Unlock()
		w.rec.RecordRestart(now, OutcomeTransport, err.Error())
		w.log.Error("Restart command failed in transit", "error", err)
		return false
	}
	if !ok {
		// The router answered but refused every method; give the slot back
		// since nothing rebooted.
		w.mu.Lock()
		w.state.Tracker.RestartCount--
		w.mu.Unlock()
		w.rec.RecordRestart(now, OutcomeRejected, "")
		w.log.Error("Router rejected all restart methods")
		return false
	}

	// Only an executed restart starts the cooldown clock; slots burned on an
	// unreachable router leave LastRestart untouched so the budget reopens
	// on the next evaluation.
	w.mu.Lock()
	w.state.Tracker.LastRestart = w.now()
	if w.state.Tracker.RestartCount >= w.cfg.MaxRestarts {
		w.state.Tracker.InCooldown = true
	}
	activated := w.state.Tracker.InCooldown
	w.mu.Unlock()
	if activated {
		metrics.SetInCooldown(true, w.cfg.Cooldown.Seconds())
		w.log.Warn("Restart budget exhausted, cooldown activated", "window", w.cfg.Cooldown)
	}

	w.log.Info("Restart command accepted, waiting for router to come back", "wait", w.cfg.RestartWait)
	if err := w.waitWithProgress(ctx, w.cfg.RestartWait); err != nil {
		return false
	}

	if w.probe.InternetUp(ctx) {
		w.mu.Lock()
		w.state.ConsecutiveFailures = 0
		w.state.RestartsSucceeded++
		w.state.LastSuccessTime = w.now()
		w.mu.Unlock()
		metrics.IncRestartSuccess()
		metrics.SetConsecutiveFailures(0)
		w.rec.RecordRestart(now, OutcomeSucceeded, "")
		w.log.Info("Connectivity restored after restart")
		return true
	}

	w.rec.RecordRestart(now, OutcomeIneffective, "")
	w.log.Warn("Connectivity still down after restart")
	return false
}

// CheckOnce is the one-shot mode: probe connectivity and, when it is down,
// drive a single restart attempt through the same gate as the loop. True
// means the internet is up, possibly after the restart.
func (w *Watchdog) CheckOnce(ctx context.Context) bool {
	if w.probe.InternetUp(ctx) {
		w.log.Info("Internet connectivity OK")
		return true
	}
	w.log.Error("Internet connectivity DOWN, attempting router restart")
	return w.AttemptRestart(ctx)
}

// waitWithProgress sleeps for d, logging remaining time while more than a
// minute of the wait is left.
func (w *Watchdog) waitWithProgress(ctx context.Context, d time.Duration) error {
	deadline := w.now().Add(d)
	for {
		remaining := deadline.Sub(w.now())
		if remaining <= 0 {
			return nil
		}
		if remaining > progressThreshold {
			w.log.Info("Waiting for router", "remaining", remaining.Round(time.Second))
		}
		step := remaining
		if step > sleepChunk {
			step = sleepChunk
		}
		if err := w.sleep(ctx, step); err != nil {
			return err
		}
	}
}

// chunkedSleep sleeps in slices of at most sleepChunk so cancellation is
// seen quickly even for multi-minute pauses.
func (w *Watchdog) chunkedSleep(ctx context.Context, d time.Duration) error {
	for d > 0 {
		step := d
		if step > sleepChunk {
			step = sleepChunk
		}
		t := time.NewTimer(step)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		d -= step
	}
	return nil
}
