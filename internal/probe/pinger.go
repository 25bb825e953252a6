package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Pinger is the ICMP echo primitive. Implementations must not panic and must
// honor the timeout; every failure mode maps to false.
type Pinger interface {
	Ping(ctx context.Context, host string, count int, timeout time.Duration) bool
}

// ExecPinger shells out to the system ping binary. Success means the command
// exited zero within the timeout, which the binary only does on zero packet
// loss. Raw ICMP sockets would need elevated privileges; the setuid ping
// binary does not.
type ExecPinger struct {
	log *slog.Logger
}

func NewExecPinger(log *slog.Logger) ExecPinger {
	if log == nil {
		log = slog.Default()
	}
	return ExecPinger{log: log}
}

func (p ExecPinger) Ping(ctx context.Context, host string, count int, timeout time.Duration) bool {
	if count <= 0 {
		count = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	// Cap the per-packet wait; the subprocess gets a small buffer on top so
	// ping itself reports the timeout rather than the process being killed.
	pingWait := timeout
	if pingWait > 30*time.Second {
		pingWait = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(cctx, "ping",
		"-c", fmt.Sprintf("%d", count),
		"-W", fmt.Sprintf("%d", int(pingWait.Seconds())),
		host)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return true
	}

	switch {
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		p.log.Warn("Ping timed out", "host", host, "timeout", timeout)
	case errors.Is(err, exec.ErrNotFound):
		p.log.Error("ping command not found, install iputils-ping")
	default:
		p.log.Debug("Ping failed", "host", host, "error", err, "output", string(out))
	}
	return false
}
