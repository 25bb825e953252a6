package history

import (
	"context"
	"log/slog"
	"time"
)

const sendTimeout = 5 * time.Second

// Recorder adapts a Sink to the watchdog's event hooks. Sink errors are
// logged and swallowed; the audit trail must never stall the loop.
type Recorder struct {
	sink Sink
	log  *slog.Logger
}

func NewRecorder(sink Sink, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{sink: sink, log: log}
}

func (r *Recorder) RecordCheck(t time.Time, success bool, consecutiveFailures int) {
	outcome := "down"
	if success {
		outcome = "up"
	}
	r.send(Event{Type: EventCheck, OccurredAt: t, Outcome: outcome, Failures: consecutiveFailures})
}

func (r *Recorder) RecordRestart(t time.Time, outcome, detail string) {
	r.send(Event{Type: EventRestart, OccurredAt: t, Outcome: outcome, Detail: detail})
}

func (r *Recorder) send(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := r.sink.Send(ctx, e); err != nil {
		r.log.Warn("History write failed", "event", e.Type, "error", err)
	}
}
