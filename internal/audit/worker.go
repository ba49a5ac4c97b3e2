package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and delivers them to a sink.
// It keeps background processing testable without wiring broker
// implementations into the admission path.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run delivers events until ctx is cancelled. Delivery failures are logged
// and skipped; audit must never take the gateway down.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to deliver audit event",
					"action", event.Action,
					"subject", event.Subject,
					"error", err,
				)
			}
		}
	}
}
