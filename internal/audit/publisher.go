package audit

import (
	"context"
	"fmt"
	"time"
)

// Publisher captures structured audit events. Implementations must be safe
// for concurrent use.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Sink is the terminal destination for audit events. The worker drains the
// queue into a sink so emitters never block on slow backends.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// QueuePublisher buffers events on a channel for background delivery.
type QueuePublisher struct {
	inbox chan Event
}

func NewQueuePublisher(buffer int) *QueuePublisher {
	return &QueuePublisher{inbox: make(chan Event, buffer)}
}

// Emit enqueues the event, stamping a timestamp when absent. A full queue
// returns an error instead of blocking the admission path.
func (p *QueuePublisher) Emit(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		return fmt.Errorf("audit queue full, dropping event %s", event.Action)
	}
}

// Inbox exposes the queue for the worker.
func (p *QueuePublisher) Inbox() <-chan Event { return p.inbox }
