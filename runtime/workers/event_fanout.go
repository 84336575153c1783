package workers

import (
	"context"
	"livechat/contract"
	"livechat/domain/chat"
	"livechat/domain/event"
	"log/slog"
	"time"
)

const defaultSinkTimeout = 500 * time.Millisecond

// HistoryLoader returns the ordered history delivered to a joining session.
type HistoryLoader func(ctx context.Context) ([]chat.Message, error)

// EventFanout broadcasts canonical records to every connected session and to
// the permanent in-process sinks (search index, mirror timeline).
//
// It provides best-effort fan-out: no acknowledgement, no retry, no durability.
// A single EventFanout drains the queue so that records leave in the order
// they were published. History requests travel through the same queue, a
// joining session never receives a history older than a broadcast it got.
//
// Sinks are served one after the other. A session whose queue is full holds
// the sessions behind it for at most sinkTimeout, once: it is then marked as
// lagging and later deliveries to it fail immediately.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	sinks       []contract.EventSink
	events      <-chan event.DomainEvent
	history     HistoryLoader
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry, events <-chan event.DomainEvent,
	history HistoryLoader, sinkTimeout time.Duration) *EventFanout {
	if sinkTimeout <= 0 {
		sinkTimeout = defaultSinkTimeout
	}
	return &EventFanout{
		log:         log,
		registry:    registry,
		events:      events,
		history:     history,
		sinkTimeout: sinkTimeout,
	}
}

// Add registers permanent sinks, receiving every broadcast.
func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.handle(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fan-out")
			return nil
		}
	}
}

func (w *EventFanout) handle(ctx context.Context, evt event.DomainEvent) {
	switch e := evt.(type) {
	case event.MessagesChanged:
		w.Fanout(ctx, e.Payload)
	case event.SessionJoined:
		messages, err := w.history(ctx)
		if err != nil {
			w.log.Warn("History unavailable for joining session", "session_id", e.SessionID, "error", err)
			return
		}
		w.deliver(ctx, e.Sink, chat.Batch{Messages: messages})
		w.log.Debug("History delivered", "session_id", e.SessionID, "count", len(messages))
	default:
		w.log.Warn("Unexpected event on fan-out queue", "kind", evt.Kind())
	}
}

// Fanout One delivery per sink, permanent sinks first.
func (w *EventFanout) Fanout(ctx context.Context, p chat.Payload) {
	for _, sink := range w.sinks {
		w.deliver(ctx, sink, p)
	}
	for _, sink := range w.registry.Sinks() {
		w.deliver(ctx, sink, p)
	}
}

func (w *EventFanout) deliver(ctx context.Context, sink event.Sink, p chat.Payload) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	if err := sink.Consume(sinkCtx, p); err != nil {
		w.log.Warn("Sink delivery failed", "sink", sinkName(sink), "error", err)
	}
}

func sinkName(sink event.Sink) string {
	if named, ok := sink.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "anonymous"
}
