// Package runtime wires event ingestion, record mutation and broadcast.
// It owns the fan-out queue and the session registry without holding any
// message state itself, the store stays the source of truth.
package runtime

import (
	"context"
	goerrors "errors"
	"livechat/contract"
	"livechat/domain/chat"
	"livechat/domain/event"
	"livechat/errors"
	"livechat/runtime/workers"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

type Orchestrator struct {
	mu             sync.Mutex
	log            *slog.Logger
	router         *Router
	permanentSinks []contract.EventSink
	supervisor     contract.ISupervisor
	registry       contract.IRegistry
	store          contract.MessageStore
	domainEvents   chan event.DomainEvent
	sinkTimeout    time.Duration
	limitMessages  *int
	done           chan struct{}
	stopOnce       sync.Once
}

// Settings groups the tunables of the orchestrator.
type Settings struct {
	BufferSize       int
	SinkTimeout      time.Duration
	LimitMessages    *int
	MaxContentLength int
	DefaultSender    string
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, registry contract.IRegistry,
	store contract.MessageStore, censor contract.Censor, settings Settings) *Orchestrator {
	o := &Orchestrator{
		log:           log,
		supervisor:    supervisor,
		registry:      registry,
		store:         store,
		domainEvents:  make(chan event.DomainEvent, settings.BufferSize),
		sinkTimeout:   settings.SinkTimeout,
		limitMessages: settings.LimitMessages,
		done:          make(chan struct{}),
	}
	o.router = NewRouter(log, store, o, censor, settings.MaxContentLength, settings.DefaultSender)
	return o
}

// Add registers sinks receiving every broadcast (search index, mirror timeline).
// It must be called before Start.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Handle applies a client intent. The mutation is detached from the caller's
// cancellation: a client disconnecting mid-event does not abort the write.
// Unknown record ids are swallowed, validation and store failures are
// returned for logging only, nothing is sent back to the originator.
func (o *Orchestrator) Handle(ctx context.Context, cmd chat.Command) error {
	err := o.router.Handle(context.WithoutCancel(ctx), cmd)
	switch {
	case err == nil:
		return nil
	case goerrors.Is(err, errors.ErrNotFound):
		o.log.Debug("Event ignored, record not found", "event", cmd.Name(), "error", err)
		return nil
	case goerrors.Is(err, errors.ErrValidation):
		o.log.Debug("Event rejected", "event", cmd.Name(), "error", err)
		return err
	default:
		o.log.Error("Event dropped", "event", cmd.Name(), "error", err)
		return err
	}
}

// Publish enqueues canonical records for the fan-out.
// It blocks while the queue is full.
func (o *Orchestrator) Publish(ctx context.Context, p chat.Payload) error {
	return o.enqueue(ctx, event.MessagesChanged{Payload: p})
}

// Join registers a session and requests its history.
// The history is delivered through the fan-out queue, after every broadcast
// enqueued before the join.
func (o *Orchestrator) Join(ctx context.Context, sessionID string, sink contract.EventSink) error {
	o.registry.Subscribe(sessionID, sink)
	if err := o.enqueue(ctx, event.SessionJoined{SessionID: sessionID, Sink: sink}); err != nil {
		o.registry.Unsubscribe(sessionID)
		return err
	}
	o.log.Info("Session joined", "session_id", sessionID, "sessions", o.registry.Count())
	return nil
}

// Leave removes a session, broadcasts in flight may still reach its sink.
func (o *Orchestrator) Leave(sessionID string) {
	o.registry.Unsubscribe(sessionID)
	o.log.Info("Session left", "session_id", sessionID, "sessions", o.registry.Count())
}

// History returns every record ordered by creation time,
// or only the most recent ones when a limit is configured.
func (o *Orchestrator) History(ctx context.Context) ([]chat.Message, error) {
	messages, err := o.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if o.limitMessages != nil && *o.limitMessages >= 0 && len(messages) > *o.limitMessages {
		messages = lo.Subset(messages, -*o.limitMessages, uint(*o.limitMessages))
	}
	return messages, nil
}

// Gauges reports the fan-out queue usage and the number of connected sessions.
func (o *Orchestrator) Gauges() (queueSize, queueCapacity, sessions int) {
	return len(o.domainEvents), cap(o.domainEvents), o.registry.Count()
}

func (o *Orchestrator) enqueue(ctx context.Context, evt event.DomainEvent) error {
	select {
	case <-o.done:
		return errors.ErrOrchestratorStopped
	default:
	}
	select {
	case o.domainEvents <- evt:
		return nil
	case <-o.done:
		return errors.ErrOrchestratorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start registers the fan-out worker and runs the supervisor.
// It blocks until ctx is canceled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	fanout := workers.NewEventFanout(o.log, o.registry, o.domainEvents, o.History, o.sinkTimeout).
		Add(o.permanentSinks...)
	o.supervisor.Add(fanout)
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
}

// Stop initiates a graceful shutdown: publishers are released and the
// supervised workers are canceled.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		o.log.Info("Requesting orchestrator shutdown")
		close(o.done)
		o.supervisor.Stop()
	})
}
