package sink

import (
	"context"
	"fmt"
	"livechat/domain/chat"
	"livechat/errors"
	"log/slog"
	"sync"
)

// SessionSink is the bounded outbound queue of one connected session.
// The fan-out pushes payloads in, the session writer drains Events.
// When the queue stays full past the delivery deadline, the session is marked
// as lagging: the writer is expected to close the connection so that the
// client reconnects and re-converges from the full history.
type SessionSink struct {
	sessionID string
	log       *slog.Logger
	events    chan chat.Payload
	lagged    chan struct{}
	once      sync.Once
}

func NewSessionSink(log *slog.Logger, sessionID string, bufferSize int) *SessionSink {
	return &SessionSink{
		sessionID: sessionID,
		log:       log,
		events:    make(chan chat.Payload, bufferSize),
		lagged:    make(chan struct{}),
	}
}

// Consume is called by the fan-out.
// It redirects the payload to the session writer.
func (s *SessionSink) Consume(ctx context.Context, p chat.Payload) error {
	select {
	case <-s.lagged:
		return fmt.Errorf("%w: %s", errors.ErrSessionLagging, s.sessionID)
	default:
	}

	select {
	case s.events <- p:
		return nil
	default:
	}

	select {
	case s.events <- p:
		return nil
	case <-ctx.Done():
		s.once.Do(func() {
			s.log.Warn("Session is lagging, dropping it", "session_id", s.sessionID)
			close(s.lagged)
		})
		return fmt.Errorf("%w: %s: %w", errors.ErrSessionLagging, s.sessionID, ctx.Err())
	}
}

// Events is drained by the session writer.
func (s *SessionSink) Events() <-chan chat.Payload {
	return s.events
}

// Lagged is closed once a delivery missed its deadline.
func (s *SessionSink) Lagged() <-chan struct{} {
	return s.lagged
}

func (s *SessionSink) Name() string {
	return "session:" + s.sessionID
}
