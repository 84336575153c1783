// Package session runs one connected client, whatever the transport.
// A reader goroutine turns inbound envelopes into commands while the writer
// drains the session sink and pushes payloads back.
package session

import (
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"livechat/errors"
	"livechat/infrastructure/wire"
	"livechat/services"
	"livechat/sink"
	"log/slog"

	"github.com/google/uuid"
)

// Conn is a bidirectional envelope stream.
// Send and Recv may be called from different goroutines.
type Conn interface {
	Send(env wire.Envelope) error
	Recv() (wire.Envelope, error)
}

type Pump struct {
	log        *slog.Logger
	service    services.IChatService
	codec      *wire.Codec
	bufferSize int
}

func NewPump(log *slog.Logger, service services.IChatService, bufferSize int) *Pump {
	return &Pump{log: log, service: service, codec: wire.NewCodec(), bufferSize: bufferSize}
}

// Serve blocks until the client goes away, ctx is canceled or the session
// falls behind the broadcasts. The caller closes the underlying connection
// afterwards, which releases the reader.
func (p *Pump) Serve(ctx context.Context, conn Conn) error {
	sessionID := uuid.NewString()
	log := p.log.With("session_id", sessionID)
	out := sink.NewSessionSink(log, sessionID, p.bufferSize)

	if err := p.service.Join(ctx, sessionID, out); err != nil {
		return err
	}
	defer p.service.Leave(sessionID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readErr := make(chan error, 1)
	go func() {
		readErr <- p.read(ctx, log, conn)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if goerrors.Is(err, io.EOF) {
				log.Debug("Client closed the session")
				return nil
			}
			return err
		case <-out.Lagged():
			return fmt.Errorf("%w: %s", errors.ErrSessionLagging, sessionID)
		case payload := <-out.Events():
			env, err := wire.EncodePayload(payload)
			if err != nil {
				log.Error("Unable to encode payload", "error", err)
				continue
			}
			if err := conn.Send(env); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}

func (p *Pump) read(ctx context.Context, log *slog.Logger, conn Conn) error {
	for {
		env, err := conn.Recv()
		if goerrors.Is(err, errors.ErrMalformedFrame) {
			log.Debug("Malformed frame discarded", "error", err)
			continue
		}
		if err != nil {
			return err
		}
		cmd, err := p.codec.DecodeCommand(env)
		if err != nil {
			log.Debug("Inbound event discarded", "event", env.Event, "error", err)
			continue
		}
		// errors are logged by the orchestrator, no acknowledgement goes back
		_ = p.service.Handle(ctx, cmd)
	}
}
