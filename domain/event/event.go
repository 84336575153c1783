package event

import (
	"context"
	"livechat/domain/chat"
)

// DomainEvent is what flows through the fan-out queue.
type DomainEvent interface {
	Kind() string
}

// MessagesChanged carries canonical records produced by a successful mutation.
// It is delivered to every connected session and to permanent sinks.
type MessagesChanged struct {
	Payload chat.Payload
}

func (MessagesChanged) Kind() string { return "messages_changed" }

// Sink is the delivery target a SessionJoined event points at.
// Any contract.EventSink satisfies it.
type Sink interface {
	Consume(ctx context.Context, p chat.Payload) error
}

// SessionJoined asks the fan-out to load the history and deliver it
// to a single session, in queue order with the broadcasts.
type SessionJoined struct {
	SessionID string
	Sink      Sink
}

func (SessionJoined) Kind() string { return "session_joined" }
