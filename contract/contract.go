//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"livechat/domain/chat"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives canonical records from the fan-out.
// Implementations must not mutate the delivered messages.
type EventSink interface {
	Consume(ctx context.Context, p chat.Payload) error
}

type IRegistry interface {
	Subscribe(sessionID string, sink EventSink)
	Unsubscribe(sessionID string)
	Sinks() []EventSink
	Count() int
}

// MessageStore is the durable CRUD the router relies on.
// FindByID and Update return errors.ErrNotFound for unknown ids,
// any other failure wraps errors.ErrStoreUnavailable.
type MessageStore interface {
	Create(ctx context.Context, draft chat.Draft) (chat.Message, error)
	FindAll(ctx context.Context) ([]chat.Message, error)
	FindByID(ctx context.Context, id string) (chat.Message, error)
	Update(ctx context.Context, message chat.Message) (chat.Message, error)
}

// Publisher hands canonical records over to the fan-out.
type Publisher interface {
	Publish(ctx context.Context, p chat.Payload) error
}

// Censor rewrites forbidden words, returning the words it found.
type Censor interface {
	Censor(original string) (string, []string)
}
