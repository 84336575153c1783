//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	goerrors "errors"
	"livechat/contract"
	"livechat/domain/chat"
	"livechat/domain/search"
	"livechat/errors"
	"livechat/runtime"
	"log/slog"
)

// IChatService is what every transport talks to.
type IChatService interface {
	Handle(ctx context.Context, cmd chat.Command) error
	Join(ctx context.Context, sessionID string, sink contract.EventSink) error
	Leave(sessionID string)
	History(ctx context.Context) ([]chat.Message, error)
	Search(ctx context.Context, input string) ([]chat.Message, error)
}

// Searcher returns the ids of the records matching a query, best match first.
type Searcher interface {
	Search(ctx context.Context, q search.Query) ([]string, error)
}

type ChatService struct {
	orchestrator *runtime.Orchestrator
	store        contract.MessageStore
	searcher     Searcher
	log          *slog.Logger
}

func NewChatService(log *slog.Logger, o *runtime.Orchestrator, store contract.MessageStore, searcher Searcher) *ChatService {
	return &ChatService{orchestrator: o, store: store, searcher: searcher, log: log}
}

func (s *ChatService) Handle(ctx context.Context, cmd chat.Command) error {
	return s.orchestrator.Handle(ctx, cmd)
}

func (s *ChatService) Join(ctx context.Context, sessionID string, sink contract.EventSink) error {
	return s.orchestrator.Join(ctx, sessionID, sink)
}

func (s *ChatService) Leave(sessionID string) {
	s.orchestrator.Leave(sessionID)
}

func (s *ChatService) History(ctx context.Context) ([]chat.Message, error) {
	return s.orchestrator.History(ctx)
}

// Search resolves the index hits against the store, so that callers always
// get the canonical records. Hits the store no longer knows are skipped.
func (s *ChatService) Search(ctx context.Context, input string) ([]chat.Message, error) {
	query := search.NewSearchQuery(input)
	ids, err := s.searcher.Search(ctx, *query)
	if err != nil {
		return nil, err
	}
	messages := make([]chat.Message, 0, len(ids))
	for _, id := range ids {
		message, err := s.store.FindByID(ctx, id)
		if goerrors.Is(err, errors.ErrNotFound) {
			s.log.Warn("Indexed message is missing from the store", "message_id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}
