package sink

import (
	"context"
	"livechat/domain/chat"
	"log/slog"
)

// Indexer is implemented by the full-text index.
type Indexer interface {
	Index(ctx context.Context, messages ...chat.Message) error
}

// SearchSink keeps the full-text index in step with broadcasts.
// A record is reindexed as a whole every time it changes.
type SearchSink struct {
	indexer Indexer
	log     *slog.Logger
}

func NewSearchSink(indexer Indexer, log *slog.Logger) *SearchSink {
	return &SearchSink{indexer: indexer, log: log}
}

func (s *SearchSink) Consume(ctx context.Context, p chat.Payload) error {
	messages := chat.Normalize(p)
	if err := s.indexer.Index(ctx, messages...); err != nil {
		s.log.Warn("Failed to index messages", "count", len(messages), "error", err)
		return err
	}
	return nil
}

func (s *SearchSink) Name() string { return "search" }
