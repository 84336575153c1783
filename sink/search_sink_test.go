package sink

import (
	"context"
	"fmt"
	"livechat/domain/chat"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fakeIndexer struct {
	indexed []chat.Message
	err     error
}

func (f *fakeIndexer) Index(_ context.Context, messages ...chat.Message) error {
	f.indexed = append(f.indexed, messages...)
	return f.err
}

func TestSearchSink_Indexes_Single_And_Batch(t *testing.T) {
	req := require.New(t)
	indexer := &fakeIndexer{}
	s := NewSearchSink(indexer, logs.GetLoggerFromLevel(slog.LevelDebug))

	req.NoError(s.Consume(context.Background(), chat.Single{Message: chat.Message{ID: "1"}}))
	req.NoError(s.Consume(context.Background(), chat.Batch{Messages: []chat.Message{{ID: "2"}, {ID: "3"}}}))

	req.Len(indexer.indexed, 3)
}

func TestSearchSink_Reports_Index_Failure(t *testing.T) {
	indexer := &fakeIndexer{err: fmt.Errorf("index closed")}
	s := NewSearchSink(indexer, logs.GetLoggerFromLevel(slog.LevelDebug))

	require.Error(t, s.Consume(context.Background(), chat.Single{Message: chat.Message{ID: "1"}}))
}
