package sink

import (
	"context"
	"livechat/domain/chat"
	"livechat/errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestSessionSink_Delivers_In_Order(t *testing.T) {
	req := require.New(t)
	s := NewSessionSink(logs.GetLoggerFromLevel(slog.LevelDebug), "s1", 2)

	first := chat.Single{Message: chat.Message{ID: "1"}}
	second := chat.Batch{Messages: []chat.Message{{ID: "2"}}}
	req.NoError(s.Consume(context.Background(), first))
	req.NoError(s.Consume(context.Background(), second))

	req.Equal(first, <-s.Events())
	req.Equal(second, <-s.Events())
}

func TestSessionSink_Full_Queue_Marks_Session_As_Lagging(t *testing.T) {
	req := require.New(t)
	s := NewSessionSink(logs.GetLoggerFromLevel(slog.LevelDebug), "s1", 1)

	// Given a full queue nobody drains
	req.NoError(s.Consume(context.Background(), chat.Single{}))

	// When the next delivery misses its deadline
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := s.Consume(ctx, chat.Single{})

	// Then the session is lagging
	req.ErrorIs(err, errors.ErrSessionLagging)
	select {
	case <-s.Lagged():
	default:
		req.Fail("lagged signal should be closed")
	}

	// And later deliveries are refused right away, even with room in the queue
	<-s.Events()
	req.ErrorIs(s.Consume(context.Background(), chat.Single{}), errors.ErrSessionLagging)
}

func TestSessionSink_Expired_Context_With_Room_Still_Delivers(t *testing.T) {
	req := require.New(t)
	s := NewSessionSink(logs.GetLoggerFromLevel(slog.LevelDebug), "s1", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req.NoError(s.Consume(ctx, chat.Single{}))
	req.Len(s.Events(), 1)
}
