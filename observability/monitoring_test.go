package observability

import (
	"context"
	"livechat/domain/chat"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestMonitoringManager_Counts_Broadcasts(t *testing.T) {
	req := require.New(t)
	probe := func() (int, int, int) { return 3, 100, 2 }
	mm := NewMonitoringManager(logs.GetLoggerFromLevel(slog.LevelDebug), probe, 10*time.Millisecond)

	// Given a single and a batch of two records
	req.NoError(mm.Consume(context.Background(), chat.Single{Message: chat.Message{ID: "1"}}))
	req.NoError(mm.Consume(context.Background(), chat.Batch{Messages: []chat.Message{{ID: "2"}, {ID: "3"}}}))

	// When the manager refreshes its stats
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mm.Run(ctx) }()

	// Then counters and gauges are exposed
	req.Eventually(func() bool { return !mm.GetLatest().UpdatedAt.IsZero() }, time.Second, 5*time.Millisecond)
	stats := mm.GetLatest()
	req.Equal(uint64(2), stats.Broadcasts)
	req.Equal(uint64(3), stats.RecordsDelivered)
	req.Equal(3, stats.CurrentQueueSize)
	req.Equal(100, stats.MaxCapacity)
	req.Equal(2, stats.Sessions)
	req.Equal(int32(os.Getpid()), stats.Pid)
	req.Positive(stats.Goroutines)

	cancel()
	req.NoError(<-done)
}
