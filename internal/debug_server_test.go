package internal

import (
	"context"
	"encoding/json"
	"io"
	"livechat/domain/chat"
	"livechat/infrastructure/storage"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/mux"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestDebugServer(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	_, err = storage.NewMessageRepository(db, log).
		Create(context.Background(), chat.Draft{Text: "hello badger", Sender: "Alice", CreatedAt: time.Now().UTC()})
	req.NoError(err)

	r := mux.NewRouter()
	NewDebugServer(log, db, nil, func() any { return map[string]int{"sessions": 2} }).Register(r)
	server := httptest.NewServer(r)
	defer server.Close()

	// The inspector lists messages by default
	resp, err := http.Get(server.URL + "/debug/inspect")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	req.NoError(err)
	req.Contains(string(body), "Alice: hello badger")

	// The stats are JSON
	resp, err = http.Get(server.URL + "/debug/stats")
	req.NoError(err)
	defer resp.Body.Close()
	var stats map[string]int
	req.NoError(json.NewDecoder(resp.Body).Decode(&stats))
	req.Equal(2, stats["sessions"])
}

func TestDebugServer_Without_Badger(t *testing.T) {
	r := mux.NewRouter()
	NewDebugServer(logs.GetLoggerFromLevel(slog.LevelDebug), nil, nil, nil).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/inspect", nil))

	require.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestDefaultMapper(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	row := DefaultMapper(storage.Entry{
		Key:     "msg:1:abcdefghijkl",
		Kind:    storage.KindMessage,
		Message: chat.Message{ID: "abcdefghijkl", Text: "hi", Sender: "Bob", LikedBy: []string{"a"}, CreatedAt: at},
	})

	req.Equal("10:30:00", row.Timestamp)
	req.Equal("abcdefgh", row.EntityID)
	req.Equal("Bob: hi (1 likes, 0 comments)", row.Detail)
	req.Equal("-> msg:1:x", DefaultMapper(storage.Entry{Kind: storage.KindIndex, Target: "msg:1:x"}).Detail)
}
