package runtime

import (
	"context"
	"fmt"
	"livechat/contract"
	"livechat/domain/chat"
	"livechat/errors"
	"livechat/infrastructure/storage"
	"livechat/mocks"
	"livechat/moderation"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recordingPublisher struct {
	mu       sync.Mutex
	payloads []chat.Payload
}

func (p *recordingPublisher) Publish(_ context.Context, payload chat.Payload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *recordingPublisher) messages() []chat.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var res []chat.Message
	for _, payload := range p.payloads {
		res = append(res, chat.Normalize(payload)...)
	}
	return res
}

func newBadgerRouter(t *testing.T, censor *moderation.Moderator) (*Router, *recordingPublisher) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	publisher := &recordingPublisher{}
	var c contract.Censor
	if censor != nil {
		c = censor
	}
	return NewRouter(log, storage.NewMessageRepository(db, log), publisher, c, 500, ""), publisher
}

func TestRouter_PostMessage_Shape(t *testing.T) {
	req := require.New(t)
	router, publisher := newBadgerRouter(t, nil)
	ctx := context.Background()

	// When two messages are posted
	first, err := router.PostMessage(ctx, chat.PostMessageCommand{Text: "  hi  "})
	req.NoError(err)
	second, err := router.PostMessage(ctx, chat.PostMessageCommand{Text: "hi", Sender: "Bob"})
	req.NoError(err)

	// Then both exist with distinct ids and the default shape
	req.NotEqual(first.ID, second.ID)
	req.Equal("hi", first.Text)
	req.Equal(chat.DefaultSender, first.Sender)
	req.Equal("Bob", second.Sender)
	req.Zero(first.Likes())
	req.Empty(first.LikedBy)
	req.Empty(first.Comments)
	req.False(first.CreatedAt.IsZero())

	// And each canonical record was published once
	req.Equal([]chat.Message{first, second}, publisher.messages())
}

func TestRouter_PostMessage_Rejects_Invalid_Text(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	// No store nor publisher call is expected
	store := mocks.NewMockMessageStore(ctrl)
	publisher := mocks.NewMockPublisher(ctrl)
	router := NewRouter(log, store, publisher, nil, 10, "")

	for _, text := range []string{"", "   \n\t", strings.Repeat("a", 11)} {
		_, err := router.PostMessage(context.Background(), chat.PostMessageCommand{Text: text})
		require.ErrorIs(t, err, errors.ErrValidation, "text=%q", text)
	}
}

func TestRouter_PostMessage_Store_Unavailable(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMessageStore(ctrl)
	publisher := mocks.NewMockPublisher(ctrl)
	router := NewRouter(log, store, publisher, nil, 0, "")

	// Given the store is down
	store.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(chat.Message{}, fmt.Errorf("%w: disk full", errors.ErrStoreUnavailable))

	// Then nothing is published
	_, err := router.PostMessage(context.Background(), chat.PostMessageCommand{Text: "hi"})
	require.ErrorIs(t, err, errors.ErrStoreUnavailable)
}

func TestRouter_PostMessage_Censors_Text(t *testing.T) {
	req := require.New(t)
	mod, err := moderation.NewModerator([]string{"badger"}, '*', logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)
	router, _ := newBadgerRouter(t, mod)

	msg, err := router.PostMessage(context.Background(), chat.PostMessageCommand{Text: "the badger is here"})
	req.NoError(err)
	req.Equal("the ****** is here", msg.Text)
}

func TestRouter_ToggleLike_Is_An_Involution(t *testing.T) {
	req := require.New(t)
	router, publisher := newBadgerRouter(t, nil)
	ctx := context.Background()
	msg, err := router.PostMessage(ctx, chat.PostMessageCommand{Text: "hi"})
	req.NoError(err)

	// When the same token toggles once
	liked, err := router.ToggleLike(ctx, chat.ToggleLikeCommand{MessageID: msg.ID, ClientToken: "A"})
	req.NoError(err)
	req.Equal(1, liked.Likes())
	req.Equal([]string{"A"}, liked.LikedBy)

	// And twice
	unliked, err := router.ToggleLike(ctx, chat.ToggleLikeCommand{MessageID: msg.ID, ClientToken: "A"})
	req.NoError(err)

	// Then the record is back to its initial state
	req.Zero(unliked.Likes())
	req.Empty(unliked.LikedBy)
	req.Len(publisher.messages(), 3)
}

func TestRouter_ToggleLike_Unknown_Record(t *testing.T) {
	req := require.New(t)
	router, publisher := newBadgerRouter(t, nil)

	_, err := router.ToggleLike(context.Background(), chat.ToggleLikeCommand{MessageID: "ghost", ClientToken: "A"})

	req.ErrorIs(err, errors.ErrNotFound)
	req.Empty(publisher.messages())
}

func TestRouter_ToggleLike_Requires_Id_And_Token(t *testing.T) {
	req := require.New(t)
	router, _ := newBadgerRouter(t, nil)
	ctx := context.Background()

	_, err := router.ToggleLike(ctx, chat.ToggleLikeCommand{ClientToken: "A"})
	req.ErrorIs(err, errors.ErrValidation)
	_, err = router.ToggleLike(ctx, chat.ToggleLikeCommand{MessageID: "m1"})
	req.ErrorIs(err, errors.ErrValidation)
}

func TestRouter_Concurrent_Likes_Are_Never_Lost(t *testing.T) {
	req := require.New(t)
	router, publisher := newBadgerRouter(t, nil)
	ctx := context.Background()
	msg, err := router.PostMessage(ctx, chat.PostMessageCommand{Text: "hi"})
	req.NoError(err)

	// When many distinct tokens like the record at the same time
	const clients = 50
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := router.ToggleLike(ctx, chat.ToggleLikeCommand{
				MessageID:   msg.ID,
				ClientToken: fmt.Sprintf("token-%d", i),
			})
			req.NoError(err)
		}()
	}
	wg.Wait()

	// Then every like persisted
	stored, err := router.store.FindByID(ctx, msg.ID)
	req.NoError(err)
	req.Equal(clients, stored.Likes())

	// And broadcasts left in mutation order, each one adding a like
	published := publisher.messages()[1:]
	req.Len(published, clients)
	for i, m := range published {
		req.Equal(i+1, m.Likes())
	}
}

func TestRouter_AddComment(t *testing.T) {
	req := require.New(t)
	router, _ := newBadgerRouter(t, nil)
	ctx := context.Background()
	msg, err := router.PostMessage(ctx, chat.PostMessageCommand{Text: "hi"})
	req.NoError(err)

	// When two comments are added
	_, err = router.AddComment(ctx, chat.AddCommentCommand{MessageID: msg.ID, Text: "first"})
	req.NoError(err)
	updated, err := router.AddComment(ctx, chat.AddCommentCommand{MessageID: msg.ID, Text: " second "})
	req.NoError(err)

	// Then they are kept in insertion order, each with its own identity
	req.Len(updated.Comments, 2)
	req.Equal("first", updated.Comments[0].Text)
	req.Equal("second", updated.Comments[1].Text)
	req.NotEmpty(updated.Comments[0].ID)
	req.NotEqual(updated.Comments[0].ID, updated.Comments[1].ID)
	req.False(updated.Comments[1].CreatedAt.Before(updated.Comments[0].CreatedAt))
}

func TestRouter_AddComment_Empty_Text_Leaves_List_Unchanged(t *testing.T) {
	req := require.New(t)
	router, publisher := newBadgerRouter(t, nil)
	ctx := context.Background()
	msg, err := router.PostMessage(ctx, chat.PostMessageCommand{Text: "hi"})
	req.NoError(err)

	// When an empty comment is sent
	_, err = router.AddComment(ctx, chat.AddCommentCommand{MessageID: msg.ID, Text: "   "})

	// Then it is rejected
	req.ErrorIs(err, errors.ErrValidation)
	stored, err := router.store.FindByID(ctx, msg.ID)
	req.NoError(err)
	req.Empty(stored.Comments)
	// And nothing else was broadcast
	req.Len(publisher.messages(), 1)
}

func TestRouter_AddComment_Unknown_Record(t *testing.T) {
	router, _ := newBadgerRouter(t, nil)
	_, err := router.AddComment(context.Background(), chat.AddCommentCommand{MessageID: "ghost", Text: "hello"})
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRouter_Handle_Unknown_Command(t *testing.T) {
	router, _ := newBadgerRouter(t, nil)
	err := router.Handle(context.Background(), unknownCommand{})
	require.ErrorIs(t, err, errors.ErrUnknownEvent)
}

type unknownCommand struct{}

func (unknownCommand) Name() string { return "unknown" }
