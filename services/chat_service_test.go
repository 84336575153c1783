package services

import (
	"context"
	"fmt"
	"livechat/domain/chat"
	"livechat/domain/search"
	"livechat/errors"
	"livechat/mocks"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestChatService_Search(t *testing.T) {
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	unavailable := fmt.Errorf("%w: disk full", errors.ErrStoreUnavailable)

	tests := []struct {
		description string
		setup       func(store *mocks.MockMessageStore, searcher *mocks.MockSearcher)
		expected    []string
		err         error
	}{
		{
			"Should resolve hits against the store, keeping the index order",
			func(store *mocks.MockMessageStore, searcher *mocks.MockSearcher) {
				searcher.EXPECT().Search(ctx, gomock.Any()).Return([]string{"b", "a"}, nil)
				store.EXPECT().FindByID(ctx, "b").Return(chat.Message{ID: "b"}, nil)
				store.EXPECT().FindByID(ctx, "a").Return(chat.Message{ID: "a"}, nil)
			},
			[]string{"b", "a"},
			nil,
		},
		{
			"Should skip hits the store does not know",
			func(store *mocks.MockMessageStore, searcher *mocks.MockSearcher) {
				searcher.EXPECT().Search(ctx, gomock.Any()).Return([]string{"ghost", "a"}, nil)
				store.EXPECT().FindByID(ctx, "ghost").Return(chat.Message{}, errors.ErrNotFound)
				store.EXPECT().FindByID(ctx, "a").Return(chat.Message{ID: "a"}, nil)
			},
			[]string{"a"},
			nil,
		},
		{
			"Should fail when the store is unavailable",
			func(store *mocks.MockMessageStore, searcher *mocks.MockSearcher) {
				searcher.EXPECT().Search(ctx, gomock.Any()).Return([]string{"a"}, nil)
				store.EXPECT().FindByID(ctx, "a").Return(chat.Message{}, unavailable)
			},
			nil,
			errors.ErrStoreUnavailable,
		},
		{
			"Should return an empty result without hits",
			func(_ *mocks.MockMessageStore, searcher *mocks.MockSearcher) {
				searcher.EXPECT().Search(ctx, gomock.Any()).Return(nil, nil)
			},
			[]string{},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)
			ctrl := gomock.NewController(t)
			store := mocks.NewMockMessageStore(ctrl)
			searcher := mocks.NewMockSearcher(ctrl)
			tt.setup(store, searcher)
			service := NewChatService(log, nil, store, searcher)

			messages, err := service.Search(ctx, "hello --lang en")
			if tt.err != nil {
				req.ErrorIs(err, tt.err)
				return
			}
			req.NoError(err)
			ids := make([]string, 0, len(messages))
			for _, m := range messages {
				ids = append(ids, m.ID)
			}
			req.Equal(tt.expected, ids)
		})
	}
}

func TestChatService_Search_Parses_Query(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	searcher := mocks.NewMockSearcher(ctrl)
	service := NewChatService(logs.GetLoggerFromLevel(slog.LevelDebug), nil, mocks.NewMockMessageStore(ctrl), searcher)

	searcher.EXPECT().Search(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, q search.Query) ([]string, error) {
		require.Equal(t, "badger", q.Terms)
		require.Equal(t, "fr", q.Lang)
		require.Equal(t, 5, q.Limit)
		return nil, nil
	})

	_, err := service.Search(ctx, "badger --lang fr --limit 5")
	require.NoError(t, err)
}
