package wire

import (
	"encoding/json"
	"livechat/domain/chat"
	"livechat/errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func fixtures() (chat.Message, chat.Message) {
	liked := chat.Message{
		ID:        "m1",
		Text:      "hi",
		Sender:    "Anonymous",
		LikedBy:   []string{"t1"},
		Comments:  []chat.Comment{{ID: "c1", Text: "nice", CreatedAt: at.Add(5 * time.Second)}},
		CreatedAt: at,
	}
	fresh := chat.NewMessage("m2", chat.Draft{Text: "yo", Sender: "Bob", CreatedAt: at.Add(time.Minute)})
	return liked, fresh
}

func marshal(t *testing.T, p chat.Payload) []byte {
	env, err := EncodePayload(p)
	require.NoError(t, err)
	data, err := json.Marshal(env)
	require.NoError(t, err)
	return data
}

func TestEncodePayload_Golden(t *testing.T) {
	liked, fresh := fixtures()
	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))

	g.Assert(t, "single", marshal(t, chat.Single{Message: liked}))
	g.Assert(t, "batch", marshal(t, chat.Batch{Messages: []chat.Message{liked, fresh}}))
	g.Assert(t, "empty_batch", marshal(t, chat.Batch{}))
}

func TestDecodePayload_Accepts_Both_Shapes(t *testing.T) {
	req := require.New(t)
	liked, fresh := fixtures()

	for _, p := range []chat.Payload{
		chat.Single{Message: liked},
		chat.Batch{Messages: []chat.Message{liked, fresh}},
	} {
		var env Envelope
		req.NoError(json.Unmarshal(marshal(t, p), &env))

		decoded, err := DecodePayload(env)
		req.NoError(err)
		req.Equal(p, decoded)
	}
}

func TestDecodePayload_Ignores_Likes_Counter(t *testing.T) {
	req := require.New(t)
	env := Envelope{Event: EventMessage, Data: json.RawMessage(`{"id":"m1","text":"hi","likes":7,"likedBy":["a"]}`)}

	decoded, err := DecodePayload(env)
	req.NoError(err)
	req.Equal(1, chat.Normalize(decoded)[0].Likes())
}

func TestDecodeCommand(t *testing.T) {
	codec := NewCodec()
	tests := []struct {
		name     string
		env      Envelope
		expected chat.Command
		err      error
	}{
		{
			name:     "Post message",
			env:      Envelope{Event: EventMessage, Data: json.RawMessage(`"hello"`)},
			expected: chat.PostMessageCommand{Text: "hello"},
		},
		{
			name:     "Toggle like",
			env:      Envelope{Event: EventLikeMessage, Data: json.RawMessage(`{"messageId":"m1","clientId":"t1"}`)},
			expected: chat.ToggleLikeCommand{MessageID: "m1", ClientToken: "t1"},
		},
		{
			name:     "Add comment",
			env:      Envelope{Event: EventCommentMessage, Data: json.RawMessage(`{"messageId":"m1","text":"nice"}`)},
			expected: chat.AddCommentCommand{MessageID: "m1", Text: "nice"},
		},
		{
			name: "Message data is not a string",
			env:  Envelope{Event: EventMessage, Data: json.RawMessage(`{"text":"hello"}`)},
			err:  errors.ErrValidation,
		},
		{
			name: "Like without client token",
			env:  Envelope{Event: EventLikeMessage, Data: json.RawMessage(`{"messageId":"m1"}`)},
			err:  errors.ErrValidation,
		},
		{
			name: "Comment without text",
			env:  Envelope{Event: EventCommentMessage, Data: json.RawMessage(`{"messageId":"m1","text":""}`)},
			err:  errors.ErrValidation,
		},
		{
			name: "Unknown event",
			env:  Envelope{Event: "deleteMessage", Data: json.RawMessage(`{}`)},
			err:  errors.ErrUnknownEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := codec.DecodeCommand(tt.env)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, cmd)
		})
	}
}

func TestEncodeCommand_Round_Trips_Through_Codec(t *testing.T) {
	req := require.New(t)
	codec := NewCodec()

	for _, cmd := range []chat.Command{
		chat.PostMessageCommand{Text: "hello"},
		chat.ToggleLikeCommand{MessageID: "m1", ClientToken: "t1"},
		chat.AddCommentCommand{MessageID: "m1", Text: "nice"},
	} {
		env, err := EncodeCommand(cmd)
		req.NoError(err)
		decoded, err := codec.DecodeCommand(env)
		req.NoError(err)
		req.Equal(cmd, decoded)
	}
}
