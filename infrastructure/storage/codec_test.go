package storage

import (
	"livechat/domain/chat"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestCodec_Likes_Are_Recomputed_From_Liker_Set(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m := chat.Message{
		ID:        "m1",
		Text:      "hello",
		Sender:    "Alice",
		LikedBy:   []string{"t1", "t2"},
		Comments:  []chat.Comment{{ID: "c1", Text: "first", CreatedAt: at.Add(time.Second)}},
		CreatedAt: at,
	}
	data, err := marshalMessage(m)
	req.NoError(err)

	// Given a document carrying an inconsistent likes counter
	tampered := protowire.AppendTag(data, fieldLikes, protowire.VarintType)
	tampered = protowire.AppendVarint(tampered, 42)

	// When decoding
	decoded, err := unmarshalMessage(tampered)
	req.NoError(err)

	// Then likes still equals the size of the liker set
	req.Equal(2, decoded.Likes())
	req.Equal(m, decoded)
}

func TestCodec_Skips_Unknown_Fields(t *testing.T) {
	req := require.New(t)
	data, err := marshalMessage(chat.Message{ID: "m1", Text: "hello", Sender: "Bob"})
	req.NoError(err)

	data = protowire.AppendTag(data, 99, protowire.BytesType)
	data = protowire.AppendString(data, "from a newer writer")

	decoded, err := unmarshalMessage(data)
	req.NoError(err)
	req.Equal("hello", decoded.Text)
}

func TestCodec_Rejects_Truncated_Input(t *testing.T) {
	data, err := marshalMessage(chat.Message{ID: "m1", Text: "hello"})
	require.NoError(t, err)

	_, err = unmarshalMessage(data[:len(data)-3])
	require.Error(t, err)
}
