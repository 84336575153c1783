package storage

import (
	"fmt"
	"livechat/domain/chat"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Wire layout of a stored message (protobuf encoding, proto3 semantics):
//
//	message Message {
//	  string id = 1;
//	  string text = 2;
//	  string sender = 3;
//	  int64 likes = 4;
//	  repeated string liked_by = 5;
//	  repeated Comment comments = 6;
//	  google.protobuf.Timestamp created_at = 7;
//	}
//	message Comment {
//	  string id = 1;
//	  string text = 2;
//	  google.protobuf.Timestamp created_at = 3;
//	}
const (
	fieldID        protowire.Number = 1
	fieldText      protowire.Number = 2
	fieldSender    protowire.Number = 3
	fieldLikes     protowire.Number = 4
	fieldLikedBy   protowire.Number = 5
	fieldComments  protowire.Number = 6
	fieldCreatedAt protowire.Number = 7

	fieldCommentCreatedAt protowire.Number = 3
)

func marshalMessage(m chat.Message) ([]byte, error) {
	var b []byte
	b = appendString(b, fieldID, m.ID)
	b = appendString(b, fieldText, m.Text)
	b = appendString(b, fieldSender, m.Sender)
	// likes is kept in the document for readers of the raw store, it is recomputed on load
	b = protowire.AppendTag(b, fieldLikes, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Likes()))
	for _, token := range m.LikedBy {
		b = appendString(b, fieldLikedBy, token)
	}
	for _, c := range m.Comments {
		cb, err := marshalComment(c)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fieldComments, protowire.BytesType)
		b = protowire.AppendBytes(b, cb)
	}
	return appendTime(b, fieldCreatedAt, m.CreatedAt)
}

func marshalComment(c chat.Comment) ([]byte, error) {
	var b []byte
	b = appendString(b, fieldID, c.ID)
	b = appendString(b, fieldText, c.Text)
	return appendTime(b, fieldCommentCreatedAt, c.CreatedAt)
}

func unmarshalMessage(b []byte) (chat.Message, error) {
	m := chat.Message{LikedBy: []string{}, Comments: []chat.Comment{}}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, value []byte) error {
		switch {
		case num == fieldID && typ == protowire.BytesType:
			m.ID = string(value)
		case num == fieldText && typ == protowire.BytesType:
			m.Text = string(value)
		case num == fieldSender && typ == protowire.BytesType:
			m.Sender = string(value)
		case num == fieldLikedBy && typ == protowire.BytesType:
			m.LikedBy = append(m.LikedBy, string(value))
		case num == fieldComments && typ == protowire.BytesType:
			c, err := unmarshalComment(value)
			if err != nil {
				return err
			}
			m.Comments = append(m.Comments, c)
		case num == fieldCreatedAt && typ == protowire.BytesType:
			at, err := unmarshalTime(value)
			if err != nil {
				return err
			}
			m.CreatedAt = at
		}
		return nil
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}

func unmarshalComment(b []byte) (chat.Comment, error) {
	var c chat.Comment
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, value []byte) error {
		switch {
		case num == fieldID && typ == protowire.BytesType:
			c.ID = string(value)
		case num == fieldText && typ == protowire.BytesType:
			c.Text = string(value)
		case num == fieldCommentCreatedAt && typ == protowire.BytesType:
			at, err := unmarshalTime(value)
			if err != nil {
				return err
			}
			c.CreatedAt = at
		}
		return nil
	})
	return c, err
}

// walkFields calls fn for every field of b. Length-delimited fields are passed
// with their payload, other wire types with their raw encoding. Unknown fields
// are skipped by the callback simply ignoring them.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, value []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		var value []byte
		if typ == protowire.BytesType {
			value, n = protowire.ConsumeBytes(b)
		} else {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n >= 0 {
				value = b[:n]
			}
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if err := fn(num, typ, value); err != nil {
			return err
		}
	}
	return nil
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendTime(b []byte, num protowire.Number, t time.Time) ([]byte, error) {
	ts, err := proto.Marshal(timestamppb.New(t))
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, ts), nil
}

func unmarshalTime(b []byte) (time.Time, error) {
	var ts timestamppb.Timestamp
	if err := proto.Unmarshal(b, &ts); err != nil {
		return time.Time{}, err
	}
	return ts.AsTime(), nil
}
