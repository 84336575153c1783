// Package wire is the named-event protocol shared by every transport.
// A frame is an envelope {"event": name, "data": json}.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"livechat/domain/chat"
	"livechat/errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const (
	EventMessage        = "message"
	EventLikeMessage    = "likeMessage"
	EventCommentMessage = "commentMessage"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DecodeEnvelope parses one raw frame.
func DecodeEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", errors.ErrMalformedFrame, err)
	}
	return env, nil
}

// LikeMessage is the data of an inbound "likeMessage" event.
type LikeMessage struct {
	MessageID string `json:"messageId" validate:"required"`
	ClientID  string `json:"clientId" validate:"required"`
}

// CommentMessage is the data of an inbound "commentMessage" event.
type CommentMessage struct {
	MessageID string `json:"messageId" validate:"required"`
	Text      string `json:"text" validate:"required"`
}

// Record is the JSON shape of a message sent to clients.
type Record struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Likes     int       `json:"likes"`
	LikedBy   []string  `json:"likedBy"`
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Codec translates envelopes to commands and payloads, in both directions.
type Codec struct {
	validate *validator.Validate
}

func NewCodec() *Codec {
	return &Codec{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// DecodeCommand turns an inbound envelope into a client intent.
// Malformed data is reported as a validation error.
func (c *Codec) DecodeCommand(env Envelope) (chat.Command, error) {
	switch env.Event {
	case EventMessage:
		var text string
		if err := json.Unmarshal(env.Data, &text); err != nil {
			return nil, fmt.Errorf("%w: message data must be a string: %w", errors.ErrValidation, err)
		}
		return chat.PostMessageCommand{Text: text}, nil
	case EventLikeMessage:
		var like LikeMessage
		if err := c.decodeStruct(env.Data, &like); err != nil {
			return nil, err
		}
		return chat.ToggleLikeCommand{MessageID: like.MessageID, ClientToken: like.ClientID}, nil
	case EventCommentMessage:
		var comment CommentMessage
		if err := c.decodeStruct(env.Data, &comment); err != nil {
			return nil, err
		}
		return chat.AddCommentCommand{MessageID: comment.MessageID, Text: comment.Text}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, env.Event)
	}
}

func (c *Codec) decodeStruct(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrValidation, err)
	}
	if err := c.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrValidation, err)
	}
	return nil
}

// EncodeCommand is the client side counterpart of DecodeCommand.
func EncodeCommand(cmd chat.Command) (Envelope, error) {
	switch c := cmd.(type) {
	case chat.PostMessageCommand:
		return envelope(EventMessage, c.Text)
	case chat.ToggleLikeCommand:
		return envelope(EventLikeMessage, LikeMessage{MessageID: c.MessageID, ClientID: c.ClientToken})
	case chat.AddCommentCommand:
		return envelope(EventCommentMessage, CommentMessage{MessageID: c.MessageID, Text: c.Text})
	default:
		return Envelope{}, fmt.Errorf("%w: %T", errors.ErrUnknownEvent, cmd)
	}
}

// EncodePayload builds the outbound "message" event: one object for a
// single record, an array for a batch.
func EncodePayload(p chat.Payload) (Envelope, error) {
	switch v := p.(type) {
	case chat.Single:
		return envelope(EventMessage, ToRecord(v.Message))
	case chat.Batch:
		return envelope(EventMessage, ToRecords(v.Messages))
	default:
		return Envelope{}, fmt.Errorf("%w: payload %T", errors.ErrUnknownEvent, p)
	}
}

// DecodePayload accepts both shapes of the outbound "message" event.
func DecodePayload(env Envelope) (chat.Payload, error) {
	if env.Event != EventMessage {
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, env.Event)
	}
	data := bytes.TrimLeft(env.Data, " \t\r\n")
	if len(data) > 0 && data[0] == '[' {
		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrValidation, err)
		}
		return chat.Batch{Messages: FromRecords(records)}, nil
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrValidation, err)
	}
	return chat.Single{Message: FromRecord(record)}, nil
}

func envelope(event string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}

func ToRecord(m chat.Message) Record {
	return Record{
		ID:     m.ID,
		Text:   m.Text,
		Sender: m.Sender,
		Likes:  m.Likes(),
		// never null on the wire
		LikedBy: append([]string{}, m.LikedBy...),
		Comments: lo.Map(m.Comments, func(c chat.Comment, _ int) Comment {
			return Comment{ID: c.ID, Text: c.Text, CreatedAt: c.CreatedAt}
		}),
		CreatedAt: m.CreatedAt,
	}
}

func ToRecords(messages []chat.Message) []Record {
	return lo.Map(messages, func(m chat.Message, _ int) Record { return ToRecord(m) })
}

// FromRecord ignores the likes counter, it is derived from the liker set.
func FromRecord(r Record) chat.Message {
	return chat.Message{
		ID:      r.ID,
		Text:    r.Text,
		Sender:  r.Sender,
		LikedBy: append([]string{}, r.LikedBy...),
		Comments: lo.Map(r.Comments, func(c Comment, _ int) chat.Comment {
			return chat.Comment{ID: c.ID, Text: c.Text, CreatedAt: c.CreatedAt}
		}),
		CreatedAt: r.CreatedAt,
	}
}

func FromRecords(records []Record) []chat.Message {
	return lo.Map(records, func(r Record, _ int) chat.Message { return FromRecord(r) })
}
