package runtime

import (
	"context"
	"fmt"
	"livechat/contract"
	"livechat/domain/chat"
	"livechat/errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Router validates client intents and applies them to the store.
// Mutations of one record are linearized by a per-record lock which is held
// until the canonical record has been handed to the publisher, so that
// broadcasts of a record leave in mutation order.
type Router struct {
	log              *slog.Logger
	store            contract.MessageStore
	publisher        contract.Publisher
	censor           contract.Censor
	locks            *KeyedMutex
	maxContentLength int
	defaultSender    string
	now              func() time.Time
	newID            func() string
}

func NewRouter(log *slog.Logger, store contract.MessageStore, publisher contract.Publisher,
	censor contract.Censor, maxContentLength int, defaultSender string) *Router {
	if defaultSender == "" {
		defaultSender = chat.DefaultSender
	}
	return &Router{
		log:              log,
		store:            store,
		publisher:        publisher,
		censor:           censor,
		locks:            NewKeyedMutex(),
		maxContentLength: maxContentLength,
		defaultSender:    defaultSender,
		now:              func() time.Time { return time.Now().UTC() },
		newID:            uuid.NewString,
	}
}

// Handle dispatches a command to its handler.
func (r *Router) Handle(ctx context.Context, cmd chat.Command) error {
	var err error
	switch c := cmd.(type) {
	case chat.PostMessageCommand:
		_, err = r.PostMessage(ctx, c)
	case chat.ToggleLikeCommand:
		_, err = r.ToggleLike(ctx, c)
	case chat.AddCommentCommand:
		_, err = r.AddComment(ctx, c)
	default:
		err = fmt.Errorf("%w: %T", errors.ErrUnknownEvent, cmd)
	}
	return err
}

// PostMessage creates a new record with no likes and no comments.
func (r *Router) PostMessage(ctx context.Context, cmd chat.PostMessageCommand) (chat.Message, error) {
	text, err := r.cleanText(cmd.Text)
	if err != nil {
		return chat.Message{}, err
	}
	sender := strings.TrimSpace(cmd.Sender)
	if sender == "" {
		sender = r.defaultSender
	}

	created, err := r.store.Create(ctx, chat.Draft{Text: text, Sender: sender, CreatedAt: r.now()})
	if err != nil {
		return chat.Message{}, err
	}

	unlock := r.locks.Lock(created.ID)
	defer unlock()

	r.log.Debug("Message created", "message_id", created.ID, "sender", created.Sender)
	return created, r.publisher.Publish(ctx, chat.Single{Message: created})
}

// ToggleLike adds the token to the liker set when absent, removes it otherwise.
func (r *Router) ToggleLike(ctx context.Context, cmd chat.ToggleLikeCommand) (chat.Message, error) {
	if cmd.MessageID == "" {
		return chat.Message{}, fmt.Errorf("%w: missing message id", errors.ErrValidation)
	}
	if cmd.ClientToken == "" {
		return chat.Message{}, fmt.Errorf("%w: missing client token", errors.ErrValidation)
	}

	return r.mutate(ctx, cmd.MessageID, func(m *chat.Message) {
		liked := m.ToggleLike(cmd.ClientToken)
		r.log.Debug("Like toggled", "message_id", m.ID, "liked", liked, "likes", m.Likes())
	})
}

// AddComment appends a comment with its own identity and timestamp.
func (r *Router) AddComment(ctx context.Context, cmd chat.AddCommentCommand) (chat.Message, error) {
	if cmd.MessageID == "" {
		return chat.Message{}, fmt.Errorf("%w: missing message id", errors.ErrValidation)
	}
	text, err := r.cleanText(cmd.Text)
	if err != nil {
		return chat.Message{}, err
	}

	return r.mutate(ctx, cmd.MessageID, func(m *chat.Message) {
		m.AddComment(chat.Comment{ID: r.newID(), Text: text, CreatedAt: r.now()})
		r.log.Debug("Comment added", "message_id", m.ID, "comments", len(m.Comments))
	})
}

// mutate runs a read-modify-write cycle on one record under its lock.
func (r *Router) mutate(ctx context.Context, id string, apply func(m *chat.Message)) (chat.Message, error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	current, err := r.store.FindByID(ctx, id)
	if err != nil {
		return chat.Message{}, err
	}
	apply(&current)

	updated, err := r.store.Update(ctx, current)
	if err != nil {
		return chat.Message{}, err
	}
	return updated, r.publisher.Publish(ctx, chat.Single{Message: updated})
}

// cleanText trims, checks and censors a user supplied text.
func (r *Router) cleanText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("%w: empty text", errors.ErrValidation)
	}
	if r.maxContentLength > 0 && utf8.RuneCountInString(text) > r.maxContentLength {
		return "", fmt.Errorf("%w: text longer than %d characters", errors.ErrValidation, r.maxContentLength)
	}
	if r.censor == nil {
		return text, nil
	}
	censored, words := r.censor.Censor(text)
	if len(words) > 0 {
		r.log.Info("Text censored", "words", len(words))
	}
	return censored, nil
}
