package storage

import (
	"context"
	goerrors "errors"
	"fmt"
	"livechat/domain/chat"
	"livechat/errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	messagePrefix = "msg:"
	indexPrefix   = "idx:msg:"
)

// MessageRepository stores messages in BadgerDB.
//
// Primary keys are formatted as "msg:{unix_nano_padded}:{id}" so that a prefix
// scan returns messages in chronological order (19-digit zero padding keeps the
// lexicographical order, the id breaks ties between identical timestamps).
// A secondary key "idx:msg:{id}" points to the primary key.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

func primaryKey(m chat.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", messagePrefix, m.CreatedAt.UnixNano(), m.ID))
}

func indexKey(id string) []byte {
	return []byte(indexPrefix + id)
}

// Create assigns an identity to the draft and persists it in one transaction.
func (r *MessageRepository) Create(ctx context.Context, draft chat.Draft) (chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return chat.Message{}, storeError(err)
	}
	message := chat.NewMessage(uuid.NewString(), draft)
	data, err := marshalMessage(message)
	if err != nil {
		return chat.Message{}, storeError(err)
	}

	key := primaryKey(message)
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(indexKey(message.ID), key)
	})
	if err != nil {
		return chat.Message{}, storeError(err)
	}
	return message, nil
}

// FindAll returns every message, oldest first.
func (r *MessageRepository) FindAll(ctx context.Context) ([]chat.Message, error) {
	messages := []chat.Message{}
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(value []byte) error {
				m, err := unmarshalMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return messages, nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id string) (chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return chat.Message{}, storeError(err)
	}
	var message chat.Message
	err := r.db.View(func(txn *badger.Txn) error {
		_, m, err := r.get(txn, id)
		message = m
		return err
	})
	if err != nil {
		return chat.Message{}, storeError(err)
	}
	return message, nil
}

// Update rewrites the liker set and the comments of an existing message.
// Identity, text, sender and creation time are immutable, the stored ones win.
func (r *MessageRepository) Update(ctx context.Context, message chat.Message) (chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return chat.Message{}, storeError(err)
	}
	var updated chat.Message
	err := r.db.Update(func(txn *badger.Txn) error {
		key, stored, err := r.get(txn, message.ID)
		if err != nil {
			return err
		}
		updated = message.Clone()
		updated.ID = stored.ID
		updated.Text = stored.Text
		updated.Sender = stored.Sender
		updated.CreatedAt = stored.CreatedAt
		data, err := marshalMessage(updated)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return chat.Message{}, storeError(err)
	}
	return updated, nil
}

// get resolves the secondary index and loads the message it points to.
func (r *MessageRepository) get(txn *badger.Txn, id string) ([]byte, chat.Message, error) {
	item, err := txn.Get(indexKey(id))
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return nil, chat.Message{}, fmt.Errorf("%w: %s", errors.ErrNotFound, id)
	}
	if err != nil {
		return nil, chat.Message{}, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return nil, chat.Message{}, err
	}

	item, err = txn.Get(key)
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		r.log.Warn("Dangling message index", "message_id", id)
		return nil, chat.Message{}, fmt.Errorf("%w: %s", errors.ErrNotFound, id)
	}
	if err != nil {
		return nil, chat.Message{}, err
	}

	var message chat.Message
	err = item.Value(func(value []byte) error {
		message, err = unmarshalMessage(value)
		return err
	})
	return key, message, err
}

// storeError keeps ErrNotFound as is and classifies anything else as an unavailable store.
func storeError(err error) error {
	if goerrors.Is(err, errors.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
}
