package storage

import (
	"context"
	"database/sql"
	goerrors "errors"
	"fmt"
	"livechat/domain/chat"
	"livechat/errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	body       BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at, id);
`

// OpenSQLite opens (or creates) the database at path and applies the schema.
// ":memory:" is accepted for tests.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return db, nil
}

// SQLiteMessageRepository is the SQL flavour of the message store.
// Messages are kept in the same protobuf encoding as in BadgerDB, only the
// identity and the creation time are exposed as columns.
type SQLiteMessageRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLiteMessageRepository(db *sql.DB, log *slog.Logger) *SQLiteMessageRepository {
	return &SQLiteMessageRepository{db: db, log: log}
}

func (r *SQLiteMessageRepository) Create(ctx context.Context, draft chat.Draft) (chat.Message, error) {
	message := chat.NewMessage(uuid.NewString(), draft)
	body, err := marshalMessage(message)
	if err != nil {
		return chat.Message{}, storeError(err)
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO messages (id, created_at, body) VALUES (?, ?, ?)",
		message.ID, message.CreatedAt.UnixNano(), body)
	if err != nil {
		return chat.Message{}, storeError(err)
	}
	r.log.Debug("Message stored", "message_id", message.ID)
	return message, nil
}

func (r *SQLiteMessageRepository) FindAll(ctx context.Context) ([]chat.Message, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT body FROM messages ORDER BY created_at, id")
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	messages := []chat.Message{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, storeError(err)
		}
		m, err := unmarshalMessage(body)
		if err != nil {
			return nil, storeError(err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return messages, nil
}

func (r *SQLiteMessageRepository) FindByID(ctx context.Context, id string) (chat.Message, error) {
	var body []byte
	err := r.db.QueryRowContext(ctx, "SELECT body FROM messages WHERE id = ?", id).Scan(&body)
	if goerrors.Is(err, sql.ErrNoRows) {
		return chat.Message{}, fmt.Errorf("%w: %s", errors.ErrNotFound, id)
	}
	if err != nil {
		return chat.Message{}, storeError(err)
	}
	m, err := unmarshalMessage(body)
	if err != nil {
		return chat.Message{}, storeError(err)
	}
	return m, nil
}

// Update rewrites the liker set and the comments, conditional on the row
// still existing. Text, sender and creation time are kept from the stored row.
func (r *SQLiteMessageRepository) Update(ctx context.Context, message chat.Message) (chat.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return chat.Message{}, storeError(err)
	}
	defer tx.Rollback()

	var (
		body      []byte
		createdAt int64
	)
	err = tx.QueryRowContext(ctx, "SELECT body, created_at FROM messages WHERE id = ?", message.ID).Scan(&body, &createdAt)
	if goerrors.Is(err, sql.ErrNoRows) {
		return chat.Message{}, fmt.Errorf("%w: %s", errors.ErrNotFound, message.ID)
	}
	if err != nil {
		return chat.Message{}, storeError(err)
	}

	stored, err := unmarshalMessage(body)
	if err != nil {
		return chat.Message{}, storeError(err)
	}

	updated := message.Clone()
	updated.Text = stored.Text
	updated.Sender = stored.Sender
	updated.CreatedAt = time.Unix(0, createdAt).UTC()
	body, err = marshalMessage(updated)
	if err != nil {
		return chat.Message{}, storeError(err)
	}

	res, err := tx.ExecContext(ctx, "UPDATE messages SET body = ? WHERE id = ?", body, updated.ID)
	if err != nil {
		return chat.Message{}, storeError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return chat.Message{}, storeError(err)
	}
	if affected == 0 {
		return chat.Message{}, fmt.Errorf("%w: %s", errors.ErrNotFound, message.ID)
	}
	if err := tx.Commit(); err != nil {
		return chat.Message{}, storeError(err)
	}
	return updated, nil
}
