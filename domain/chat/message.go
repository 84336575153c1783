// Package chat contains the core concepts of the group chat.
// A Message is created once and afterwards only its liker set and its
// comment list change. Messages are never deleted.
package chat

import (
	"slices"
	"time"
)

const DefaultSender = "Anonymous"

// Message is the canonical record pushed to every client.
type Message struct {
	ID        string
	Text      string
	Sender    string
	LikedBy   []string // unique client tokens
	Comments  []Comment
	CreatedAt time.Time
}

// Comment is appended to a message, never edited.
type Comment struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// Draft carries the fields of a message that does not have an identity yet.
// The store assigns the ID on creation.
type Draft struct {
	Text      string
	Sender    string
	CreatedAt time.Time
}

// Likes is derived from the liker set, it is never stored independently.
func (m Message) Likes() int {
	return len(m.LikedBy)
}

func (m Message) HasLiked(token string) bool {
	return slices.Contains(m.LikedBy, token)
}

// ToggleLike removes the token from the liker set if present, adds it otherwise.
// It returns true when the token ends in the "liked" state.
func (m *Message) ToggleLike(token string) bool {
	if i := slices.Index(m.LikedBy, token); i >= 0 {
		m.LikedBy = slices.Delete(slices.Clone(m.LikedBy), i, i+1)
		return false
	}
	m.LikedBy = append(slices.Clone(m.LikedBy), token)
	return true
}

func (m *Message) AddComment(c Comment) {
	m.Comments = append(slices.Clone(m.Comments), c)
}

// Clone returns a deep copy, slices included.
func (m Message) Clone() Message {
	m.LikedBy = slices.Clone(m.LikedBy)
	m.Comments = slices.Clone(m.Comments)
	return m
}

// NewMessage builds a fresh record from a draft and the identity assigned by a store.
func NewMessage(id string, d Draft) Message {
	sender := d.Sender
	if sender == "" {
		sender = DefaultSender
	}
	return Message{
		ID:        id,
		Text:      d.Text,
		Sender:    sender,
		LikedBy:   []string{},
		Comments:  []Comment{},
		CreatedAt: d.CreatedAt,
	}
}
