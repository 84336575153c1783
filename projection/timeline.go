// Package projection builds local timelines from observed broadcasts.
// Handles merging by identity and chronological ordering.
// Does not emit events or interact with UI directly.
package projection

import (
	"cmp"
	"context"
	"fmt"
	"livechat/domain/chat"
	"slices"
	"sync"
)

// Timeline is the client side view of the chat.
//
// Every received record fully replaces the local copy with the same id, there
// is no field level merge. The view is ordered by creation time, records
// created at the same instant keep the order in which they were first seen.
// Timeline is safe for concurrent use.
type Timeline struct {
	mu      sync.RWMutex
	owner   string
	entries map[string]entry
	arrival uint64
	view    []chat.Message
}

type entry struct {
	message chat.Message
	arrival uint64
}

// NewTimeline builds an empty timeline for the client identified by owner.
func NewTimeline(owner string) *Timeline {
	return &Timeline{
		owner:   owner,
		entries: make(map[string]entry),
		view:    []chat.Message{},
	}
}

// Apply merges a single record or a batch and returns the resulting view.
// An empty batch leaves the view untouched.
func (t *Timeline) Apply(p chat.Payload) []chat.Message {
	incoming := chat.Normalize(p)

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(incoming) == 0 {
		return slices.Clone(t.view)
	}

	for _, m := range incoming {
		key := m.ID
		if key == "" {
			// no identity, kept as a new local record
			key = fmt.Sprintf("local:%d", t.arrival+1)
		}
		if existing, ok := t.entries[key]; ok {
			t.entries[key] = entry{message: m.Clone(), arrival: existing.arrival}
			continue
		}
		t.arrival++
		t.entries[key] = entry{message: m.Clone(), arrival: t.arrival}
	}
	t.view = t.sorted()
	return slices.Clone(t.view)
}

// Consume lets a timeline mirror the broadcasts of the server.
func (t *Timeline) Consume(_ context.Context, p chat.Payload) error {
	t.Apply(p)
	return nil
}

func (t *Timeline) Name() string { return "timeline" }

func (t *Timeline) sorted() []chat.Message {
	entries := make([]entry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := a.message.CreatedAt.Compare(b.message.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.arrival, b.arrival)
	})

	view := make([]chat.Message, len(entries))
	for i, e := range entries {
		view[i] = e.message
	}
	return view
}

// Messages returns the current view, oldest first.
func (t *Timeline) Messages() []chat.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.view)
}

func (t *Timeline) Get(id string) (chat.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	return e.message, ok
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Owner is the client token the timeline renders for.
func (t *Timeline) Owner() string {
	return t.owner
}

// LikedByOwner reports whether the owning client currently likes the record.
func (t *Timeline) LikedByOwner(id string) bool {
	m, ok := t.Get(id)
	return ok && m.HasLiked(t.owner)
}
