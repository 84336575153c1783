package runtime

import (
	"livechat/contract"
	"sync"
)

// Registry is the set of currently connected sessions.
// It is shared by the orchestrator (join / leave) and the fan-out worker (broadcast).
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.EventSink // map session -> Sink
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]contract.EventSink)}
}

// Subscribe registers the connection of a session.
// Subscribing an already known session replaces its sink.
func (r *Registry) Subscribe(sessionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = sink
}

func (r *Registry) Unsubscribe(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Sinks returns a snapshot of the active sinks.
// Sessions may join or leave while the caller iterates over it.
func (r *Registry) Sinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, sink := range r.sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
