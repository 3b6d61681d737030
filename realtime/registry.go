// Package realtime is the messaging and presence coordination core: it maps
// identities to live connections, tracks who is joined where, and fans typed
// events out to exactly the right connections.
package realtime

import (
	"log/slog"
	"sync"

	"chat-hive/contract"
)

// Registry maps a user identity to its current live connection handle.
// At most one handle per identity: a new registration for the same identity
// replaces the prior entry, last-connected-wins.
type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	sessions map[string]contract.EventSink
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:      log,
		sessions: make(map[string]contract.EventSink),
	}
}

func (r *Registry) Register(userID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[userID]; ok {
		r.log.Debug("Replacing live connection", "user_id", userID)
	}
	r.sessions[userID] = sink
}

// Unregister removes the mapping only if it still points at the caller's
// sink. A stale disconnect arriving after a reconnection must not evict the
// newer handle.
func (r *Registry) Unregister(userID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[userID]; ok && current == sink {
		delete(r.sessions, userID)
	}
}

func (r *Registry) Lookup(userID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sink, ok := r.sessions[userID]
	return sink, ok
}

// Resolve returns the live handle for each identity that currently has one.
// Identities with no live connection are silently skipped: they are offline.
func (r *Registry) Resolve(userIDs []string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for _, id := range userIDs {
		if sink, ok := r.sessions[id]; ok {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// Known returns every identity with a live connection.
func (r *Registry) Known() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
