package presence

import (
	"sort"
	"sync"

	"chatrelay/internal/domain"
)

// Registry maps each identity to at most one live connection and tracks the
// set of all identities ever seen. Absence of a binding means "offline", not
// "unknown": identities stay in the seen-ever set after disconnect.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]domain.Conn
	known map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]domain.Conn),
		known: make(map[string]struct{}),
	}
}

// Register binds identity to conn, replacing any existing binding
// (last-writer-wins). A superseded connection is left open but is no longer
// addressable by identity. A conn re-registering under a different identity
// sheds its old binding first, so one socket never holds two identities.
// The identity joins the seen-ever set permanently.
func (r *Registry) Register(identity string, conn domain.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, bound := range r.conns {
		if bound == conn && id != identity {
			delete(r.conns, id)
		}
	}
	r.conns[identity] = conn
	r.known[identity] = struct{}{}
}

// Unregister removes the binding for conn and returns the freed identity.
// The binding is removed only if it still points at this exact connection,
// so a stale close event cannot unregister a newer session.
func (r *Registry) Unregister(conn domain.Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for identity, bound := range r.conns {
		if bound == conn {
			delete(r.conns, identity)
			return identity, true
		}
	}
	return "", false
}

// LiveConnection returns the current connection for identity, or nil if the
// identity is offline.
func (r *Registry) LiveConnection(identity string) domain.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[identity]
}

// AddKnown records identities in the seen-ever set without binding a
// connection. Backs the sync_known_identities event and snapshot restore.
func (r *Registry) AddKnown(identities ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range identities {
		if id != "" {
			r.known[id] = struct{}{}
		}
	}
}

// OnlineIdentities returns the sorted set of identities with a live connection.
func (r *Registry) OnlineIdentities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AllKnownIdentities returns the sorted seen-ever set.
func (r *Registry) AllKnownIdentities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.known))
	for id := range r.known {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Broadcast sends event to every live connection.
func (r *Registry) Broadcast(event any) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, conn := range r.conns {
		conn.Send(event)
	}
}

// SendTo delivers event to the live connections of the given identities.
// Offline identities are skipped; there is no queueing or retry.
func (r *Registry) SendTo(identities []string, event any) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range identities {
		if conn, ok := r.conns[id]; ok {
			conn.Send(event)
		}
	}
}
