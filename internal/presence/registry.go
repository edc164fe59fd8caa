// Package presence tracks which users currently hold a live connection in
// this process. State is ephemeral: after a restart everyone is offline until
// they reconnect.
package presence

import "sync"

// Conn is the minimal handle the registry keeps per user: the ability to push
// a payload and to be closed when replaced.
type Conn interface {
	Send(payload []byte) error
	Close(reason string)
}

// Registry maps a user id to its single live connection. At most one entry
// exists per user; a new connection for the same identity replaces the old
// one (last-connect-wins). Instances are injected, not shared globals, so
// tests can run independent registries.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register stores conn as the live connection for userID, returning the
// replaced connection if one existed. The caller is expected to close the
// replaced handle; delivery to it is not guaranteed from this point on.
func (r *Registry) Register(userID string, conn Conn) (replaced Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.conns[userID]
	r.conns[userID] = conn
	if prev == conn {
		return nil
	}
	return prev
}

// Unregister removes the entry for userID only while it still points at this
// exact connection. A disconnect for a connection that has already been
// replaced leaves the newer registration untouched.
func (r *Registry) Unregister(userID string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.conns[userID]; ok && current == conn {
		delete(r.conns, userID)
		return true
	}
	return false
}

// Lookup returns the live connection for userID, if any.
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[userID]
	return conn, ok
}

// Online reports whether userID has a live connection.
func (r *Registry) Online(userID string) bool {
	_, ok := r.Lookup(userID)
	return ok
}
