// Package realtime implements the presence, room-membership, and
// message-broadcast subsystem: per-connection identity, room subscriptions,
// app-wide presence broadcasts, and ordered fan-out of messages and typing
// events to room subscribers.
package realtime

import (
	"strings"
	"sync"
	"unicode"

	"github.com/parley-chat/parley/internal/models"
)

// DefaultDisplayName is used when a client connects without a name.
const DefaultDisplayName = "Guest"

// maxDisplayNameLen caps display names at 100 bytes.
const maxDisplayNameLen = 100

// SanitizeDisplayName trims a client-supplied display name, strips control
// characters, and caps the length. Names reach this package from untrusted
// sources (the WebSocket handshake, the HTTP message body) and end up in
// every presence broadcast, so both transports run through it.
func SanitizeDisplayName(name string) string {
	name = strings.TrimSpace(name)

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	if len(name) > maxDisplayNameLen {
		name = name[:maxDisplayNameLen]
	}

	return name
}

// Connection is a registry snapshot entry: one live connection and its
// delivery handle.
type Connection struct {
	ID     string
	Name   string
	Sender Sender
}

// Registry is the authoritative map of live connections. All mutations are
// funneled through the Controller; other components only read via List,
// Connections, or Sender.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Connection
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Connection)}
}

// Register inserts or overwrites the entry for a connection. An empty display
// name is coerced to DefaultDisplayName. Registering twice is not an error.
func (r *Registry) Register(id, name string, sender Sender) {
	if name == "" {
		name = DefaultDisplayName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = Connection{ID: id, Name: name, Sender: sender}
}

// Unregister removes the entry for a connection. Removing an absent id is a
// no-op: disconnect handlers may run more than once.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Has reports whether a connection is currently registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Sender returns the delivery handle for a connection.
func (r *Registry) Sender(id string) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e.Sender, ok
}

// List returns a snapshot of all live connections as presence entries. The
// returned slice is owned by the caller and does not observe later mutations.
func (r *Registry) List() []models.PresenceUser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]models.PresenceUser, 0, len(r.entries))
	for _, e := range r.entries {
		users = append(users, models.PresenceUser{ID: e.ID, Name: e.Name})
	}
	return users
}

// Connections returns a snapshot of all live connections including their
// senders, taken under a single lock so identity and delivery handles are
// consistent with each other.
func (r *Registry) Connections() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Connection, 0, len(r.entries))
	for _, e := range r.entries {
		conns = append(conns, e)
	}
	return conns
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
