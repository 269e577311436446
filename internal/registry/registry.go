package registry

import "sync"

// Registry tracks which connection, if any, each user is currently reachable
// on. A user has at most one live connection; a new Register for the same user
// replaces the previous entry.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int]string
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{byUser: make(map[int]string)}
}

// Register records connID as the live connection for userID, overwriting any
// existing entry.
func (r *Registry) Register(userID int, connID string) {
	r.mu.Lock()
	r.byUser[userID] = connID
	r.mu.Unlock()
}

// Unregister removes the entry holding connID, matching by value rather than
// by user. When a user reconnects before the old socket's disconnect is
// processed, the stale Unregister finds no matching value and leaves the new
// registration intact. A missing match is a no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	for userID, current := range r.byUser {
		if current == connID {
			delete(r.byUser, userID)
			break
		}
	}
	r.mu.Unlock()
}

// Lookup returns the live connection id for userID, if the user is online.
func (r *Registry) Lookup(userID int) (string, bool) {
	r.mu.RLock()
	connID, ok := r.byUser[userID]
	r.mu.RUnlock()
	return connID, ok
}

// Online reports the number of users with a live connection.
func (r *Registry) Online() int {
	r.mu.RLock()
	n := len(r.byUser)
	r.mu.RUnlock()
	return n
}
