package identity

import (
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sessionEntry struct {
	identity  Identity
	expiresAt time.Time
}

// sessionRegistry tracks issued, unrevoked sessions by token id.
type sessionRegistry struct {
	mu   sync.RWMutex
	data map[string]sessionEntry
	now  func() time.Time
}

func newSessionRegistry(now func() time.Time) *sessionRegistry {
	return &sessionRegistry{data: make(map[string]sessionEntry), now: now}
}

func (r *sessionRegistry) Set(id string, ident Identity, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[id] = sessionEntry{identity: ident, expiresAt: expiresAt}
}

// Get returns the identity bound to a live session.
func (r *sessionRegistry) Get(id string) (Identity, bool) {
	r.mu.RLock()
	e, ok := r.data[id]
	r.mu.RUnlock()
	if !ok {
		return Identity{}, false
	}
	if r.now().After(e.expiresAt) {
		r.Revoke(id)
		return Identity{}, false
	}
	return e.identity, true
}

// Revoke removes a session and reports whether it was live.
func (r *sessionRegistry) Revoke(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.data[id]
	delete(r.data, id)
	return ok
}

// ForIdentity lists the live session ids of an identity.
func (r *sessionRegistry) ForIdentity(identityID primitive.ObjectID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	now := r.now()
	for id, e := range r.data {
		if e.identity.ID == identityID && !now.After(e.expiresAt) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Rebind replaces the identity snapshot of a live session.
func (r *sessionRegistry) Rebind(id string, ident Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.data[id]
	if !ok {
		return false
	}
	e.identity = ident
	r.data[id] = e
	return true
}

// Sweep drops expired sessions and returns their ids.
func (r *sessionRegistry) Sweep() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []string
	now := r.now()
	for id, e := range r.data {
		if now.After(e.expiresAt) {
			delete(r.data, id)
			expired = append(expired, id)
		}
	}
	return expired
}
