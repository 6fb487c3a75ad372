package chat

import (
	"sync"
)

// Registry is the single source of truth for who is online in this process.
// One entry per user: a second connection for the same user supersedes the
// first, and the superseded socket is returned to the caller to close.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int64]*Client
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[int64]*Client)}
}

// Admit inserts or replaces the session for the client's user. The replaced
// client, if any, is returned so the caller can close it outside the lock.
func (r *Registry) Admit(c *Client) (replaced *Client) {
	if c == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.byUser[c.UserID]
	if prev == c {
		return nil
	}
	r.byUser[c.UserID] = c
	return prev
}

// Evict removes the client's entry, but only when that client is still the
// current holder; a replaced session must not evict its replacement. Returns
// whether an entry was removed.
func (r *Registry) Evict(c *Client) bool {
	if c == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byUser[c.UserID]; ok && cur == c {
		delete(r.byUser, c.UserID)
		return true
	}
	return false
}

// Get returns the live session for a user, if any.
func (r *Registry) Get(userID int64) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// OnlineUserIDs reports the current online set. Entries whose transport has
// closed are pruned first, so the set never contains a dead session.
func (r *Registry) OnlineUserIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, 0, len(r.byUser))
	for uid, c := range r.byUser {
		if c.Closed() {
			delete(r.byUser, uid)
			continue
		}
		out = append(out, uid)
	}
	return out
}

// Snapshot returns the live clients for fan-out iteration. Closed clients may
// still appear; pushes to them are swallowed by Push.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byUser))
	for _, c := range r.byUser {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
