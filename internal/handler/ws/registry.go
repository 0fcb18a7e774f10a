package ws

import (
	"sort"
	"sync"
)

// Registry owns all live sessions, their subscription sets, and the
// user-to-sessions index. Every mutation happens under one lock so timer
// callbacks and inbound-message handlers never observe a half-updated view.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	subs     map[string]map[string]struct{} // session id -> symbol set
	byUser   map[string]map[string]struct{} // user id -> session id set
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		subs:     make(map[string]map[string]struct{}),
		byUser:   make(map[string]map[string]struct{}),
	}
}

// Add registers a freshly opened session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.subs[s.ID] = make(map[string]struct{})
	r.mu.Unlock()
}

// Remove drops the session from every index: its subscription set and its
// slot in the user index, eagerly deleting the user entry when this was the
// user's last session. Returns the removed session, or nil if unknown.
//
// The caller stops the session's broadcast task after Remove returns; the
// task itself re-checks membership before sending, so the removal
// happening-before cancellation keeps a stale fire harmless.
func (r *Registry) Remove(id string) *Session {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.sessions, id)
	delete(r.subs, id)
	if user := s.UserID(); user != "" {
		if set, ok := r.byUser[user]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(r.byUser, user)
			}
		}
	}
	r.mu.Unlock()
	return s
}

// Bind records a successful authentication, indexing the session under its
// user. Binding an already-bound session is a no-op (no duplicate entries).
func (r *Registry) Bind(id, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	if !s.setUser(userID) {
		return false
	}
	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[string]struct{})
		r.byUser[userID] = set
	}
	set[id] = struct{}{}
	return true
}

// Subscribe adds already-normalized symbols to a session's set. Idempotent.
// Returns the resulting sorted symbol list.
func (r *Registry) Subscribe(id string, symbols []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subs[id]
	if !ok {
		return nil
	}
	for _, sym := range symbols {
		set[sym] = struct{}{}
	}
	return sortedSymbols(set)
}

// Unsubscribe removes symbols from a session's set. Unknown symbols are a
// no-op. Returns the resulting sorted symbol list.
func (r *Registry) Unsubscribe(id string, symbols []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subs[id]
	if !ok {
		return nil
	}
	for _, sym := range symbols {
		delete(set, sym)
	}
	return sortedSymbols(set)
}

// Has reports whether the session is still registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// SymbolsFor returns a point-in-time snapshot of a session's symbol set.
func (r *Registry) SymbolsFor(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.subs[id]
	if !ok {
		return nil
	}
	return sortedSymbols(set)
}

// SessionsFor returns the ids of a user's live sessions.
func (r *Registry) SessionsFor(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func sortedSymbols(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for sym := range set {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
