package relay

import (
	"errors"
	"sort"
	"sync"
)

// ErrDuplicateSession is returned when a session id is already registered.
var ErrDuplicateSession = errors.New("session already registered")

// SessionStore is the storage abstraction behind the session registry.
// Implementations need not be safe for concurrent use; the registry
// serializes access.
type SessionStore interface {
	Get(id SessionID) (*StreamSession, bool)
	Put(s *StreamSession)
	Delete(id SessionID)
	List() []*StreamSession
}

// InMemorySessionStore is a map-backed SessionStore.
type InMemorySessionStore struct {
	sessions map[SessionID]*StreamSession
}

// NewInMemorySessionStore returns an empty store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[SessionID]*StreamSession)}
}

// Get implements SessionStore.Get.
func (s *InMemorySessionStore) Get(id SessionID) (*StreamSession, bool) {
	st, ok := s.sessions[id]
	return st, ok
}

// Put implements SessionStore.Put.
func (s *InMemorySessionStore) Put(st *StreamSession) {
	s.sessions[st.ID] = st
}

// Delete implements SessionStore.Delete.
func (s *InMemorySessionStore) Delete(id SessionID) {
	delete(s.sessions, id)
}

// List implements SessionStore.List.
func (s *InMemorySessionStore) List() []*StreamSession {
	out := make([]*StreamSession, 0, len(s.sessions))
	for _, st := range s.sessions {
		out = append(out, st)
	}
	return out
}

// SessionRegistry tracks in-flight relays. It is only read by the
// observability endpoints; relays never consult each other through it.
type SessionRegistry struct {
	mu    sync.RWMutex
	store SessionStore
}

// NewSessionRegistry returns a registry over an in-memory store.
func NewSessionRegistry() *SessionRegistry {
	return NewSessionRegistryWithStore(NewInMemorySessionStore())
}

// NewSessionRegistryWithStore returns a registry over store.
func NewSessionRegistryWithStore(store SessionStore) *SessionRegistry {
	return &SessionRegistry{store: store}
}

// Add registers s.
func (r *SessionRegistry) Add(s *StreamSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store.Get(s.ID); exists {
		return ErrDuplicateSession
	}
	r.store.Put(s)
	return nil
}

// Remove unregisters id. Removing an unknown id is a no-op.
func (r *SessionRegistry) Remove(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store.Delete(id)
}

// Snapshot returns the registered sessions ordered by start time, then id.
func (r *SessionRegistry) Snapshot() []SessionInfo {
	r.mu.RLock()
	sessions := r.store.List()
	r.mu.RUnlock()

	out := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionInfo{
			ID:        s.ID,
			SourceURL: s.SourceURL,
			Platform:  s.Platform,
			Strategy:  s.Strategy,
			StartedAt: s.StartedAt,
			Bytes:     s.Bytes(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ActiveCount returns the number of registered sessions.
func (r *SessionRegistry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.store.List())
}
