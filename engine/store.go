package engine

import "sync"

// SessionStore maps each user to at most one active session. The store mutex
// guards only the map; per-session state has its own lock, so sessions for
// different users never block each other.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]*Session),
	}
}

// Put stores the session unless the user already has one.
func (st *SessionStore) Put(s *Session) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, exists := st.sessions[s.UserID]; exists {
		return false
	}
	st.sessions[s.UserID] = s
	return true
}

func (st *SessionStore) Get(userID int64) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[userID]
	return s, ok
}

func (st *SessionStore) Delete(userID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, userID)
}

// Len reports the number of in-flight sessions, for admin statistics.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
