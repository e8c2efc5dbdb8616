package auth

import (
	"sync"
	"time"

	"github.com/frontendlab/testbot/models"
	"github.com/frontendlab/testbot/utils"
)

// SessionStore holds password-authenticated admin console sessions in
// memory. A restart logs every admin out, which is acceptable for a bot
// with a single admin.
type SessionStore struct {
	sessions map[int64]*models.AdminSession
	ttl      time.Duration
	hash     string
	mutex    sync.RWMutex
}

func NewSessionStore(passwordHash string, ttl time.Duration) *SessionStore {
	store := &SessionStore{
		sessions: make(map[int64]*models.AdminSession),
		ttl:      ttl,
		hash:     passwordHash,
	}

	// Start a cleanup goroutine
	go store.cleanupExpiredSessions()

	return store
}

// Login verifies the admin password and opens a session for the user.
// Returns false on a wrong password.
func (s *SessionStore) Login(userID int64, password string) bool {
	if !utils.CheckPassword(s.hash, password) {
		utils.LogWarn("Failed admin login attempt from user %d", userID)
		return false
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	s.sessions[userID] = &models.AdminSession{
		Token:     utils.GenerateSessionToken(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	utils.LogInfo("Admin session opened for user %d", userID)
	return true
}

// IsAuthenticated reports whether the user holds a live admin session and
// slides its expiry forward on use.
func (s *SessionStore) IsAuthenticated(userID int64) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	session, exists := s.sessions[userID]
	if !exists {
		return false
	}

	if time.Now().After(session.ExpiresAt) {
		delete(s.sessions, userID)
		return false
	}

	session.ExpiresAt = time.Now().Add(s.ttl)
	return true
}

func (s *SessionStore) Logout(userID int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.sessions, userID)
}

func (s *SessionStore) cleanupExpiredSessions() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.mutex.Lock()
		now := time.Now()
		cleaned := 0
		for id, session := range s.sessions {
			if now.After(session.ExpiresAt) {
				delete(s.sessions, id)
				cleaned++
			}
		}
		if cleaned > 0 {
			utils.LogInfo("Cleaned up %d expired admin sessions", cleaned)
		}
		s.mutex.Unlock()
	}
}
