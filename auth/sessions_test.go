package auth

import (
	"testing"
	"time"

	"github.com/frontendlab/testbot/utils"
)

func newTestStore(t *testing.T, ttl time.Duration) *SessionStore {
	t.Helper()
	hash, err := utils.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return NewSessionStore(hash, ttl)
}

func TestLoginWithCorrectPassword(t *testing.T) {
	store := newTestStore(t, time.Hour)

	if !store.Login(1, "correct-horse") {
		t.Fatal("expected login to succeed")
	}
	if !store.IsAuthenticated(1) {
		t.Error("expected session after login")
	}
}

func TestLoginWithWrongPassword(t *testing.T) {
	store := newTestStore(t, time.Hour)

	if store.Login(1, "battery-staple") {
		t.Fatal("expected login to fail")
	}
	if store.IsAuthenticated(1) {
		t.Error("failed login must not open a session")
	}
}

func TestSessionExpires(t *testing.T) {
	store := newTestStore(t, 20*time.Millisecond)

	if !store.Login(1, "correct-horse") {
		t.Fatal("login failed")
	}

	time.Sleep(40 * time.Millisecond)

	if store.IsAuthenticated(1) {
		t.Error("expected session to expire")
	}
}

func TestLogout(t *testing.T) {
	store := newTestStore(t, time.Hour)

	store.Login(1, "correct-horse")
	store.Logout(1)

	if store.IsAuthenticated(1) {
		t.Error("expected no session after logout")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	store := newTestStore(t, time.Hour)

	store.Login(1, "correct-horse")

	if store.IsAuthenticated(2) {
		t.Error("user 2 never logged in")
	}
}
