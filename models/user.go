package models

import "time"

// User is an approved participant, keyed by Telegram ID.
type User struct {
	TelegramID int64     `json:"telegram_id"`
	FullName   string    `json:"full_name"`
	Username   string    `json:"username"`
	Notify     bool      `json:"notify"`
	ApprovedAt time.Time `json:"approved_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// PendingUser is a registration waiting for admin review.
type PendingUser struct {
	TelegramID  int64     `json:"telegram_id"`
	FullName    string    `json:"full_name"`
	Username    string    `json:"username"`
	RequestedAt time.Time `json:"requested_at"`
}

// AuditEntry is one append-only line of the action log.
type AuditEntry struct {
	ID        int       `json:"id"`
	UserID    int64     `json:"user_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AdminSession is a password-authenticated admin console session.
type AdminSession struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
