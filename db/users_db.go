package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/frontendlab/testbot/models"
	"github.com/frontendlab/testbot/utils"
)

// CreatePendingUser records a registration request. Re-registering while
// already pending just refreshes the stored name.
func (db *DB) CreatePendingUser(telegramID int64, fullName, username string) error {
	utils.LogDB("Registering pending user %d (%s)", telegramID, fullName)

	_, err := db.Exec(`
        INSERT INTO pending_users (telegram_id, full_name, username, requested_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(telegram_id) DO UPDATE SET full_name = excluded.full_name, username = excluded.username
    `, telegramID, fullName, username, time.Now())
	if err != nil {
		utils.LogError("CreatePendingUser(%d) failed: %v", telegramID, err)
	}
	return err
}

func (db *DB) GetPendingUser(telegramID int64) (*models.PendingUser, error) {
	var p models.PendingUser
	err := db.QueryRow(`
        SELECT telegram_id, full_name, username, requested_at
        FROM pending_users WHERE telegram_id = ?
    `, telegramID).Scan(&p.TelegramID, &p.FullName, &p.Username, &p.RequestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		utils.LogError("GetPendingUser(%d) failed: %v", telegramID, err)
		return nil, err
	}
	return &p, nil
}

func (db *DB) ListPendingUsers() ([]models.PendingUser, error) {
	rows, err := db.Query(`
        SELECT telegram_id, full_name, username, requested_at
        FROM pending_users ORDER BY requested_at
    `)
	if err != nil {
		utils.LogError("ListPendingUsers failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	var pending []models.PendingUser
	for rows.Next() {
		var p models.PendingUser
		if err := rows.Scan(&p.TelegramID, &p.FullName, &p.Username, &p.RequestedAt); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// ApproveUser moves a pending registration into the users table. Both steps
// happen in one transaction so a crash cannot leave the user in both tables.
func (db *DB) ApproveUser(telegramID int64) (*models.User, error) {
	utils.LogDB("Approving user %d", telegramID)

	pending, err := db.GetPendingUser(telegramID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, fmt.Errorf("no pending registration for user %d", telegramID)
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.Exec(`
        INSERT INTO users (telegram_id, full_name, username, notify, approved_at)
        VALUES (?, ?, ?, 1, ?)
    `, pending.TelegramID, pending.FullName, pending.Username, now)
	if err != nil {
		utils.LogError("ApproveUser(%d) insert failed: %v", telegramID, err)
		return nil, err
	}

	if _, err = tx.Exec("DELETE FROM pending_users WHERE telegram_id = ?", telegramID); err != nil {
		utils.LogError("ApproveUser(%d) cleanup failed: %v", telegramID, err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &models.User{
		TelegramID: pending.TelegramID,
		FullName:   pending.FullName,
		Username:   pending.Username,
		Notify:     true,
		ApprovedAt: now,
	}, nil
}

// RejectUser drops a pending registration.
func (db *DB) RejectUser(telegramID int64) error {
	utils.LogDB("Rejecting user %d", telegramID)

	result, err := db.Exec("DELETE FROM pending_users WHERE telegram_id = ?", telegramID)
	if err != nil {
		utils.LogError("RejectUser(%d) failed: %v", telegramID, err)
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("no pending registration for user %d", telegramID)
	}
	return nil
}

func (db *DB) GetUser(telegramID int64) (*models.User, error) {
	var u models.User
	err := db.QueryRow(`
        SELECT telegram_id, full_name, username, notify, approved_at, created_at
        FROM users WHERE telegram_id = ?
    `, telegramID).Scan(&u.TelegramID, &u.FullName, &u.Username, &u.Notify, &u.ApprovedAt, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		utils.LogError("GetUser(%d) failed: %v", telegramID, err)
		return nil, err
	}
	return &u, nil
}

// IsApproved reports whether the user has passed admin review.
func (db *DB) IsApproved(telegramID int64) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM users WHERE telegram_id = ?", telegramID).Scan(&count)
	if err != nil {
		utils.LogError("IsApproved(%d) failed: %v", telegramID, err)
		return false, err
	}
	return count > 0, nil
}

func (db *DB) ListUsers() ([]models.User, error) {
	rows, err := db.Query(`
        SELECT telegram_id, full_name, username, notify, approved_at, created_at
        FROM users ORDER BY created_at
    `)
	if err != nil {
		utils.LogError("ListUsers failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		err := rows.Scan(&u.TelegramID, &u.FullName, &u.Username, &u.Notify, &u.ApprovedAt, &u.CreatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListNotifiableUsers returns users who have not muted broadcasts.
func (db *DB) ListNotifiableUsers() ([]models.User, error) {
	rows, err := db.Query(`
        SELECT telegram_id, full_name, username, notify, approved_at, created_at
        FROM users WHERE notify = 1 ORDER BY created_at
    `)
	if err != nil {
		utils.LogError("ListNotifiableUsers failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		err := rows.Scan(&u.TelegramID, &u.FullName, &u.Username, &u.Notify, &u.ApprovedAt, &u.CreatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *DB) CountUsers() (approved, pending int, err error) {
	if err = db.QueryRow("SELECT COUNT(*) FROM users").Scan(&approved); err != nil {
		utils.LogError("CountUsers failed: %v", err)
		return 0, 0, err
	}
	if err = db.QueryRow("SELECT COUNT(*) FROM pending_users").Scan(&pending); err != nil {
		utils.LogError("CountUsers failed: %v", err)
		return 0, 0, err
	}
	return approved, pending, nil
}

// SetNotify toggles broadcast delivery for a user.
func (db *DB) SetNotify(telegramID int64, notify bool) error {
	result, err := db.Exec("UPDATE users SET notify = ? WHERE telegram_id = ?", notify, telegramID)
	if err != nil {
		utils.LogError("SetNotify(%d) failed: %v", telegramID, err)
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("user %d not found", telegramID)
	}
	return nil
}
