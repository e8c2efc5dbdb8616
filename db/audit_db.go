package db

import (
	"github.com/frontendlab/testbot/models"
	"github.com/frontendlab/testbot/utils"
)

// LogAction appends one line to the audit trail. Failures are logged but not
// returned; an audit hiccup must never break the action it describes.
func (db *DB) LogAction(userID int64, action, details string) {
	_, err := db.Exec(`
        INSERT INTO audit_log (user_id, action, details) VALUES (?, ?, ?)
    `, userID, action, details)
	if err != nil {
		utils.LogError("Audit write failed (user %d, %s): %v", userID, action, err)
	}
}

// RecentAudit returns the newest audit entries, newest first.
func (db *DB) RecentAudit(limit int) ([]models.AuditEntry, error) {
	rows, err := db.Query(`
        SELECT id, user_id, action, details, created_at
        FROM audit_log ORDER BY id DESC LIMIT ?
    `, limit)
	if err != nil {
		utils.LogError("RecentAudit failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (db *DB) CountAudit() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM audit_log").Scan(&count)
	if err != nil {
		utils.LogError("CountAudit failed: %v", err)
		return 0, err
	}
	return count, nil
}
