package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/frontendlab/testbot/models"
	"github.com/frontendlab/testbot/utils"
)

// AppendResult durably stores a finished session record. This is the
// engine's result sink; rows are never updated or deleted here.
func (db *DB) AppendResult(r *models.Result) error {
	utils.LogDB("Appending result: user %d, %s/%s, %d%%", r.UserID, r.Topic, r.Difficulty, r.Percentage)
	start := time.Now()

	answersJSON, err := json.Marshal(r.Answers)
	if err != nil {
		utils.LogError("Failed to marshal answers for user %d: %v", r.UserID, err)
		return err
	}

	result, err := db.Exec(`
        INSERT INTO results (user_id, topic, difficulty, correct_count, total_questions, percentage, duration_seconds, answers, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, r.UserID, r.Topic, r.Difficulty, r.CorrectCount, r.TotalQuestions, r.Percentage, r.DurationSeconds, string(answersJSON), r.CreatedAt)
	if err != nil {
		utils.LogError("AppendResult failed for user %d: %v", r.UserID, err)
		return err
	}

	if id, err := result.LastInsertId(); err == nil {
		r.ID = int(id)
	}

	utils.LogDB("Result %d appended in %v", r.ID, time.Since(start))
	return nil
}

func scanResults(rows *sql.Rows) ([]models.Result, error) {
	var results []models.Result
	for rows.Next() {
		var r models.Result
		var answersJSON string

		err := rows.Scan(&r.ID, &r.UserID, &r.Topic, &r.Difficulty, &r.CorrectCount,
			&r.TotalQuestions, &r.Percentage, &r.DurationSeconds, &answersJSON, &r.CreatedAt)
		if err != nil {
			utils.LogError("Failed to scan result row: %v", err)
			return nil, err
		}

		if err := json.Unmarshal([]byte(answersJSON), &r.Answers); err != nil {
			utils.LogError("Result %d has unreadable answers: %v", r.ID, err)
		}

		results = append(results, r)
	}
	return results, rows.Err()
}

// GetUserHistory returns the user's most recent results, newest first.
func (db *DB) GetUserHistory(userID int64, limit int) ([]models.Result, error) {
	rows, err := db.Query(`
        SELECT id, user_id, topic, difficulty, correct_count, total_questions, percentage, duration_seconds, answers, created_at
        FROM results WHERE user_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?
    `, userID, limit)
	if err != nil {
		utils.LogError("GetUserHistory(%d) failed: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	return scanResults(rows)
}

// GetLastResult returns the user's newest result, or nil without error if
// they have never finished a test.
func (db *DB) GetLastResult(userID int64) (*models.Result, error) {
	results, err := db.GetUserHistory(userID, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

func (db *DB) GetUserStats(userID int64) (*models.UserStats, error) {
	utils.LogDB("Calculating stats for user %d", userID)

	stats := &models.UserStats{}
	err := db.QueryRow(`
        SELECT COUNT(*), COALESCE(AVG(percentage), 0), COALESCE(MAX(percentage), 0), COALESCE(SUM(correct_count), 0)
        FROM results WHERE user_id = ?
    `, userID).Scan(&stats.TotalTests, &stats.AveragePct, &stats.BestPct, &stats.TotalCorrect)
	if err != nil {
		utils.LogError("GetUserStats(%d) failed: %v", userID, err)
		return nil, err
	}

	return stats, nil
}

// GetTopicProgress breaks a user's history down per topic.
func (db *DB) GetTopicProgress(userID int64) ([]models.TopicProgress, error) {
	rows, err := db.Query(`
        SELECT topic, COUNT(*), AVG(percentage)
        FROM results WHERE user_id = ?
        GROUP BY topic ORDER BY topic
    `, userID)
	if err != nil {
		utils.LogError("GetTopicProgress(%d) failed: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var progress []models.TopicProgress
	for rows.Next() {
		var p models.TopicProgress
		if err := rows.Scan(&p.Topic, &p.Tests, &p.AveragePct); err != nil {
			return nil, err
		}
		progress = append(progress, p)
	}
	return progress, rows.Err()
}

// GetLeaderboard ranks approved users by average percentage across all their
// tests. Only reads committed results.
func (db *DB) GetLeaderboard(limit int) ([]models.LeaderboardEntry, error) {
	return db.queryLeaderboard(`
        SELECT u.telegram_id, u.full_name, AVG(r.percentage), COUNT(r.id)
        FROM results r
        JOIN users u ON u.telegram_id = r.user_id
        GROUP BY u.telegram_id, u.full_name
        ORDER BY AVG(r.percentage) DESC
        LIMIT ?
    `, limit)
}

// GetTopicRankings is the per-topic variant of the leaderboard.
func (db *DB) GetTopicRankings(topic string, limit int) ([]models.LeaderboardEntry, error) {
	return db.queryLeaderboard(`
        SELECT u.telegram_id, u.full_name, AVG(r.percentage), COUNT(r.id)
        FROM results r
        JOIN users u ON u.telegram_id = r.user_id
        WHERE r.topic = ?
        GROUP BY u.telegram_id, u.full_name
        ORDER BY AVG(r.percentage) DESC
        LIMIT ?
    `, topic, limit)
}

func (db *DB) queryLeaderboard(query string, args ...interface{}) ([]models.LeaderboardEntry, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		utils.LogError("Leaderboard query failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.FullName, &e.AveragePct, &e.Tests); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetGlobalAverage returns the average percentage and count across every
// committed result, for the /compare command.
func (db *DB) GetGlobalAverage() (float64, int, error) {
	var avg float64
	var count int
	err := db.QueryRow("SELECT COALESCE(AVG(percentage), 0), COUNT(*) FROM results").Scan(&avg, &count)
	if err != nil {
		utils.LogError("GetGlobalAverage failed: %v", err)
		return 0, 0, err
	}
	return avg, count, nil
}

// ExportResults dumps every result, for the admin backup flow.
func (db *DB) ExportResults() ([]models.Result, error) {
	utils.LogDB("Exporting all results")

	rows, err := db.Query(`
        SELECT id, user_id, topic, difficulty, correct_count, total_questions, percentage, duration_seconds, answers, created_at
        FROM results ORDER BY id
    `)
	if err != nil {
		utils.LogError("ExportResults failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	return scanResults(rows)
}
