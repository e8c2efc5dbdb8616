package models

import (
	"math"
	"time"
)

// NoAnswer is the chosen-index sentinel recorded when a question's deadline
// fires before the user answers.
const NoAnswer = -1

// Answer records the outcome of a single question within a session.
type Answer struct {
	QuestionID   int  `json:"question_id"`
	ChosenIndex  int  `json:"chosen_index"`
	CorrectIndex int  `json:"correct_index"`
	IsCorrect    bool `json:"is_correct"`
	TimedOut     bool `json:"timed_out"`
}

// Result is the immutable outcome of one completed session. Append-only per
// user; the engine writes it exactly once and never edits it.
type Result struct {
	ID              int       `json:"id"`
	UserID          int64     `json:"user_id"`
	Topic           string    `json:"topic"`
	Difficulty      string    `json:"difficulty"`
	CorrectCount    int       `json:"correct_count"`
	TotalQuestions  int       `json:"total_questions"`
	Percentage      int       `json:"percentage"`
	DurationSeconds int       `json:"duration_seconds"`
	Answers         []Answer  `json:"answers"`
	CreatedAt       time.Time `json:"created_at"`
}

// Percentage computes the rounded score for correct out of total.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// UserStats aggregates a user's completed tests.
type UserStats struct {
	TotalTests   int     `json:"total_tests"`
	AveragePct   float64 `json:"average_pct"`
	BestPct      int     `json:"best_pct"`
	TotalCorrect int     `json:"total_correct"`
}

// TopicProgress is a per-topic slice of a user's history.
type TopicProgress struct {
	Topic      string  `json:"topic"`
	Tests      int     `json:"tests"`
	AveragePct float64 `json:"average_pct"`
}

// LeaderboardEntry ranks an approved user by average percentage.
type LeaderboardEntry struct {
	UserID     int64   `json:"user_id"`
	FullName   string  `json:"full_name"`
	AveragePct float64 `json:"average_pct"`
	Tests      int     `json:"tests"`
}
