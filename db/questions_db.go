package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/frontendlab/testbot/models"
	"github.com/frontendlab/testbot/utils"
)

// GetQuestions returns the full pool for a (topic, difficulty) tier. The
// session engine calls this on every test start, so bank edits apply to the
// next session without any invalidation here.
func (db *DB) GetQuestions(topic, difficulty string) ([]models.Question, error) {
	utils.LogDB("Loading question pool: %s/%s", topic, difficulty)
	start := time.Now()

	rows, err := db.Query(`
        SELECT id, topic, difficulty, text, options, correct_index, created_at, updated_at
        FROM questions WHERE topic = ? AND difficulty = ?
        ORDER BY id
    `, topic, difficulty)
	if err != nil {
		utils.LogError("GetQuestions query failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	questions, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}

	utils.LogDB("Loaded %d questions for %s/%s in %v", len(questions), topic, difficulty, time.Since(start))
	return questions, nil
}

func scanQuestions(rows *sql.Rows) ([]models.Question, error) {
	var questions []models.Question
	for rows.Next() {
		var q models.Question
		var optionsJSON string

		err := rows.Scan(&q.ID, &q.Topic, &q.Difficulty, &q.Text, &optionsJSON, &q.CorrectIndex, &q.CreatedAt, &q.UpdatedAt)
		if err != nil {
			utils.LogError("Failed to scan question row: %v", err)
			return nil, err
		}

		if err := json.Unmarshal([]byte(optionsJSON), &q.Options); err != nil {
			// A row with broken options JSON is left optionless; the
			// selector's validation will skip it.
			utils.LogError("Question %d has unreadable options: %v", q.ID, err)
		}

		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (db *DB) GetQuestionByID(id int) (*models.Question, error) {
	var q models.Question
	var optionsJSON string

	err := db.QueryRow(`
        SELECT id, topic, difficulty, text, options, correct_index, created_at, updated_at
        FROM questions WHERE id = ?
    `, id).Scan(&q.ID, &q.Topic, &q.Difficulty, &q.Text, &optionsJSON, &q.CorrectIndex, &q.CreatedAt, &q.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("question %d not found", id)
		}
		utils.LogError("GetQuestionByID(%d) failed: %v", id, err)
		return nil, err
	}

	if err := json.Unmarshal([]byte(optionsJSON), &q.Options); err != nil {
		utils.LogError("Question %d has unreadable options: %v", id, err)
	}

	return &q, nil
}

func (db *DB) CreateQuestion(req models.QuestionRequest) (*models.Question, error) {
	utils.LogDB("Creating question: %s/%s", req.Topic, req.Difficulty)

	if err := validateQuestionRequest(req); err != nil {
		return nil, err
	}

	optionsJSON, err := json.Marshal(req.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal options: %w", err)
	}

	result, err := db.Exec(`
        INSERT INTO questions (topic, difficulty, text, options, correct_index)
        VALUES (?, ?, ?, ?, ?)
    `, req.Topic, req.Difficulty, req.Text, string(optionsJSON), req.CorrectIndex)
	if err != nil {
		utils.LogError("CreateQuestion failed: %v", err)
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	utils.LogDB("Question created with ID %d", id)
	return db.GetQuestionByID(int(id))
}

func (db *DB) UpdateQuestion(id int, req models.QuestionRequest) (*models.Question, error) {
	utils.LogDB("Updating question %d", id)

	if err := validateQuestionRequest(req); err != nil {
		return nil, err
	}

	optionsJSON, err := json.Marshal(req.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal options: %w", err)
	}

	_, err = db.Exec(`
        UPDATE questions
        SET topic = ?, difficulty = ?, text = ?, options = ?, correct_index = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ?
    `, req.Topic, req.Difficulty, req.Text, string(optionsJSON), req.CorrectIndex, id)
	if err != nil {
		utils.LogError("UpdateQuestion(%d) failed: %v", id, err)
		return nil, err
	}

	return db.GetQuestionByID(id)
}

func (db *DB) DeleteQuestion(id int) error {
	utils.LogDB("Deleting question %d", id)

	result, err := db.Exec("DELETE FROM questions WHERE id = ?", id)
	if err != nil {
		utils.LogError("DeleteQuestion(%d) failed: %v", id, err)
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("question %d not found", id)
	}
	return nil
}

// CountQuestions reports bank sizes per tier for the admin console.
func (db *DB) CountQuestions() (map[string]int, error) {
	rows, err := db.Query("SELECT topic || '/' || difficulty, COUNT(*) FROM questions GROUP BY topic, difficulty")
	if err != nil {
		utils.LogError("CountQuestions failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, err
		}
		counts[tier] = n
	}
	return counts, rows.Err()
}

// ExportQuestions dumps the whole bank, for the admin backup flow.
func (db *DB) ExportQuestions() ([]models.Question, error) {
	utils.LogDB("Exporting full question bank")

	rows, err := db.Query(`
        SELECT id, topic, difficulty, text, options, correct_index, created_at, updated_at
        FROM questions ORDER BY topic, difficulty, id
    `)
	if err != nil {
		utils.LogError("ExportQuestions failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	return scanQuestions(rows)
}

func validateQuestionRequest(req models.QuestionRequest) error {
	if !models.ValidTopic(req.Topic) {
		return fmt.Errorf("invalid topic: %s", req.Topic)
	}
	if !models.ValidDifficulty(req.Difficulty) {
		return fmt.Errorf("invalid difficulty: %s", req.Difficulty)
	}
	if req.Text == "" {
		return fmt.Errorf("question text is required")
	}
	if len(req.Options) != 4 {
		return fmt.Errorf("exactly 4 options required, got %d", len(req.Options))
	}
	if req.CorrectIndex < 0 || req.CorrectIndex >= len(req.Options) {
		return fmt.Errorf("correct index %d out of range", req.CorrectIndex)
	}
	return nil
}
