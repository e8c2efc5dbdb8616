package models

import "time"

// Question is one multiple-choice entry of the question bank.
type Question struct {
	ID           int       `json:"id"`
	Topic        string    `json:"topic"`
	Difficulty   string    `json:"difficulty"`
	Text         string    `json:"text"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"correct_index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Valid reports whether the question is safe to hand to a session: at least
// two options and a correct index that points into them.
func (q *Question) Valid() bool {
	return len(q.Options) >= 2 && q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options)
}

// QuestionRequest for creating/updating bank entries.
type QuestionRequest struct {
	Topic        string   `json:"topic"`
	Difficulty   string   `json:"difficulty"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}
