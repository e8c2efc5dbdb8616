package engine

import (
	"sync"
	"time"

	"github.com/frontendlab/testbot/models"
)

// Session is one user's in-progress test. All fields after creation are
// mutated only by the engine's advance path while mu is held; Cursor grows
// monotonically and len(Answers) == Cursor after every advance.
type Session struct {
	mu sync.Mutex

	UserID     int64
	Topic      string
	Difficulty string
	Questions  []models.Question
	Cursor     int
	Answers    []models.Answer
	Correct    int
	StartedAt  time.Time

	// deadline is the armed countdown for Questions[Cursor], nil once the
	// session has finished or been cancelled.
	deadline *Deadline

	// finished flips when the final Result is committed or the session is
	// cancelled, so a caller that grabbed the pointer before removal from the
	// store cannot mutate a dead session.
	finished bool
}

func newSession(userID int64, topic, difficulty string, questions []models.Question) *Session {
	return &Session{
		UserID:     userID,
		Topic:      topic,
		Difficulty: difficulty,
		Questions:  questions,
		Answers:    make([]models.Answer, 0, len(questions)),
		StartedAt:  time.Now(),
	}
}

// current returns the question at the cursor. Caller must hold mu and have
// checked the cursor bound.
func (s *Session) current() models.Question {
	return s.Questions[s.Cursor]
}
