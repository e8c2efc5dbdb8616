package engine

import (
	"fmt"
	"time"

	"github.com/frontendlab/testbot/models"
	"github.com/frontendlab/testbot/utils"
)

// QuestionProvider hands out the full question pool for a (topic, difficulty)
// tier. Each call is a fresh read, so bank edits take effect on the next
// Start without any cache invalidation here.
type QuestionProvider interface {
	GetQuestions(topic, difficulty string) ([]models.Question, error)
}

// ResultSink durably appends finished session records.
type ResultSink interface {
	AppendResult(r *models.Result) error
}

// Presenter renders engine output to the user. Calls are fire-and-forget:
// transport failures are the presenter's problem, never the engine's.
type Presenter interface {
	RenderQuestion(userID int64, index int, q models.Question, total, secondsLeft int)
	RenderSummary(userID int64, r *models.Result, persisted bool)
}

// Config carries the two session constants. They are configuration, not
// per-call parameters.
type Config struct {
	SessionLength      int
	PerQuestionTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		SessionLength:      20,
		PerQuestionTimeout: 20 * time.Second,
	}
}

// Engine drives timed test sessions: selector -> scheduler -> scorer ->
// result commit. One instance serves all users; per-user state lives in the
// session store.
type Engine struct {
	cfg       Config
	provider  QuestionProvider
	sink      ResultSink
	presenter Presenter
	store     *SessionStore
}

func New(cfg Config, provider QuestionProvider, sink ResultSink, presenter Presenter) *Engine {
	if cfg.SessionLength <= 0 {
		cfg.SessionLength = DefaultConfig().SessionLength
	}
	if cfg.PerQuestionTimeout <= 0 {
		cfg.PerQuestionTimeout = DefaultConfig().PerQuestionTimeout
	}
	return &Engine{
		cfg:       cfg,
		provider:  provider,
		sink:      sink,
		presenter: presenter,
		store:     NewSessionStore(),
	}
}

// ActiveSessions reports how many tests are currently in flight.
func (e *Engine) ActiveSessions() int {
	return e.store.Len()
}

// Start creates a session for the user, samples its question set, shows the
// first question and arms its deadline.
func (e *Engine) Start(userID int64, topic, difficulty string) error {
	if _, exists := e.store.Get(userID); exists {
		return ErrSessionAlreadyActive
	}

	pool, err := e.provider.GetQuestions(topic, difficulty)
	if err != nil {
		return fmt.Errorf("fetching questions for %s/%s: %w", topic, difficulty, err)
	}

	valid, dropped := FilterValid(pool)
	if dropped > 0 {
		utils.LogWarn("Skipped %d malformed questions in %s/%s pool", dropped, topic, difficulty)
	}
	if len(valid) == 0 {
		return ErrNoQuestionsAvailable
	}
	if len(valid) < e.cfg.SessionLength {
		utils.LogWarn("Short pool for %s/%s: %d questions, wanted %d", topic, difficulty, len(valid), e.cfg.SessionLength)
	}

	s := newSession(userID, topic, difficulty, Sample(valid, e.cfg.SessionLength))
	if !e.store.Put(s) {
		return ErrSessionAlreadyActive
	}

	utils.LogEngine("Session started: user=%d topic=%s difficulty=%s questions=%d", userID, topic, difficulty, len(s.Questions))

	s.mu.Lock()
	defer s.mu.Unlock()
	e.armCurrent(s)
	e.presenter.RenderQuestion(s.UserID, s.Cursor, s.current(), len(s.Questions), e.secondsPerQuestion())
	return nil
}

// SubmitAnswer records the user's choice for the question at questionIndex,
// provided it beats that question's deadline. The index must match the
// current cursor: answer buttons carry the index they were rendered for, so a
// click on an already-resolved question is rejected as stale instead of
// counting against the question that replaced it. For the current question,
// Disarm succeeding is the proof the answer won; a failed disarm means the
// timeout already advanced the session and the submission is ignored without
// any state change.
func (e *Engine) SubmitAnswer(userID int64, questionIndex, chosenIndex int) error {
	s, ok := e.store.Get(userID)
	if !ok {
		return ErrNoActiveSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished || s.deadline == nil {
		return ErrNoActiveSession
	}
	if questionIndex != s.Cursor {
		return ErrStaleAnswer
	}
	if !s.deadline.Disarm() {
		return ErrStaleAnswer
	}

	q := s.current()
	isCorrect := chosenIndex >= 0 && chosenIndex < len(q.Options) && chosenIndex == q.CorrectIndex
	s.Answers = append(s.Answers, models.Answer{
		QuestionID:   q.ID,
		ChosenIndex:  chosenIndex,
		CorrectIndex: q.CorrectIndex,
		IsCorrect:    isCorrect,
	})
	if isCorrect {
		s.Correct++
	}

	e.advanceLocked(s)
	return nil
}

// Cancel discards the user's session without committing a Result. Partial
// sessions are never persisted; totalQuestions in a Result always means the
// full session length.
func (e *Engine) Cancel(userID int64) error {
	s, ok := e.store.Get(userID)
	if !ok {
		return ErrNoActiveSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return ErrNoActiveSession
	}
	if s.deadline != nil {
		// A failed disarm means the timeout callback is already waiting on
		// the session lock; marking the session finished makes it a no-op.
		s.deadline.Disarm()
		s.deadline = nil
	}
	s.finished = true
	e.store.Delete(userID)

	utils.LogEngine("Session cancelled: user=%d topic=%s answered=%d/%d", userID, s.Topic, len(s.Answers), len(s.Questions))
	return nil
}

// onTimeout is the deadline scheduler's entry point. By the time it runs the
// fired flag is already set, so no submission for this question can win
// anymore; the cursor is still where the deadline was armed.
func (e *Engine) onTimeout(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return
	}

	q := s.current()
	s.Answers = append(s.Answers, models.Answer{
		QuestionID:   q.ID,
		ChosenIndex:  models.NoAnswer,
		CorrectIndex: q.CorrectIndex,
		TimedOut:     true,
	})

	utils.LogEngine("Deadline fired: user=%d question=%d/%d", s.UserID, s.Cursor+1, len(s.Questions))
	e.advanceLocked(s)
}

// advanceLocked is the single shared transition out of a question. Exactly
// one answer (explicit or timeout sentinel) has been appended for the current
// cursor before it is called. Caller holds s.mu.
func (e *Engine) advanceLocked(s *Session) {
	s.Cursor++
	if s.Cursor >= len(s.Questions) {
		e.finishLocked(s)
		return
	}
	e.armCurrent(s)
	e.presenter.RenderQuestion(s.UserID, s.Cursor, s.current(), len(s.Questions), e.secondsPerQuestion())
}

// finishLocked scores the session, commits the Result and tears the session
// down. A sink failure still ends the session from the user's perspective;
// availability over durability, but loudly logged so it is never silent loss.
func (e *Engine) finishLocked(s *Session) {
	s.finished = true
	s.deadline = nil

	r := &models.Result{
		UserID:          s.UserID,
		Topic:           s.Topic,
		Difficulty:      s.Difficulty,
		CorrectCount:    s.Correct,
		TotalQuestions:  len(s.Questions),
		Percentage:      models.Percentage(s.Correct, len(s.Questions)),
		DurationSeconds: int(time.Since(s.StartedAt).Seconds()),
		Answers:         s.Answers,
		CreatedAt:       time.Now(),
	}

	e.store.Delete(s.UserID)

	persisted := true
	if err := e.sink.AppendResult(r); err != nil {
		persisted = false
		utils.LogError("Result sink failure for user %d (%s/%s, %d%%): %v", s.UserID, s.Topic, s.Difficulty, r.Percentage, err)
	}

	utils.LogEngine("Session finished: user=%d topic=%s score=%d/%d (%d%%) in %ds",
		s.UserID, s.Topic, r.CorrectCount, r.TotalQuestions, r.Percentage, r.DurationSeconds)

	e.presenter.RenderSummary(s.UserID, r, persisted)
}

func (e *Engine) armCurrent(s *Session) {
	s.deadline = Arm(e.cfg.PerQuestionTimeout, func() { e.onTimeout(s) })
}

func (e *Engine) secondsPerQuestion() int {
	return int(e.cfg.PerQuestionTimeout / time.Second)
}
