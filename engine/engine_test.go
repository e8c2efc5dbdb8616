package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/frontendlab/testbot/models"
)

type fakeProvider struct {
	pool  []models.Question
	err   error
	calls int
}

func (f *fakeProvider) GetQuestions(topic, difficulty string) ([]models.Question, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pool, nil
}

type fakeSink struct {
	mu      sync.Mutex
	results []*models.Result
	err     error
}

func (f *fakeSink) AppendResult(r *models.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.results = append(f.results, r)
	return nil
}

func (f *fakeSink) committed() []*models.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Result, len(f.results))
	copy(out, f.results)
	return out
}

type renderedQuestion struct {
	index   int
	q       models.Question
	total   int
	seconds int
}

type renderedSummary struct {
	r         *models.Result
	persisted bool
}

type fakePresenter struct {
	mu        sync.Mutex
	questions []renderedQuestion
	summaries []renderedSummary
}

func (f *fakePresenter) RenderQuestion(userID int64, index int, q models.Question, total, secondsLeft int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, renderedQuestion{index: index, q: q, total: total, seconds: secondsLeft})
}

func (f *fakePresenter) RenderSummary(userID int64, r *models.Result, persisted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, renderedSummary{r: r, persisted: persisted})
}

func (f *fakePresenter) renderedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.questions)
}

func (f *fakePresenter) last() renderedQuestion {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.questions[len(f.questions)-1]
}

func (f *fakePresenter) summaryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.summaries)
}

func (f *fakePresenter) lastSummary() renderedSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaries[len(f.summaries)-1]
}

func waitFor(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

const testUser int64 = 7001

func newTestEngine(cfg Config, pool []models.Question) (*Engine, *fakeSink, *fakePresenter) {
	sink := &fakeSink{}
	pres := &fakePresenter{}
	eng := New(cfg, &fakeProvider{pool: pool}, sink, pres)
	return eng, sink, pres
}

func TestFullSessionScoring(t *testing.T) {
	cfg := Config{SessionLength: 20, PerQuestionTimeout: 5 * time.Second}
	eng, sink, pres := newTestEngine(cfg, makePool(30))

	if err := eng.Start(testUser, models.TopicHTML, models.DifficultyEasy); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Answer 12 correctly, then 8 incorrectly.
	for i := 0; i < 20; i++ {
		current := pres.last()
		if current.index != i {
			t.Fatalf("rendered question index = %d, want %d", current.index, i)
		}
		chosen := current.q.CorrectIndex
		if i >= 12 {
			chosen = (current.q.CorrectIndex + 1) % len(current.q.Options)
		}
		if err := eng.SubmitAnswer(testUser, i, chosen); err != nil {
			t.Fatalf("SubmitAnswer %d failed: %v", i, err)
		}
	}

	results := sink.committed()
	if len(results) != 1 {
		t.Fatalf("expected 1 committed result, got %d", len(results))
	}
	r := results[0]
	if r.CorrectCount != 12 || r.TotalQuestions != 20 || r.Percentage != 60 {
		t.Fatalf("result = %d/%d (%d%%), want 12/20 (60%%)", r.CorrectCount, r.TotalQuestions, r.Percentage)
	}
	if len(r.Answers) != 20 {
		t.Fatalf("expected 20 answers, got %d", len(r.Answers))
	}
	correct := 0
	for _, a := range r.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	if correct != r.CorrectCount {
		t.Fatalf("correct answers in record = %d, CorrectCount = %d", correct, r.CorrectCount)
	}

	if eng.ActiveSessions() != 0 {
		t.Fatal("session should be removed after the final question")
	}
	if err := eng.SubmitAnswer(testUser, 0, 0); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("submit after finish = %v, want ErrNoActiveSession", err)
	}
}

func TestStartWhileActive(t *testing.T) {
	cfg := Config{SessionLength: 5, PerQuestionTimeout: 5 * time.Second}
	eng, _, _ := newTestEngine(cfg, makePool(10))

	if err := eng.Start(testUser, models.TopicHTML, models.DifficultyEasy); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	original, _ := eng.store.Get(testUser)

	if err := eng.Start(testUser, models.TopicCSS, models.DifficultyDifficult); !errors.Is(err, ErrSessionAlreadyActive) {
		t.Fatalf("second Start = %v, want ErrSessionAlreadyActive", err)
	}

	after, ok := eng.store.Get(testUser)
	if !ok || after != original {
		t.Fatal("original session must be untouched by the rejected Start")
	}
	after.mu.Lock()
	defer after.mu.Unlock()
	if after.Cursor != 0 || len(after.Answers) != 0 {
		t.Fatalf("original session mutated: cursor=%d answers=%d", after.Cursor, len(after.Answers))
	}
}

func TestStartWithEmptyPool(t *testing.T) {
	eng, _, _ := newTestEngine(Config{SessionLength: 20, PerQuestionTimeout: 5 * time.Second}, nil)

	if err := eng.Start(testUser, models.TopicGIT, models.DifficultyEasy); !errors.Is(err, ErrNoQuestionsAvailable) {
		t.Fatalf("Start = %v, want ErrNoQuestionsAvailable", err)
	}
	if eng.ActiveSessions() != 0 {
		t.Fatal("no session should exist after a failed Start")
	}
}

func TestStartWithOnlyMalformedQuestions(t *testing.T) {
	pool := []models.Question{
		{ID: 1, Options: []string{"alone"}, CorrectIndex: 0},
		{ID: 2, Options: []string{"a", "b"}, CorrectIndex: 5},
	}
	eng, _, _ := newTestEngine(Config{SessionLength: 20, PerQuestionTimeout: 5 * time.Second}, pool)

	if err := eng.Start(testUser, models.TopicGIT, models.DifficultyEasy); !errors.Is(err, ErrNoQuestionsAvailable) {
		t.Fatalf("Start = %v, want ErrNoQuestionsAvailable", err)
	}
}

func TestTimeoutRecordsSentinelAndAdvances(t *testing.T) {
	cfg := Config{SessionLength: 3, PerQuestionTimeout: 30 * time.Millisecond}
	eng, _, pres := newTestEngine(cfg, makePool(5))

	if err := eng.Start(testUser, models.TopicJS, models.DifficultyEasy); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, time.Second, "second question to render", func() bool {
		return pres.renderedCount() >= 2
	})

	s, ok := eng.store.Get(testUser)
	if !ok {
		t.Fatal("session should still be active")
	}
	s.mu.Lock()
	first := s.Answers[0]
	correct := s.Correct
	cursor := s.Cursor
	answers := len(s.Answers)
	s.mu.Unlock()

	if !first.TimedOut || first.ChosenIndex != models.NoAnswer {
		t.Fatalf("answers[0] = %+v, want timeout sentinel", first)
	}
	if first.IsCorrect || correct != 0 {
		t.Fatal("a timed-out question must never score")
	}
	if answers != cursor {
		t.Fatalf("len(answers)=%d, cursor=%d, must be equal after advance", answers, cursor)
	}
}

func TestStaleAnswerAfterTimeout(t *testing.T) {
	cfg := Config{SessionLength: 2, PerQuestionTimeout: 60 * time.Millisecond}
	eng, sink, pres := newTestEngine(cfg, makePool(4))

	if err := eng.Start(testUser, models.TopicBASH, models.DifficultyDifficult); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Let question 0 time out; the engine advances to question 1.
	waitFor(t, time.Second, "second question to render", func() bool {
		return pres.renderedCount() >= 2
	})

	// A click on the question-0 buttons now loses the race.
	if err := eng.SubmitAnswer(testUser, 0, 1); !errors.Is(err, ErrStaleAnswer) {
		t.Fatalf("late answer = %v, want ErrStaleAnswer", err)
	}

	s, _ := eng.store.Get(testUser)
	s.mu.Lock()
	if len(s.Answers) != 1 || s.Cursor != 1 {
		s.mu.Unlock()
		t.Fatalf("stale answer mutated state: answers=%d cursor=%d", len(s.Answers), s.Cursor)
	}
	s.mu.Unlock()

	// The session continues normally on the current question.
	current := pres.last()
	if err := eng.SubmitAnswer(testUser, 1, current.q.CorrectIndex); err != nil {
		t.Fatalf("answer to current question failed: %v", err)
	}

	waitFor(t, time.Second, "summary", func() bool {
		return pres.summaryCount() == 1
	})

	results := sink.committed()
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if len(r.Answers) != 2 || !r.Answers[0].TimedOut || !r.Answers[1].IsCorrect {
		t.Fatalf("unexpected answer record: %+v", r.Answers)
	}
	if r.CorrectCount != 1 || r.Percentage != 50 {
		t.Fatalf("result = %d (%d%%), want 1 (50%%)", r.CorrectCount, r.Percentage)
	}
}

func TestSessionFinishesOnTimeoutsAlone(t *testing.T) {
	cfg := Config{SessionLength: 2, PerQuestionTimeout: 20 * time.Millisecond}
	eng, sink, pres := newTestEngine(cfg, makePool(3))

	if err := eng.Start(testUser, models.TopicCSS, models.DifficultyEasy); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, time.Second, "summary after both deadlines", func() bool {
		return pres.summaryCount() == 1
	})

	results := sink.committed()
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.CorrectCount != 0 || r.Percentage != 0 || len(r.Answers) != 2 {
		t.Fatalf("all-timeout result = %d%% with %d answers, want 0%% with 2", r.Percentage, len(r.Answers))
	}
	for i, a := range r.Answers {
		if !a.TimedOut {
			t.Fatalf("answer %d should be the timeout sentinel", i)
		}
	}
	if eng.ActiveSessions() != 0 {
		t.Fatal("session should be cleaned up after finishing on timeouts")
	}
}

func TestSinkFailureStillEndsSession(t *testing.T) {
	cfg := Config{SessionLength: 1, PerQuestionTimeout: 5 * time.Second}
	eng, sink, pres := newTestEngine(cfg, makePool(3))
	sink.err = errors.New("disk full")

	if err := eng.Start(testUser, models.TopicHTML, models.DifficultyEasy); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	current := pres.last()
	if err := eng.SubmitAnswer(testUser, 0, current.q.CorrectIndex); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	if eng.ActiveSessions() != 0 {
		t.Fatal("session must be cleared even when the sink fails")
	}
	summary := pres.lastSummary()
	if summary.persisted {
		t.Fatal("summary must flag the failed persistence")
	}
	if summary.r.CorrectCount != 1 {
		t.Fatalf("summary still carries the score, got %d", summary.r.CorrectCount)
	}
}

func TestCancelDiscardsSession(t *testing.T) {
	cfg := Config{SessionLength: 5, PerQuestionTimeout: 5 * time.Second}
	eng, sink, pres := newTestEngine(cfg, makePool(10))

	if err := eng.Start(testUser, models.TopicGIT, models.DifficultyEasy); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	current := pres.last()
	if err := eng.SubmitAnswer(testUser, 0, current.q.CorrectIndex); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	if err := eng.Cancel(testUser); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	if len(sink.committed()) != 0 {
		t.Fatal("cancelled session must not commit a result")
	}
	if eng.ActiveSessions() != 0 {
		t.Fatal("cancelled session must leave the store")
	}
	if err := eng.Cancel(testUser); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("second Cancel = %v, want ErrNoActiveSession", err)
	}
	if err := eng.SubmitAnswer(testUser, 1, 0); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("submit after cancel = %v, want ErrNoActiveSession", err)
	}

	// A fresh session can start immediately after a cancel.
	if err := eng.Start(testUser, models.TopicGIT, models.DifficultyEasy); err != nil {
		t.Fatalf("restart after cancel failed: %v", err)
	}
}
