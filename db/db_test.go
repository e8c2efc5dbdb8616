package db

import (
	"testing"

	"github.com/frontendlab/testbot/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func seedQuestion(t *testing.T, database *DB, topic, difficulty, text string) *models.Question {
	t.Helper()
	q, err := database.CreateQuestion(models.QuestionRequest{
		Topic:        topic,
		Difficulty:   difficulty,
		Text:         text,
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: 1,
	})
	if err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}
	return q
}

func TestQuestionCRUD(t *testing.T) {
	database := newTestDB(t)

	created := seedQuestion(t, database, models.TopicCSS, models.DifficultyEasy, "What does the cascade decide?")
	if created.ID == 0 {
		t.Fatal("expected assigned question ID")
	}

	got, err := database.GetQuestionByID(created.ID)
	if err != nil {
		t.Fatalf("GetQuestionByID: %v", err)
	}
	if got.Text != created.Text || len(got.Options) != 4 || got.CorrectIndex != 1 {
		t.Errorf("round-trip mismatch: %+v", got)
	}

	updated, err := database.UpdateQuestion(created.ID, models.QuestionRequest{
		Topic:        models.TopicCSS,
		Difficulty:   models.DifficultyEasy,
		Text:         "Which selector wins on equal specificity?",
		Options:      []string{"first", "last", "longest", "none"},
		CorrectIndex: 1,
	})
	if err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	if updated.Text == created.Text {
		t.Error("update did not change text")
	}

	if err := database.DeleteQuestion(created.ID); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}
	if _, err := database.GetQuestionByID(created.ID); err == nil {
		t.Error("expected error looking up deleted question")
	}
	if err := database.DeleteQuestion(created.ID); err == nil {
		t.Error("expected error deleting twice")
	}
}

func TestCreateQuestionValidation(t *testing.T) {
	database := newTestDB(t)

	cases := []struct {
		name string
		req  models.QuestionRequest
	}{
		{"bad topic", models.QuestionRequest{Topic: "PHP", Difficulty: models.DifficultyEasy, Text: "?", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 0}},
		{"bad difficulty", models.QuestionRequest{Topic: models.TopicJS, Difficulty: "medium", Text: "?", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 0}},
		{"empty text", models.QuestionRequest{Topic: models.TopicJS, Difficulty: models.DifficultyEasy, Options: []string{"a", "b", "c", "d"}, CorrectIndex: 0}},
		{"three options", models.QuestionRequest{Topic: models.TopicJS, Difficulty: models.DifficultyEasy, Text: "?", Options: []string{"a", "b", "c"}, CorrectIndex: 0}},
		{"index out of range", models.QuestionRequest{Topic: models.TopicJS, Difficulty: models.DifficultyEasy, Text: "?", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 4}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := database.CreateQuestion(tc.req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGetQuestionsFiltersByTier(t *testing.T) {
	database := newTestDB(t)

	seedQuestion(t, database, models.TopicGIT, models.DifficultyEasy, "easy git 1")
	seedQuestion(t, database, models.TopicGIT, models.DifficultyEasy, "easy git 2")
	seedQuestion(t, database, models.TopicGIT, models.DifficultyDifficult, "hard git")
	seedQuestion(t, database, models.TopicBASH, models.DifficultyEasy, "easy bash")

	pool, err := database.GetQuestions(models.TopicGIT, models.DifficultyEasy)
	if err != nil {
		t.Fatalf("GetQuestions: %v", err)
	}
	if len(pool) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(pool))
	}
	for _, q := range pool {
		if q.Topic != models.TopicGIT || q.Difficulty != models.DifficultyEasy {
			t.Errorf("wrong tier in pool: %s/%s", q.Topic, q.Difficulty)
		}
	}
}

func TestApprovalWorkflow(t *testing.T) {
	database := newTestDB(t)
	const userID = int64(4242)

	if err := database.CreatePendingUser(userID, "Aziz Karimov", "azizk"); err != nil {
		t.Fatalf("CreatePendingUser: %v", err)
	}

	// Re-registration refreshes the name instead of failing.
	if err := database.CreatePendingUser(userID, "Aziz B. Karimov", "azizk"); err != nil {
		t.Fatalf("re-register: %v", err)
	}

	approved, err := database.IsApproved(userID)
	if err != nil || approved {
		t.Fatalf("expected not yet approved, got %v, %v", approved, err)
	}

	user, err := database.ApproveUser(userID)
	if err != nil {
		t.Fatalf("ApproveUser: %v", err)
	}
	if user.FullName != "Aziz B. Karimov" {
		t.Errorf("approved with stale name: %q", user.FullName)
	}

	approved, err = database.IsApproved(userID)
	if err != nil || !approved {
		t.Fatalf("expected approved, got %v, %v", approved, err)
	}

	pending, err := database.GetPendingUser(userID)
	if err != nil {
		t.Fatalf("GetPendingUser: %v", err)
	}
	if pending != nil {
		t.Error("pending row survived approval")
	}

	if _, err := database.ApproveUser(userID); err == nil {
		t.Error("expected error approving twice")
	}
}

func TestRejectUser(t *testing.T) {
	database := newTestDB(t)

	if err := database.CreatePendingUser(99, "Someone", ""); err != nil {
		t.Fatalf("CreatePendingUser: %v", err)
	}
	if err := database.RejectUser(99); err != nil {
		t.Fatalf("RejectUser: %v", err)
	}
	if err := database.RejectUser(99); err == nil {
		t.Error("expected error rejecting absent registration")
	}

	// Rejection must not create an account.
	if approved, _ := database.IsApproved(99); approved {
		t.Error("rejected user ended up approved")
	}
}

func TestResultsAndStats(t *testing.T) {
	database := newTestDB(t)

	database.CreatePendingUser(1, "First", "")
	database.CreatePendingUser(2, "Second", "")
	database.ApproveUser(1)
	database.ApproveUser(2)

	record := func(userID int64, topic string, correct int) {
		t.Helper()
		err := database.AppendResult(&models.Result{
			UserID:          userID,
			Topic:           topic,
			Difficulty:      models.DifficultyEasy,
			CorrectCount:    correct,
			TotalQuestions:  20,
			Percentage:      models.Percentage(correct, 20),
			DurationSeconds: 180,
			Answers:         []models.Answer{{QuestionID: 1, ChosenIndex: 0, CorrectIndex: 0, IsCorrect: true}},
		})
		if err != nil {
			t.Fatalf("AppendResult: %v", err)
		}
	}

	record(1, models.TopicHTML, 20)
	record(1, models.TopicHTML, 10)
	record(1, models.TopicJS, 16)
	record(2, models.TopicHTML, 12)

	stats, err := database.GetUserStats(1)
	if err != nil {
		t.Fatalf("GetUserStats: %v", err)
	}
	if stats.TotalTests != 3 || stats.BestPct != 100 || stats.TotalCorrect != 46 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	history, err := database.GetUserHistory(1, 2)
	if err != nil {
		t.Fatalf("GetUserHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(history))
	}
	if len(history[0].Answers) != 1 || !history[0].Answers[0].IsCorrect {
		t.Error("answers did not survive the round trip")
	}

	last, err := database.GetLastResult(1)
	if err != nil {
		t.Fatalf("GetLastResult: %v", err)
	}
	if last == nil || last.Topic != models.TopicJS {
		t.Errorf("expected newest result to be JS, got %+v", last)
	}

	progress, err := database.GetTopicProgress(1)
	if err != nil {
		t.Fatalf("GetTopicProgress: %v", err)
	}
	if len(progress) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(progress))
	}

	board, err := database.GetLeaderboard(10)
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("expected 2 leaderboard rows, got %d", len(board))
	}
	// User 1 averages (100+50+80)/3, well above user 2's 60.
	if board[0].UserID != 1 {
		t.Errorf("expected user 1 on top, got %d", board[0].UserID)
	}

	rankings, err := database.GetTopicRankings(models.TopicJS, 10)
	if err != nil {
		t.Fatalf("GetTopicRankings: %v", err)
	}
	if len(rankings) != 1 || rankings[0].UserID != 1 {
		t.Errorf("unexpected JS rankings: %+v", rankings)
	}

	avg, count, err := database.GetGlobalAverage()
	if err != nil {
		t.Fatalf("GetGlobalAverage: %v", err)
	}
	if count != 4 || avg <= 0 {
		t.Errorf("unexpected global average: %v over %d", avg, count)
	}
}

func TestNoHistoryReturnsNil(t *testing.T) {
	database := newTestDB(t)

	last, err := database.GetLastResult(777)
	if err != nil {
		t.Fatalf("GetLastResult: %v", err)
	}
	if last != nil {
		t.Errorf("expected nil result, got %+v", last)
	}
}

func TestAuditLog(t *testing.T) {
	database := newTestDB(t)

	database.LogAction(1, "question_created", "id=5")
	database.LogAction(1, "user_approved", "telegram_id=42")
	database.LogAction(2, "broadcast_sent", "")

	entries, err := database.RecentAudit(2)
	if err != nil {
		t.Fatalf("RecentAudit: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != "broadcast_sent" {
		t.Errorf("expected newest entry first, got %q", entries[0].Action)
	}

	count, err := database.CountAudit()
	if err != nil || count != 3 {
		t.Errorf("expected 3 audit rows, got %d (%v)", count, err)
	}
}
