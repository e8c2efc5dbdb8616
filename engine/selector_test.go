package engine

import (
	"testing"

	"github.com/frontendlab/testbot/models"
)

func makePool(n int) []models.Question {
	pool := make([]models.Question, 0, n)
	for i := 0; i < n; i++ {
		pool = append(pool, models.Question{
			ID:           i + 1,
			Topic:        models.TopicHTML,
			Difficulty:   models.DifficultyEasy,
			Text:         "question",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: i % 4,
		})
	}
	return pool
}

func TestSampleExactPoolIsPermutation(t *testing.T) {
	pool := makePool(20)
	got := Sample(pool, 20)

	if len(got) != 20 {
		t.Fatalf("expected 20 questions, got %d", len(got))
	}

	seen := make(map[int]int)
	for _, q := range got {
		seen[q.ID]++
	}
	for _, q := range pool {
		if seen[q.ID] != 1 {
			t.Fatalf("question %d appears %d times, want exactly once", q.ID, seen[q.ID])
		}
	}
}

func TestSampleTruncatesShortPool(t *testing.T) {
	pool := makePool(5)
	got := Sample(pool, 20)

	if len(got) != 5 {
		t.Fatalf("short pool should return all 5 items, got %d", len(got))
	}

	seen := make(map[int]bool)
	for _, q := range got {
		if seen[q.ID] {
			t.Fatalf("question %d sampled twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestSampleDoesNotMutatePool(t *testing.T) {
	pool := makePool(10)
	original := make([]int, len(pool))
	for i, q := range pool {
		original[i] = q.ID
	}

	Sample(pool, 5)

	for i, q := range pool {
		if q.ID != original[i] {
			t.Fatalf("pool order changed at %d: %d -> %d", i, original[i], q.ID)
		}
	}
}

func TestFilterValidDropsMalformed(t *testing.T) {
	pool := makePool(3)
	pool = append(pool,
		models.Question{ID: 100, Options: []string{"only one"}, CorrectIndex: 0},
		models.Question{ID: 101, Options: []string{"a", "b", "c", "d"}, CorrectIndex: 4},
		models.Question{ID: 102, Options: []string{"a", "b"}, CorrectIndex: -1},
	)

	valid, dropped := FilterValid(pool)

	if dropped != 3 {
		t.Fatalf("expected 3 dropped, got %d", dropped)
	}
	if len(valid) != 3 {
		t.Fatalf("expected 3 valid, got %d", len(valid))
	}
	for _, q := range valid {
		if !q.Valid() {
			t.Fatalf("invalid question %d survived filtering", q.ID)
		}
	}
}
