package engine

import (
	"math/rand"

	"github.com/frontendlab/testbot/models"
)

// FilterValid drops malformed questions (fewer than two options, or a correct
// index that does not point into them) before they can reach a session. The
// dropped count is returned so the caller can flag bank quality.
func FilterValid(pool []models.Question) ([]models.Question, int) {
	valid := make([]models.Question, 0, len(pool))
	dropped := 0
	for _, q := range pool {
		if q.Valid() {
			valid = append(valid, q)
		} else {
			dropped++
		}
	}
	return valid, dropped
}

// Sample draws count questions from the pool uniformly without replacement,
// in random presentation order. When the pool is smaller than count the whole
// pool is returned shuffled; the caller decides how loudly to warn about the
// short session. The pool slice itself is never mutated.
func Sample(pool []models.Question, count int) []models.Question {
	shuffled := make([]models.Question, len(pool))
	copy(shuffled, pool)

	if count > len(shuffled) {
		count = len(shuffled)
	}

	// Partial Fisher-Yates: only the first count positions need to be drawn.
	for i := 0; i < count; i++ {
		j := i + rand.Intn(len(shuffled)-i)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled[:count]
}
