package models

import "time"

// Supported test topics. The menu layer renders exactly these five.
const (
	TopicHTML = "HTML"
	TopicCSS  = "CSS"
	TopicJS   = "JS"
	TopicGIT  = "GIT"
	TopicBASH = "BASH"
)

// Difficulty tiers. Every question belongs to exactly one (topic, difficulty) pool.
const (
	DifficultyEasy      = "easy"
	DifficultyDifficult = "difficult"
)

var Topics = []string{TopicHTML, TopicCSS, TopicJS, TopicGIT, TopicBASH}

var Difficulties = []string{DifficultyEasy, DifficultyDifficult}

func ValidTopic(topic string) bool {
	for _, t := range Topics {
		if t == topic {
			return true
		}
	}
	return false
}

func ValidDifficulty(difficulty string) bool {
	for _, d := range Difficulties {
		if d == difficulty {
			return true
		}
	}
	return false
}

// BotConfig holds everything main reads from the environment.
type BotConfig struct {
	BotToken          string
	AdminID           int64
	AdminPasswordHash string
	DBPath            string
	RedisURL          string
	SessionLength     int
	PerQuestionSecs   int
	AdminSessionTTL   time.Duration
}
