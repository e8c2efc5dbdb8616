package telegram

import (
	"errors"
	"strconv"
	"strings"

	"github.com/frontendlab/testbot/engine"
	"github.com/frontendlab/testbot/models"
	"github.com/frontendlab/testbot/utils"
)

// handleSectionCallback shows the difficulty menu for a chosen topic.
func (b *Bot) handleSectionCallback(chatID int64, data string) {
	topic := strings.TrimPrefix(data, "section_")
	if !models.ValidTopic(topic) {
		utils.LogWarn("Bad topic in callback from %d: %q", chatID, data)
		return
	}
	b.requireApproved(chatID, func(id int64) {
		b.sendDifficultyMenu(id, topic)
	})
}

// handleQuizStartCallback starts a session. Data is "quiz_<topic>_<difficulty>".
func (b *Bot) handleQuizStartCallback(chatID int64, data string) {
	parts := strings.Split(data, "_")
	if len(parts) != 3 {
		utils.LogWarn("Malformed quiz callback from %d: %q", chatID, data)
		return
	}
	topic, difficulty := parts[1], parts[2]
	if !models.ValidTopic(topic) || !models.ValidDifficulty(difficulty) {
		utils.LogWarn("Bad tier in quiz callback from %d: %q", chatID, data)
		return
	}

	b.requireApproved(chatID, func(id int64) {
		err := b.engine.Start(id, topic, difficulty)
		switch {
		case errors.Is(err, engine.ErrSessionAlreadyActive):
			b.sendText(id, "You already have a test running. Finish it or send /cancel first.")
		case errors.Is(err, engine.ErrNoQuestionsAvailable):
			b.sendText(id, "No questions are available for that section yet. Try another one.")
		case err != nil:
			utils.LogError("Failed to start session for %d: %v", id, err)
			b.sendText(id, "Could not start the test, please try again.")
		}
	})
}

// handleAnswerCallback forwards a tapped option to the engine. Data is
// "answer_<questionIndex>_<optionIndex>"; the index pins the answer to the
// question it was shown for, so a tap that arrives after the timeout
// advanced the session is refused instead of counted against the wrong
// question.
func (b *Bot) handleAnswerCallback(chatID int64, data string) string {
	parts := strings.Split(data, "_")
	if len(parts) != 3 {
		return ""
	}
	questionIndex, err1 := strconv.Atoi(parts[1])
	chosenIndex, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		utils.LogWarn("Malformed answer callback from %d: %q", chatID, data)
		return ""
	}

	err := b.engine.SubmitAnswer(chatID, questionIndex, chosenIndex)
	switch {
	case errors.Is(err, engine.ErrNoActiveSession):
		return "No test is running."
	case errors.Is(err, engine.ErrStaleAnswer):
		return "⏰ Too late, that question already closed."
	case err != nil:
		utils.LogError("SubmitAnswer failed for %d: %v", chatID, err)
		return "Something went wrong."
	}
	return ""
}

func (b *Bot) handleCancelCommand(chatID int64) {
	err := b.engine.Cancel(chatID)
	if errors.Is(err, engine.ErrNoActiveSession) {
		b.sendText(chatID, "You have no test running.")
		return
	}
	if err != nil {
		utils.LogError("Cancel failed for %d: %v", chatID, err)
		return
	}
	b.sendText(chatID, "Test cancelled. Nothing was recorded.")
	b.sendMainMenu(chatID)
}

func (b *Bot) handleCancelCallback(chatID int64) string {
	err := b.engine.Cancel(chatID)
	if errors.Is(err, engine.ErrNoActiveSession) {
		return "No test is running."
	}
	if err != nil {
		return "Something went wrong."
	}
	b.sendText(chatID, "Test cancelled. Nothing was recorded.")
	return "Cancelled."
}
