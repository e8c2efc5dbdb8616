package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/frontendlab/testbot/models"
	"github.com/frontendlab/testbot/utils"
)

// RenderQuestion shows one question with its options as buttons. Each
// button's callback data carries the question index so answers can never be
// credited to a different question than the one on screen.
func (b *Bot) RenderQuestion(userID int64, index int, q models.Question, total, secondsLeft int) {
	text := fmt.Sprintf("❓ Question %d/%d  ·  ⏱ %d seconds\n\n%s", index+1, total, secondsLeft, q.Text)

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, option := range q.Options {
		data := fmt.Sprintf("answer_%d_%d", index, i)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(option, data),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🚪 Cancel test", "cancel_test"),
	))

	msg := tgbotapi.NewMessage(userID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		utils.LogError("Failed to render question %d for %d: %v", index, userID, err)
	}
}

// RenderSummary shows the final score. When the result could not be
// persisted the user still sees their score, with a caveat.
func (b *Bot) RenderSummary(userID int64, r *models.Result, persisted bool) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏁 Test finished!\n\n")
	fmt.Fprintf(&sb, "Section: %s (%s)\n", r.Topic, r.Difficulty)
	fmt.Fprintf(&sb, "Score: %d/%d (%d%%)\n", r.CorrectCount, r.TotalQuestions, r.Percentage)
	fmt.Fprintf(&sb, "Time: %s\n\n", formatDuration(r.DurationSeconds))
	sb.WriteString(gradeLine(r.Percentage))

	timedOut := 0
	for _, a := range r.Answers {
		if a.TimedOut {
			timedOut++
		}
	}
	if timedOut > 0 {
		fmt.Fprintf(&sb, "\n⏰ %d question(s) ran out of time.", timedOut)
	}

	if !persisted {
		sb.WriteString("\n\n⚠️ This result could not be saved and will not appear in your history.")
	}

	msg := tgbotapi.NewMessage(userID, sb.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Another test", "start_test"),
			tgbotapi.NewInlineKeyboardButtonData("📋 Menu", "main_menu"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		utils.LogError("Failed to render summary for %d: %v", userID, err)
	}

	b.notifyAdminOfCompletion(userID, r)
}

// notifyAdminOfCompletion queues a completion alert unless the admin took
// the test themselves.
func (b *Bot) notifyAdminOfCompletion(userID int64, r *models.Result) {
	if userID == b.cfg.AdminID {
		return
	}

	name := fmt.Sprintf("User %d", userID)
	if user, err := b.database.GetUser(userID); err == nil && user != nil {
		name = user.FullName
	}

	text := fmt.Sprintf("📬 %s finished %s/%s: %d/%d (%d%%)",
		name, r.Topic, r.Difficulty, r.CorrectCount, r.TotalQuestions, r.Percentage)
	metadata := map[string]string{
		"user_id": fmt.Sprintf("%d", userID),
		"topic":   r.Topic,
	}
	if err := b.jobs.QueueAdminAlert(b.cfg.AdminID, text, metadata); err != nil {
		utils.LogError("Could not queue completion alert: %v", err)
	}
}

func gradeLine(percentage int) string {
	switch {
	case percentage >= 80:
		return "🏆 Excellent work!"
	case percentage >= 60:
		return "👍 Good job, keep practicing."
	default:
		return "📚 Keep studying, you will get there."
	}
}

func formatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}
