package telegram

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/frontendlab/testbot/models"
	"github.com/frontendlab/testbot/utils"
)

const (
	stepAdminPassword = "admin_password"
	stepBroadcastText = "broadcast_text"

	stepQuestionText    = "q_text"
	stepQuestionOptions = "q_options"
	stepQuestionCorrect = "q_correct"
	stepQuestionEditID  = "q_edit_id"
	stepQuestionDelID   = "q_del_id"
)

func (b *Bot) handleAdminCommand(chatID int64) {
	if !b.isAdmin(chatID) {
		b.sendText(chatID, "Unknown command. Try /help.")
		return
	}
	if b.admin.IsAuthenticated(chatID) {
		b.sendAdminMenu(chatID)
		return
	}
	b.setDialog(chatID, &dialog{step: stepAdminPassword})
	b.sendText(chatID, "Admin password:")
}

func (b *Bot) handleLogout(chatID int64) {
	if !b.isAdmin(chatID) {
		b.sendText(chatID, "Unknown command. Try /help.")
		return
	}
	b.admin.Logout(chatID)
	b.sendText(chatID, "Logged out of the admin console.")
}

// requireAdminAuth gates every admin action behind a live console session.
func (b *Bot) requireAdminAuth(chatID int64) bool {
	if !b.isAdmin(chatID) {
		return false
	}
	if !b.admin.IsAuthenticated(chatID) {
		b.sendText(chatID, "Admin session expired. Send /admin to log in again.")
		return false
	}
	return true
}

func (b *Bot) handleAdminCallback(chatID int64, data string) {
	if !b.requireAdminAuth(chatID) {
		return
	}

	switch data {
	case "admin_pending":
		b.showPendingUsers(chatID)
	case "admin_stats":
		b.showAdminStats(chatID)
	case "admin_add_q":
		b.setDialog(chatID, &dialog{})
		b.sendQuestionTopicMenu(chatID)
	case "admin_edit_q":
		b.setDialog(chatID, &dialog{step: stepQuestionEditID})
		b.sendText(chatID, "Send the ID of the question to edit:")
	case "admin_del_q":
		b.setDialog(chatID, &dialog{step: stepQuestionDelID})
		b.sendText(chatID, "Send the ID of the question to delete:")
	case "admin_list_q":
		b.showQuestionList(chatID)
	case "admin_users":
		b.showUserList(chatID)
	case "admin_backup":
		b.sendBackup(chatID)
	case "admin_audit":
		b.showAuditLog(chatID)
	default:
		utils.LogWarn("Unrecognized admin callback: %q", data)
	}
}

func (b *Bot) showPendingUsers(chatID int64) {
	pending, err := b.database.ListPendingUsers()
	if err != nil {
		b.sendText(chatID, "Could not load pending users.")
		return
	}
	if len(pending) == 0 {
		b.sendText(chatID, "No registrations waiting for review.")
		return
	}

	for _, p := range pending {
		b.notifyAdminOfRegistration(p.TelegramID, p.FullName, p.Username)
	}
}

func (b *Bot) showAdminStats(chatID int64) {
	var sb strings.Builder
	sb.WriteString("📈 Statistics\n\n")

	if approved, pending, err := b.database.CountUsers(); err == nil {
		fmt.Fprintf(&sb, "Users: %d approved, %d pending\n", approved, pending)
	}
	if counts, err := b.database.CountQuestions(); err == nil {
		total := 0
		for _, n := range counts {
			total += n
		}
		fmt.Fprintf(&sb, "Questions: %d\n", total)
		for _, topic := range models.Topics {
			for _, diff := range models.Difficulties {
				if n := counts[topic+"/"+diff]; n > 0 {
					fmt.Fprintf(&sb, "  %s/%s: %d\n", topic, diff, n)
				}
			}
		}
	}
	if avg, count, err := b.database.GetGlobalAverage(); err == nil {
		fmt.Fprintf(&sb, "Results: %d, global average %.1f%%\n", count, avg)
	}
	fmt.Fprintf(&sb, "Active sessions: %d\n", b.engine.ActiveSessions())

	b.sendText(chatID, sb.String())
}

// showQuestionList prints the bank in ID order so edits and deletes have
// something to point at. Long banks are capped; the backup has everything.
func (b *Bot) showQuestionList(chatID int64) {
	questions, err := b.database.ExportQuestions()
	if err != nil {
		b.sendText(chatID, "Could not load the question bank.")
		return
	}
	if len(questions) == 0 {
		b.sendText(chatID, "The question bank is empty.")
		return
	}

	const maxListed = 50
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Question bank (%d total)\n\n", len(questions))
	for i, q := range questions {
		if i == maxListed {
			fmt.Fprintf(&sb, "… and %d more, see the backup.", len(questions)-maxListed)
			break
		}
		text := q.Text
		if len(text) > 40 {
			text = text[:40] + "…"
		}
		fmt.Fprintf(&sb, "#%d [%s/%s] %s\n", q.ID, q.Topic, q.Difficulty, text)
	}
	b.sendText(chatID, sb.String())
}

func (b *Bot) showUserList(chatID int64) {
	users, err := b.database.ListUsers()
	if err != nil {
		b.sendText(chatID, "Could not load the user list.")
		return
	}
	if len(users) == 0 {
		b.sendText(chatID, "No approved users yet.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🧑‍🤝‍🧑 Approved users (%d)\n\n", len(users))
	for _, u := range users {
		fmt.Fprintf(&sb, "%s", u.FullName)
		if u.Username != "" {
			fmt.Fprintf(&sb, " (@%s)", u.Username)
		}
		fmt.Fprintf(&sb, " — since %s\n", u.ApprovedAt.Format("02.01.2006"))
	}
	b.sendText(chatID, sb.String())
}

// sendBackup exports the question bank and results as JSON documents.
func (b *Bot) sendBackup(chatID int64) {
	questions, err := b.database.ExportQuestions()
	if err != nil {
		b.sendText(chatID, "Question export failed.")
		return
	}
	results, err := b.database.ExportResults()
	if err != nil {
		b.sendText(chatID, "Result export failed.")
		return
	}
	users, err := b.database.ListUsers()
	if err != nil {
		b.sendText(chatID, "User export failed.")
		return
	}

	backup := map[string]interface{}{
		"questions": questions,
		"results":   results,
		"users":     users,
	}
	payload, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		b.sendText(chatID, "Backup serialization failed.")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "backup.json",
		Bytes: payload,
	})
	if _, err := b.api.Send(doc); err != nil {
		utils.LogError("Failed to send backup: %v", err)
		b.sendText(chatID, "Could not send the backup file.")
		return
	}

	b.database.LogAction(chatID, "backup_exported", fmt.Sprintf("questions=%d results=%d users=%d",
		len(questions), len(results), len(users)))
}

func (b *Bot) showAuditLog(chatID int64) {
	entries, err := b.database.RecentAudit(20)
	if err != nil {
		b.sendText(chatID, "Could not load the audit log.")
		return
	}
	if len(entries) == 0 {
		b.sendText(chatID, "The audit log is empty.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📜 Audit log (newest first)\n\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s  %s", e.CreatedAt.Format("02.01 15:04"), e.Action)
		if e.Details != "" {
			fmt.Fprintf(&sb, " (%s)", e.Details)
		}
		sb.WriteString("\n")
	}
	b.sendText(chatID, sb.String())
}

func (b *Bot) handleBroadcastCommand(chatID int64) {
	if !b.requireAdminAuth(chatID) {
		return
	}
	b.setDialog(chatID, &dialog{step: stepBroadcastText})
	b.sendText(chatID, "Send the announcement text. It goes to every user who has announcements on.")
}

// Question editor dialogs. Topic and difficulty come in via buttons, the
// rest as plain text messages.

func (b *Bot) sendQuestionTopicMenu(chatID int64) {
	var row []tgbotapi.InlineKeyboardButton
	for _, topic := range models.Topics {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(topic, "aq_topic_"+topic))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(row...))
	b.sendWithKeyboard(chatID, "Topic for the question:", kb)
}

func (b *Bot) sendQuestionDifficultyMenu(chatID int64) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("easy", "aq_diff_"+models.DifficultyEasy),
			tgbotapi.NewInlineKeyboardButtonData("difficult", "aq_diff_"+models.DifficultyDifficult),
		),
	)
	b.sendWithKeyboard(chatID, "Difficulty:", kb)
}

func (b *Bot) handleQuestionDialogCallback(chatID int64, data string) {
	if !b.requireAdminAuth(chatID) {
		return
	}
	d := b.getDialog(chatID)
	if d == nil {
		b.sendText(chatID, "That editor session is over. Start again from the admin menu.")
		return
	}

	switch {
	case strings.HasPrefix(data, "aq_topic_"):
		topic := strings.TrimPrefix(data, "aq_topic_")
		if !models.ValidTopic(topic) {
			return
		}
		d.draft.Topic = topic
		b.sendQuestionDifficultyMenu(chatID)
	case strings.HasPrefix(data, "aq_diff_"):
		difficulty := strings.TrimPrefix(data, "aq_diff_")
		if !models.ValidDifficulty(difficulty) {
			return
		}
		d.draft.Difficulty = difficulty
		d.step = stepQuestionText
		b.sendText(chatID, "Send the question text:")
	}
}

// handleDialogInput routes a plain text message to the dialog step waiting
// for it.
func (b *Bot) handleDialogInput(msg *tgbotapi.Message, d *dialog) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch d.step {
	case stepAwaitingName:
		b.handleNameInput(msg)

	case stepAdminPassword:
		b.clearDialog(chatID)
		if !b.isAdmin(chatID) || !b.admin.Login(chatID, text) {
			b.sendText(chatID, "Wrong password.")
			return
		}
		b.database.LogAction(chatID, "admin_login", "")
		b.sendAdminMenu(chatID)

	case stepBroadcastText:
		b.clearDialog(chatID)
		if !b.requireAdminAuth(chatID) {
			return
		}
		b.runBroadcast(chatID, text)

	case stepQuestionText:
		if text == "" {
			b.sendText(chatID, "The question text cannot be empty. Try again:")
			return
		}
		d.draft.Text = text
		d.step = stepQuestionOptions
		b.sendText(chatID, "Send the 4 answer options, one per line:")

	case stepQuestionOptions:
		options := utils.SplitLines(text)
		if len(options) != 4 {
			b.sendText(chatID, fmt.Sprintf("I need exactly 4 lines, got %d. Try again:", len(options)))
			return
		}
		d.draft.Options = options
		d.step = stepQuestionCorrect
		b.sendText(chatID, "Which option is correct? Send a number from 1 to 4:")

	case stepQuestionCorrect:
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 || n > 4 {
			b.sendText(chatID, "Send a number from 1 to 4:")
			return
		}
		d.draft.CorrectIndex = n - 1
		b.clearDialog(chatID)
		b.saveQuestionDraft(chatID, d)

	case stepQuestionEditID:
		id, err := strconv.Atoi(text)
		if err != nil {
			b.sendText(chatID, "Send a numeric question ID:")
			return
		}
		q, err := b.database.GetQuestionByID(id)
		if err != nil {
			b.sendText(chatID, fmt.Sprintf("No question with ID %d.", id))
			b.clearDialog(chatID)
			return
		}
		d.qID = q.ID
		b.sendText(chatID, fmt.Sprintf("Editing question %d:\n\n%s\n\nNow re-enter it from the top.", q.ID, q.Text))
		b.sendQuestionTopicMenu(chatID)

	case stepQuestionDelID:
		b.clearDialog(chatID)
		id, err := strconv.Atoi(text)
		if err != nil {
			b.sendText(chatID, "Send a numeric question ID.")
			return
		}
		if err := b.database.DeleteQuestion(id); err != nil {
			b.sendText(chatID, fmt.Sprintf("Could not delete question %d: %v", id, err))
			return
		}
		b.database.LogAction(chatID, "question_deleted", fmt.Sprintf("id=%d", id))
		b.sendText(chatID, fmt.Sprintf("Question %d deleted. It will not appear in new tests.", id))

	default:
		utils.LogWarn("Dialog for %d stuck in unknown step %q", chatID, d.step)
		b.clearDialog(chatID)
	}
}

func (b *Bot) saveQuestionDraft(chatID int64, d *dialog) {
	if d.qID != 0 {
		if _, err := b.database.UpdateQuestion(d.qID, d.draft); err != nil {
			b.sendText(chatID, fmt.Sprintf("Could not update the question: %v", err))
			return
		}
		b.database.LogAction(chatID, "question_updated", fmt.Sprintf("id=%d", d.qID))
		b.sendText(chatID, fmt.Sprintf("Question %d updated. Running tests keep their current questions.", d.qID))
		return
	}

	q, err := b.database.CreateQuestion(d.draft)
	if err != nil {
		b.sendText(chatID, fmt.Sprintf("Could not save the question: %v", err))
		return
	}
	b.database.LogAction(chatID, "question_created", fmt.Sprintf("id=%d", q.ID))
	b.sendText(chatID, fmt.Sprintf("Saved as question %d in %s/%s.", q.ID, q.Topic, q.Difficulty))
}

func (b *Bot) runBroadcast(chatID int64, text string) {
	if text == "" {
		b.sendText(chatID, "Empty announcement, nothing sent.")
		return
	}

	users, err := b.database.ListNotifiableUsers()
	if err != nil {
		b.sendText(chatID, "Could not load the recipient list.")
		return
	}

	recipients := make([]int64, 0, len(users))
	for _, u := range users {
		if u.TelegramID != chatID {
			recipients = append(recipients, u.TelegramID)
		}
	}

	queued := b.jobs.QueueBroadcast(recipients, "📢 "+text, chatID)
	b.database.LogAction(chatID, "broadcast_sent", fmt.Sprintf("recipients=%d", queued))
	b.sendText(chatID, fmt.Sprintf("Announcement queued for %d user(s).", queued))
}
