package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/frontendlab/testbot/models"
)

func (b *Bot) sendMainMenu(chatID int64) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Start a test", "start_test"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 My stats", "show_stats"),
			tgbotapi.NewInlineKeyboardButtonData("🏆 Leaderboard", "show_leaderboard"),
		),
	)
	b.sendWithKeyboard(chatID, "Main menu. Pick an option or use /help for the full command list.", kb)
}

// sendTopicMenu lists the five sections a test can cover.
func (b *Bot) sendTopicMenu(chatID int64) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("HTML", "section_"+models.TopicHTML),
			tgbotapi.NewInlineKeyboardButtonData("CSS", "section_"+models.TopicCSS),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("JavaScript", "section_"+models.TopicJS),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Git", "section_"+models.TopicGIT),
			tgbotapi.NewInlineKeyboardButtonData("Bash", "section_"+models.TopicBASH),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back", "main_menu"),
		),
	)
	b.sendWithKeyboard(chatID, "Choose a section:", kb)
}

func (b *Bot) sendDifficultyMenu(chatID int64, topic string) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🙂 Easy", fmt.Sprintf("quiz_%s_%s", topic, models.DifficultyEasy)),
			tgbotapi.NewInlineKeyboardButtonData("🔥 Difficult", fmt.Sprintf("quiz_%s_%s", topic, models.DifficultyDifficult)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back", "start_test"),
		),
	)
	b.sendWithKeyboard(chatID, fmt.Sprintf("%s it is. Choose a difficulty:", topic), kb)
}

func (b *Bot) sendRankingsMenu(chatID int64) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("HTML", "rank_"+models.TopicHTML),
			tgbotapi.NewInlineKeyboardButtonData("CSS", "rank_"+models.TopicCSS),
			tgbotapi.NewInlineKeyboardButtonData("JS", "rank_"+models.TopicJS),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Git", "rank_"+models.TopicGIT),
			tgbotapi.NewInlineKeyboardButtonData("Bash", "rank_"+models.TopicBASH),
		),
	)
	b.sendWithKeyboard(chatID, "Rankings for which section?", kb)
}

func (b *Bot) sendAdminMenu(chatID int64) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 Pending users", "admin_pending"),
			tgbotapi.NewInlineKeyboardButtonData("📈 Statistics", "admin_stats"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add question", "admin_add_q"),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Edit question", "admin_edit_q"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete question", "admin_del_q"),
			tgbotapi.NewInlineKeyboardButtonData("📋 List questions", "admin_list_q"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧑‍🤝‍🧑 Users", "admin_users"),
			tgbotapi.NewInlineKeyboardButtonData("💾 Backup", "admin_backup"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📜 Audit log", "admin_audit"),
		),
	)
	b.sendWithKeyboard(chatID, "Admin console:", kb)
}
