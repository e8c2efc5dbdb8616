package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/frontendlab/testbot/utils"
)

const stepAwaitingName = "awaiting_name"

// handleStart routes a /start by registration status: approved users get the
// menu, pending ones a patience note, everyone else the name prompt.
func (b *Bot) handleStart(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	approved, err := b.database.IsApproved(chatID)
	if err != nil {
		b.sendText(chatID, "Something went wrong, please try again.")
		return
	}
	if approved {
		b.sendMainMenu(chatID)
		return
	}

	pending, err := b.database.GetPendingUser(chatID)
	if err != nil {
		b.sendText(chatID, "Something went wrong, please try again.")
		return
	}
	if pending != nil {
		b.sendText(chatID, "Your registration is waiting for admin review. You will get a message once it is decided.")
		return
	}

	b.setDialog(chatID, &dialog{step: stepAwaitingName})
	b.sendText(chatID, "Welcome! 👋 To register, please send your full name.")
}

// handleNameInput finishes registration once the user sends their name.
func (b *Bot) handleNameInput(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	fullName := strings.TrimSpace(msg.Text)

	if len(fullName) < 3 {
		b.sendText(chatID, "That name looks too short. Please send your full name.")
		return
	}

	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}

	if err := b.database.CreatePendingUser(chatID, fullName, username); err != nil {
		b.sendText(chatID, "Could not save your registration, please try again.")
		return
	}
	b.clearDialog(chatID)

	utils.LogBot("New registration request: %d (%s)", chatID, fullName)
	b.sendText(chatID, "Thanks! Your registration was sent to the admin for review.")

	b.notifyAdminOfRegistration(chatID, fullName, username)
}

func (b *Bot) notifyAdminOfRegistration(userID int64, fullName, username string) {
	text := fmt.Sprintf("New registration request:\n\n%s", fullName)
	if username != "" {
		text += " (@" + username + ")"
	}
	text += fmt.Sprintf("\nTelegram ID: %d", userID)

	msg := tgbotapi.NewMessage(b.cfg.AdminID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", fmt.Sprintf("approve_%d", userID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", fmt.Sprintf("reject_%d", userID)),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		utils.LogError("Failed to notify admin of registration %d: %v", userID, err)
	}
}

// handleReviewCallback processes the admin's approve/reject buttons.
func (b *Bot) handleReviewCallback(chatID int64, data string) {
	if !b.isAdmin(chatID) {
		return
	}

	approve := strings.HasPrefix(data, "approve_")
	idStr := strings.TrimPrefix(strings.TrimPrefix(data, "approve_"), "reject_")
	userID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.LogWarn("Malformed review callback: %q", data)
		return
	}

	if approve {
		user, err := b.database.ApproveUser(userID)
		if err != nil {
			b.sendText(chatID, fmt.Sprintf("Could not approve user %d: %v", userID, err))
			return
		}
		b.database.LogAction(chatID, "user_approved", fmt.Sprintf("telegram_id=%d", userID))
		b.sendText(chatID, fmt.Sprintf("Approved %s.", user.FullName))

		notice := "🎉 Your registration was approved! Send /start to begin."
		if err := b.jobs.QueueApprovalNotice(userID, notice); err != nil {
			// Queue down; deliver directly rather than leave the user waiting.
			b.sendText(userID, notice)
		}
		return
	}

	if err := b.database.RejectUser(userID); err != nil {
		b.sendText(chatID, fmt.Sprintf("Could not reject user %d: %v", userID, err))
		return
	}
	b.database.LogAction(chatID, "user_rejected", fmt.Sprintf("telegram_id=%d", userID))
	b.sendText(chatID, fmt.Sprintf("Rejected registration %d.", userID))

	notice := "Unfortunately your registration was not approved."
	if err := b.jobs.QueueApprovalNotice(userID, notice); err != nil {
		b.sendText(userID, notice)
	}
}
