package telegram

import (
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/frontendlab/testbot/auth"
	"github.com/frontendlab/testbot/db"
	"github.com/frontendlab/testbot/engine"
	"github.com/frontendlab/testbot/jobs"
	"github.com/frontendlab/testbot/models"
	"github.com/frontendlab/testbot/utils"
)

// Bot wires the Telegram transport to the session engine, the database and
// the job queue. One goroutine drains the update channel; everything the
// engine does asynchronously (timeouts) comes back through the Presenter.
type Bot struct {
	api      *tgbotapi.BotAPI
	database *db.DB
	engine   *engine.Engine
	admin    *auth.SessionStore
	jobs     *jobs.JobManager
	cfg      models.BotConfig

	dialogs map[int64]*dialog
	mu      sync.Mutex
}

// dialog tracks a multi-step text conversation, like registration or the
// admin question editor. At most one per chat.
type dialog struct {
	step  string
	draft models.QuestionRequest
	qID   int
}

func NewBot(cfg models.BotConfig, database *db.DB, admin *auth.SessionStore, jm *jobs.JobManager) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}

	utils.LogStartup("Authorized on account: %s", api.Self.UserName)

	return &Bot{
		api:      api,
		database: database,
		admin:    admin,
		jobs:     jm,
		cfg:      cfg,
		dialogs:  make(map[int64]*dialog),
	}, nil
}

// SetEngine breaks the construction cycle: the engine needs the bot as its
// presenter, the bot needs the engine for quiz callbacks.
func (b *Bot) SetEngine(eng *engine.Engine) {
	b.engine = eng
}

// Run drains updates until the channel is closed by Stop.
func (b *Bot) Run() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	utils.LogBot("Update loop started")
	for update := range updates {
		if update.Message != nil {
			b.handleMessage(update.Message)
		}
		if update.CallbackQuery != nil {
			b.handleCallback(update.CallbackQuery)
		}
	}
	utils.LogBot("Update loop stopped")
}

func (b *Bot) Stop() {
	utils.LogShutdown("Stopping Telegram update loop...")
	b.api.StopReceivingUpdates()
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.clearDialog(chatID)
		b.handleCommand(msg)
		return
	}

	// Plain text only matters inside a dialog.
	if d := b.getDialog(chatID); d != nil {
		b.handleDialogInput(msg, d)
		return
	}

	b.sendText(chatID, "Use the menu buttons or /help to see what I can do.")
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	utils.LogBot("Command /%s from %d", msg.Command(), chatID)

	switch msg.Command() {
	case "start":
		b.handleStart(msg)
	case "help":
		b.handleHelp(chatID)
	case "test":
		b.requireApproved(chatID, b.sendTopicMenu)
	case "cancel":
		b.handleCancelCommand(chatID)
	case "stats":
		b.requireApproved(chatID, b.handleStats)
	case "history":
		b.requireApproved(chatID, b.handleHistory)
	case "retry":
		b.requireApproved(chatID, b.handleRetry)
	case "progress":
		b.requireApproved(chatID, b.handleProgress)
	case "compare":
		b.requireApproved(chatID, b.handleCompare)
	case "leaderboard":
		b.requireApproved(chatID, b.handleLeaderboard)
	case "rankings":
		b.requireApproved(chatID, b.sendRankingsMenu)
	case "profile":
		b.requireApproved(chatID, b.handleProfile)
	case "notify":
		b.requireApproved(chatID, b.handleNotifyToggle)
	case "about":
		b.handleAbout(chatID)
	case "faq":
		b.handleFAQ(chatID)
	case "admin":
		b.handleAdminCommand(chatID)
	case "broadcast":
		b.handleBroadcastCommand(chatID)
	case "logout":
		b.handleLogout(chatID)
	default:
		b.sendText(chatID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	data := callback.Data

	// Answer the query up front so the client stops its spinner; quiz
	// answers override this with their own toast below.
	ack := ""
	defer func() {
		cb := tgbotapi.NewCallback(callback.ID, ack)
		if _, err := b.api.Request(cb); err != nil {
			utils.LogError("Failed to answer callback: %v", err)
		}
	}()

	switch {
	case strings.HasPrefix(data, "answer_"):
		ack = b.handleAnswerCallback(chatID, data)
	case strings.HasPrefix(data, "section_"):
		b.handleSectionCallback(chatID, data)
	case strings.HasPrefix(data, "quiz_"):
		b.handleQuizStartCallback(chatID, data)
	case data == "cancel_test":
		ack = b.handleCancelCallback(chatID)
	case data == "main_menu":
		b.sendMainMenu(chatID)
	case data == "start_test":
		b.requireApproved(chatID, b.sendTopicMenu)
	case data == "show_stats":
		b.requireApproved(chatID, b.handleStats)
	case data == "show_leaderboard":
		b.requireApproved(chatID, b.handleLeaderboard)
	case strings.HasPrefix(data, "rank_"):
		b.requireApproved(chatID, func(id int64) {
			b.handleRankingsCallback(id, data)
		})
	case strings.HasPrefix(data, "approve_"), strings.HasPrefix(data, "reject_"):
		b.handleReviewCallback(chatID, data)
	case strings.HasPrefix(data, "admin_"):
		b.handleAdminCallback(chatID, data)
	case strings.HasPrefix(data, "aq_"):
		b.handleQuestionDialogCallback(chatID, data)
	default:
		utils.LogWarn("Unrecognized callback data from %d: %q", chatID, data)
	}
}

// requireApproved runs fn only for users who passed admin review.
func (b *Bot) requireApproved(chatID int64, fn func(int64)) {
	approved, err := b.database.IsApproved(chatID)
	if err != nil {
		b.sendText(chatID, "Something went wrong, please try again.")
		return
	}
	if !approved {
		b.sendText(chatID, "Your registration is not approved yet. Send /start to register.")
		return
	}
	fn(chatID)
}

func (b *Bot) getDialog(chatID int64) *dialog {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dialogs[chatID]
}

func (b *Bot) setDialog(chatID int64, d *dialog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dialogs[chatID] = d
}

func (b *Bot) clearDialog(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.dialogs, chatID)
}

// SendText implements jobs.MessageSender so queued broadcasts and alerts go
// out through the same API client.
func (b *Bot) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}

// sendText is the fire-and-forget variant for interactive replies.
func (b *Bot) sendText(chatID int64, text string) {
	if err := b.SendText(chatID, text); err != nil {
		utils.LogError("Failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		utils.LogError("Failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) isAdmin(chatID int64) bool {
	return chatID == b.cfg.AdminID
}
