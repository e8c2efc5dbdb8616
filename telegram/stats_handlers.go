package telegram

import (
	"fmt"
	"strings"

	"github.com/frontendlab/testbot/models"
	"github.com/frontendlab/testbot/utils"
)

func (b *Bot) handleHelp(chatID int64) {
	help := `Available commands:

/test — start a new test
/cancel — abandon the running test
/stats — your overall numbers
/history — your last results
/retry — repeat your last test setup
/progress — per-section breakdown
/compare — you against the global average
/leaderboard — top users overall
/rankings — top users per section
/profile — your account details
/notify — toggle announcements
/about — what this bot is
/faq — common questions`
	b.sendText(chatID, help)
}

func (b *Bot) handleStats(chatID int64) {
	stats, err := b.database.GetUserStats(chatID)
	if err != nil {
		b.sendText(chatID, "Could not load your stats, please try again.")
		return
	}
	if stats.TotalTests == 0 {
		b.sendText(chatID, "You have not finished any tests yet. Send /test to take your first one!")
		return
	}

	text := fmt.Sprintf(
		"📊 Your stats\n\nTests taken: %d\nAverage score: %.1f%%\nBest score: %d%%\nCorrect answers in total: %d",
		stats.TotalTests, stats.AveragePct, stats.BestPct, stats.TotalCorrect)
	b.sendText(chatID, text)
}

func (b *Bot) handleHistory(chatID int64) {
	results, err := b.database.GetUserHistory(chatID, 10)
	if err != nil {
		b.sendText(chatID, "Could not load your history, please try again.")
		return
	}
	if len(results) == 0 {
		b.sendText(chatID, "No history yet. Send /test to take your first test!")
		return
	}

	var sb strings.Builder
	sb.WriteString("🗂 Your last results\n\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "%s  %s/%s — %d/%d (%d%%)\n",
			r.CreatedAt.Format("02.01 15:04"), r.Topic, r.Difficulty,
			r.CorrectCount, r.TotalQuestions, r.Percentage)
	}
	b.sendText(chatID, sb.String())
}

// handleRetry starts a new test with the same topic and difficulty as the
// user's most recent one.
func (b *Bot) handleRetry(chatID int64) {
	last, err := b.database.GetLastResult(chatID)
	if err != nil {
		b.sendText(chatID, "Could not look up your last test, please try again.")
		return
	}
	if last == nil {
		b.sendText(chatID, "Nothing to retry yet. Send /test to take your first test!")
		return
	}

	b.handleQuizStartCallback(chatID, fmt.Sprintf("quiz_%s_%s", last.Topic, last.Difficulty))
}

func (b *Bot) handleProgress(chatID int64) {
	progress, err := b.database.GetTopicProgress(chatID)
	if err != nil {
		b.sendText(chatID, "Could not load your progress, please try again.")
		return
	}
	if len(progress) == 0 {
		b.sendText(chatID, "No progress to show yet. Send /test to get started!")
		return
	}

	covered := make(map[string]bool)
	var sb strings.Builder
	sb.WriteString("📈 Progress by section\n\n")
	for _, p := range progress {
		covered[p.Topic] = true
		fmt.Fprintf(&sb, "%s: %d test(s), %.1f%% average\n", p.Topic, p.Tests, p.AveragePct)
	}

	var missing []string
	for _, topic := range models.Topics {
		if !covered[topic] {
			missing = append(missing, topic)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(&sb, "\nNot tried yet: %s", strings.Join(missing, ", "))
	}
	b.sendText(chatID, sb.String())
}

// handleCompare puts the user's average next to everyone's.
func (b *Bot) handleCompare(chatID int64) {
	stats, err := b.database.GetUserStats(chatID)
	if err != nil {
		b.sendText(chatID, "Could not load your stats, please try again.")
		return
	}
	if stats.TotalTests == 0 {
		b.sendText(chatID, "Take a test first, then I will have something to compare.")
		return
	}

	globalAvg, count, err := b.database.GetGlobalAverage()
	if err != nil {
		b.sendText(chatID, "Could not load the global numbers, please try again.")
		return
	}

	diff := stats.AveragePct - globalAvg
	verdict := "right at the average. 🎯"
	if diff >= 1 {
		verdict = fmt.Sprintf("%.1f points above the average. 💪", diff)
	} else if diff <= -1 {
		verdict = fmt.Sprintf("%.1f points below the average. Keep at it! 📚", -diff)
	}

	text := fmt.Sprintf(
		"⚖️ Comparison\n\nYour average: %.1f%%\nGlobal average: %.1f%% (over %d tests)\n\nYou are %s",
		stats.AveragePct, globalAvg, count, verdict)
	b.sendText(chatID, text)
}

func (b *Bot) handleLeaderboard(chatID int64) {
	entries, err := b.database.GetLeaderboard(10)
	if err != nil {
		b.sendText(chatID, "Could not load the leaderboard, please try again.")
		return
	}
	if len(entries) == 0 {
		b.sendText(chatID, "🏆 Leaderboard\n\nNo results yet. Be the first! 🎯")
		return
	}

	b.sendText(chatID, formatRanking("🏆 Top 10 overall", entries))
}

func (b *Bot) handleRankingsCallback(chatID int64, data string) {
	topic := strings.TrimPrefix(data, "rank_")
	if !models.ValidTopic(topic) {
		utils.LogWarn("Bad topic in rankings callback from %d: %q", chatID, data)
		return
	}

	entries, err := b.database.GetTopicRankings(topic, 10)
	if err != nil {
		b.sendText(chatID, "Could not load the rankings, please try again.")
		return
	}
	if len(entries) == 0 {
		b.sendText(chatID, fmt.Sprintf("No %s results yet. Be the first! 🎯", topic))
		return
	}

	b.sendText(chatID, formatRanking(fmt.Sprintf("🏆 Top 10 in %s", topic), entries))
}

func formatRanking(title string, entries []models.LeaderboardEntry) string {
	var sb strings.Builder
	sb.WriteString(title + "\n\n")
	for i, e := range entries {
		medal := "🔸"
		switch i {
		case 0:
			medal = "🥇"
		case 1:
			medal = "🥈"
		case 2:
			medal = "🥉"
		}
		fmt.Fprintf(&sb, "%s %d. %s — %.1f%% over %d test(s)\n", medal, i+1, e.FullName, e.AveragePct, e.Tests)
	}
	return sb.String()
}

func (b *Bot) handleProfile(chatID int64) {
	user, err := b.database.GetUser(chatID)
	if err != nil || user == nil {
		b.sendText(chatID, "Could not load your profile, please try again.")
		return
	}

	notify := "on"
	if !user.Notify {
		notify = "off"
	}
	text := fmt.Sprintf(
		"👤 Profile\n\nName: %s\nRegistered: %s\nApproved: %s\nAnnouncements: %s",
		user.FullName,
		user.CreatedAt.Format("02.01.2006"),
		user.ApprovedAt.Format("02.01.2006"),
		notify)
	b.sendText(chatID, text)
}

func (b *Bot) handleNotifyToggle(chatID int64) {
	user, err := b.database.GetUser(chatID)
	if err != nil || user == nil {
		b.sendText(chatID, "Could not load your profile, please try again.")
		return
	}

	if err := b.database.SetNotify(chatID, !user.Notify); err != nil {
		b.sendText(chatID, "Could not update your settings, please try again.")
		return
	}

	if user.Notify {
		b.sendText(chatID, "🔕 Announcements are now off.")
	} else {
		b.sendText(chatID, "🔔 Announcements are now on.")
	}
}

func (b *Bot) handleAbout(chatID int64) {
	b.sendText(chatID, "This bot runs timed multiple-choice tests on HTML, CSS, JavaScript, Git and Bash. "+
		"Each test is 20 questions with 20 seconds per question. Results feed your personal stats and the leaderboard.")
}

func (b *Bot) handleFAQ(chatID int64) {
	faq := `❔ FAQ

Q: How long is a test?
A: 20 questions, 20 seconds each.

Q: What if I do not answer in time?
A: The question counts as unanswered and the next one appears.

Q: Can I pause a test?
A: No. You can /cancel it, but nothing is recorded then.

Q: Can I take a test twice?
A: Yes, as often as you like. Every finished test counts toward your average.

Q: Why can't I start a test?
A: The admin has to approve your registration first.`
	b.sendText(chatID, faq)
}
