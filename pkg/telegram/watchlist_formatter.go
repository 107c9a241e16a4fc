package telegram

import (
	"fmt"
	"strings"
	"time"

	"golang-stock-scanner/internal/entity"
)

// FormatWatchlistForTelegram renders a published watchlist into Markdown
// messages, splitting so no single message exceeds the Telegram limit.
func FormatWatchlistForTelegram(watchlist *entity.Watchlist, publishedAt time.Time) []string {
	if watchlist == nil || len(watchlist.Items) == 0 {
		return []string{"No watchlist entries for this run."}
	}

	const maxLen = 4090
	var messages []string
	var currentMessage strings.Builder
	part := 1

	startNewPart := func() {
		currentMessage.Reset()
		var header string
		if part == 1 {
			header = fmt.Sprintf("📋 *Watchlist %s* (%s policy)\n_%s_\n\n",
				watchlist.AccountID, watchlist.PolicyKind, publishedAt.Format("2006-01-02 15:04"))
		} else {
			header = fmt.Sprintf("---*Watchlist %s Part %d*---\n\n", watchlist.AccountID, part)
		}
		currentMessage.WriteString(header)
	}

	startNewPart()

	for _, item := range watchlist.Items {
		var entryBuilder strings.Builder

		var signalIcon string
		switch item.Signal {
		case entity.SignalBuy:
			signalIcon = "🟢"
		case entity.SignalWait:
			signalIcon = "🟡"
		default:
			signalIcon = "⚪"
		}

		if item.Rank > 0 {
			entryBuilder.WriteString(fmt.Sprintf("%s *#%d %s* — score %.1f (%s)\n",
				signalIcon, item.Rank, item.Symbol, item.CombinedScore, item.Signal))
		} else {
			entryBuilder.WriteString(fmt.Sprintf("%s *%s* — score %.1f (%s)\n",
				signalIcon, item.Symbol, item.CombinedScore, item.Signal))
		}

		entryString := entryBuilder.String()
		if currentMessage.Len()+len(entryString) > maxLen {
			messages = append(messages, currentMessage.String())
			part++
			startNewPart()
		}
		currentMessage.WriteString(entryString)
	}

	if currentMessage.Len() > 0 {
		messages = append(messages, currentMessage.String())
	}
	return messages
}

// FormatErrorAlertMessage renders an operational alert.
func FormatErrorAlertMessage(t time.Time, message string) string {
	return fmt.Sprintf("🚨 *Scanner Alert*\n_%s_\n\n%s", t.Format("2006-01-02 15:04:05"), message)
}
