package chat

import (
	"fmt"
	"strings"

	"github.com/adamavenir/tavern/internal/types"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"
)

// sendNotification is swapped out in tests.
var sendNotification = func(title, body string) error {
	return beeep.Notify(title, body, "")
}

// notificationText builds the desktop notification for a message that
// arrived while the reader was in history.
func notificationText(msg types.Message, campaign string, unread int) (string, string) {
	title := campaign + " · " + msg.Author
	if unread > 1 {
		title = fmt.Sprintf("%s (+%d unread)", title, unread-1)
	}
	body := msg.Body
	if msg.Type == types.MessageTypeRoll {
		body = "rolled " + body
	}
	return title, truncateNotification(body, 100)
}

func notifyCmd(msg types.Message, campaign string, unread int) tea.Cmd {
	title, body := notificationText(msg, campaign, unread)
	return func() tea.Msg {
		if err := sendNotification(title, body); err != nil {
			return errMsg{err: fmt.Errorf("notify: %w", err)}
		}
		return nil
	}
}

func truncateNotification(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
