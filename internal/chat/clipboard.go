package chat

import (
	"fmt"
	"strconv"

	"github.com/atotto/clipboard"
)

var writeClipboard = clipboard.WriteAll

// copyMessage copies the body of the n-th newest loaded message, 1 being
// the latest.
func (m *Model) copyMessage(args string) {
	n := 1
	if args != "" {
		parsed, err := strconv.Atoi(args)
		if err != nil || parsed < 1 {
			m.status = "usage: /copy [n]"
			return
		}
		n = parsed
	}
	if n > len(m.messages) {
		m.status = fmt.Sprintf("only %d messages loaded", len(m.messages))
		return
	}
	msg := m.messages[len(m.messages)-n]
	if err := writeClipboard(msg.Body); err != nil {
		m.status = "copy failed: " + err.Error()
		m.log.Warn().Err(err).Msg("clipboard write failed")
		return
	}
	m.status = "copied message from " + msg.Author
}
