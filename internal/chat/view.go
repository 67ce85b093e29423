package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

const newMessagesZone = "new-messages"

func (m *Model) View() string {
	if !m.ready {
		return "loading…"
	}
	lines := []string{
		m.renderHeader(),
		m.viewport.View(),
		m.renderIndicator(),
		m.input.View(),
		lipgloss.NewStyle().Foreground(statusColor).Render(m.statusLine()),
	}
	return m.zoneManager.Scan(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Render("tavern")
	return fmt.Sprintf("%s · %s", title, m.campaign)
}

// renderIndicator fills the row between the messages and the input with the
// "loading older" notice and the clickable new-messages bar.
func (m *Model) renderIndicator() string {
	view := m.coord.View()
	var parts []string
	if view.IsFetching {
		parts = append(parts, lipgloss.NewStyle().Foreground(metaColor).Render("↑ loading older messages…"))
	}
	if view.HasNew {
		label := fmt.Sprintf(" %s ↓ ", english.Plural(view.UnreadCount, "new message", ""))
		bar := lipgloss.NewStyle().Background(barColor).Foreground(lipgloss.Color("231")).Bold(true).Render(label)
		parts = append(parts, m.zoneManager.Mark(newMessagesZone, bar))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) statusLine() string {
	parts := []string{
		english.Plural(m.total, "message", ""),
	}
	if len(m.messages) > 0 {
		last := m.messages[len(m.messages)-1]
		parts = append(parts, "last "+humanize.Time(time.Unix(last.TS, 0)))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return strings.Join(parts, " · ")
}
