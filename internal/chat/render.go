package chat

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/adamavenir/tavern/internal/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var authorPalette = []lipgloss.Color{
	lipgloss.Color("111"),
	lipgloss.Color("157"),
	lipgloss.Color("216"),
	lipgloss.Color("36"),
	lipgloss.Color("183"),
	lipgloss.Color("230"),
}

var (
	metaColor   = lipgloss.Color("242")
	statusColor = lipgloss.Color("241")
	rollColor   = lipgloss.Color("220")
	barColor    = lipgloss.Color("57")
	inputBg     = lipgloss.Color("236")
	caretColor  = lipgloss.Color("111")
)

const (
	beginningMarker = "· beginning of the campaign ·"
	// beginningRows is the marker line plus its blank separator.
	beginningRows = 2
)

func colorForAuthor(author string) lipgloss.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(author))
	return authorPalette[int(h.Sum32()%uint32(len(authorPalette)))]
}

// renderMessages lays the list out as rows and returns the row offset of
// each message's first line.
func renderMessages(messages []types.Message, width int, beginning bool) (string, map[string]int) {
	offsets := make(map[string]int, len(messages))
	chunks := make([]string, 0, len(messages)+1)
	line := 0
	if beginning {
		marker := lipgloss.NewStyle().Foreground(metaColor).Faint(true).Render(beginningMarker)
		chunks = append(chunks, marker)
		line += beginningRows
	}
	for _, msg := range messages {
		offsets[msg.ID] = line
		chunk := formatMessage(msg, width)
		chunks = append(chunks, chunk)
		line += strings.Count(chunk, "\n") + 2
	}
	return strings.Join(chunks, "\n\n"), offsets
}

func formatMessage(msg types.Message, width int) string {
	clock := lipgloss.NewStyle().Foreground(metaColor).Render(time.Unix(msg.TS, 0).Format("15:04"))
	author := lipgloss.NewStyle().Foreground(colorForAuthor(msg.Author)).Bold(true).Render(msg.Author)

	var header, body string
	switch msg.Type {
	case types.MessageTypeRoll:
		header = fmt.Sprintf("%s %s rolled", clock, author)
		body = lipgloss.NewStyle().Foreground(rollColor).Bold(true).Render(wrap(msg.Body, width))
	case types.MessageTypeSystem:
		header = clock
		body = lipgloss.NewStyle().Foreground(metaColor).Italic(true).Render(wrap(msg.Body, width))
	default:
		header = fmt.Sprintf("%s %s", clock, author)
		body = wrap(highlightCodeBlocks(msg.Body), width)
	}

	lines := []string{header}
	if body != "" {
		lines = append(lines, body)
	}
	for _, a := range msg.Attachments {
		lines = append(lines, formatAttachment(a))
	}
	return strings.Join(lines, "\n")
}

func formatAttachment(a types.Attachment) string {
	kind := "file"
	if a.IsImage() {
		kind = "image"
	}
	return lipgloss.NewStyle().Foreground(metaColor).Render(fmt.Sprintf("[%s] %s", kind, a.Name))
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Wrap(s, width, "")
}
