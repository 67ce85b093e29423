package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/adamavenir/tavern/internal/types"
	"github.com/dustin/go-humanize"
)

// FormatMessage renders a message as a single history line.
func FormatMessage(msg types.Message) string {
	ts := time.Unix(msg.TS, 0).Format("Jan 2 15:04")
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s ", msg.ID, ts)
	switch msg.Type {
	case types.MessageTypeRoll:
		fmt.Fprintf(&b, "%s rolled %s", msg.Author, msg.Body)
	case types.MessageTypeSystem:
		fmt.Fprintf(&b, "* %s", msg.Body)
	default:
		fmt.Fprintf(&b, "%s: %s", msg.Author, msg.Body)
	}
	for _, a := range msg.Attachments {
		fmt.Fprintf(&b, " [%s]", a.Name)
	}
	return b.String()
}

// parseAttachment parses a --attach value of the form name[:mime].
func parseAttachment(value string) (types.Attachment, error) {
	name, mime, _ := strings.Cut(value, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Attachment{}, fmt.Errorf("invalid attachment %q: name is required", value)
	}
	mime = strings.TrimSpace(mime)
	if mime == "" {
		mime = "application/octet-stream"
	}
	return types.Attachment{Name: name, MIME: mime}, nil
}

func formatLastActivity(ts int64) string {
	if ts == 0 {
		return "never"
	}
	return humanize.Time(time.Unix(ts, 0))
}

func messagesPayload(rows []types.Message) []map[string]any {
	now := time.Now().Unix()
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]any{
			"id":          row.ID,
			"campaign":    row.Campaign,
			"author":      row.Author,
			"type":        row.Type,
			"body":        row.Body,
			"attachments": row.Attachments,
			"created_at":  time.Unix(row.TS, 0).UTC().Format(time.RFC3339),
			"age_seconds": max(0, now-row.TS),
		})
	}
	return out
}
