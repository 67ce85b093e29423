package core

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adamavenir/tavern/internal/db"
	"github.com/adamavenir/tavern/internal/types"
)

const minRefPrefix = 2

var relativeUnits = map[byte]time.Duration{
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

func parseRelativeTime(value string, now time.Time) (time.Time, bool) {
	if len(value) < 2 {
		return time.Time{}, false
	}
	unit, ok := relativeUnits[value[len(value)-1]|0x20]
	if !ok {
		return time.Time{}, false
	}
	amount, err := strconv.Atoi(value[:len(value)-1])
	if err != nil || amount <= 0 {
		return time.Time{}, false
	}
	return now.Add(-time.Duration(amount) * unit), true
}

func parseAbsoluteTime(value string, now time.Time) (time.Time, bool) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch strings.ToLower(value) {
	case "today":
		return midnight, true
	case "yesterday":
		return midnight.AddDate(0, 0, -1), true
	}
	if ts, err := time.ParseInLocation("2006-01-02", value, now.Location()); err == nil {
		return ts, true
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, true
	}
	return time.Time{}, false
}

func isRef(value string) bool {
	return strings.HasPrefix(value, "#") || strings.HasPrefix(value, "msg-")
}

// resolveRef turns "#abcd" or a full "msg-..." id into the message's cursor.
func resolveRef(conn *sql.DB, campaign, value string) (*types.MessageCursor, error) {
	raw := strings.TrimPrefix(value, "#")
	if strings.HasPrefix(raw, "msg-") {
		msg, err := db.GetMessage(conn, raw)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			return nil, fmt.Errorf("message %s not found", raw)
		}
		return msg.Cursor(), nil
	}

	if len(raw) < minRefPrefix {
		return nil, fmt.Errorf("message prefix too short: #%s", raw)
	}
	for _, r := range raw {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z') {
			return nil, fmt.Errorf("invalid message reference #%s", raw)
		}
	}

	matches, err := db.FindMessagesByPrefix(conn, campaign, raw, 5)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no message matches #%s", raw)
	case 1:
		return matches[0].Cursor(), nil
	}
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, "#"+strings.TrimPrefix(m.ID, "msg-"))
	}
	return nil, fmt.Errorf("ambiguous #%s. Matches: %s", raw, strings.Join(refs, ", "))
}

// cursorAt sorts before every message in the boundary second, so a Since
// query includes that second and a Before query excludes it.
func cursorAt(ts time.Time) *types.MessageCursor {
	return &types.MessageCursor{TS: ts.Unix()}
}

// ParseTimeExpression converts a message reference ("#1f3a", "msg-..."),
// a relative time ("30m", "2h", "3d", "1w"), "today", "yesterday", a date
// or an RFC 3339 timestamp into a paging cursor. References resolve within
// campaign.
func ParseTimeExpression(conn *sql.DB, campaign, expression string) (*types.MessageCursor, error) {
	value := strings.TrimSpace(expression)
	if value == "" {
		return nil, fmt.Errorf("empty time expression")
	}
	if isRef(value) {
		return resolveRef(conn, campaign, strings.ToLower(value))
	}

	now := time.Now()
	if ts, ok := parseAbsoluteTime(value, now); ok {
		return cursorAt(ts), nil
	}
	if ts, ok := parseRelativeTime(value, now); ok {
		return cursorAt(ts), nil
	}
	return nil, fmt.Errorf("invalid time expression: %s", expression)
}
