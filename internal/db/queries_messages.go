package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adamavenir/tavern/internal/types"
	"github.com/google/uuid"
)

// messageColumns is the explicit column list for SELECT queries. seq is the
// rowid, which only grows as messages are inserted.
const messageColumns = `guid, ts, campaign, author, body, type, attachments, rowid AS seq`

// pagedColumns selects messageColumns back out of a subquery.
const pagedColumns = `guid, ts, campaign, author, body, type, attachments, seq`

// ErrEmptyMessage is returned when a message has no body and no attachments.
var ErrEmptyMessage = errors.New("message is empty")

// EnsureCampaign creates the campaign if it does not exist.
func EnsureCampaign(db *sql.DB, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("campaign name is required")
	}
	_, err := db.Exec(`INSERT OR IGNORE INTO tavern_campaigns (name, created_at) VALUES (?, ?)`, name, time.Now().Unix())
	return err
}

// ListCampaigns returns campaigns with message statistics.
func ListCampaigns(db *sql.DB) ([]types.Campaign, error) {
	rows, err := db.Query(`
		SELECT c.name, c.created_at, COUNT(m.guid), COALESCE(MAX(m.ts), 0)
		FROM tavern_campaigns c
		LEFT JOIN tavern_messages m ON m.campaign = c.name
		GROUP BY c.name
		ORDER BY c.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []types.Campaign
	for rows.Next() {
		var c types.Campaign
		if err := rows.Scan(&c.Name, &c.CreatedAt, &c.MessageCount, &c.LastTS); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// NewMessageGUID returns a fresh message id.
func NewMessageGUID() string {
	return "msg-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// CreateMessage inserts a new message.
func CreateMessage(db *sql.DB, message types.Message) (types.Message, error) {
	if strings.TrimSpace(message.Body) == "" && len(message.Attachments) == 0 {
		return types.Message{}, ErrEmptyMessage
	}
	if message.TS == 0 {
		message.TS = time.Now().Unix()
	}
	if message.Type == "" {
		message.Type = types.MessageTypeChat
	}
	if !message.Type.Valid() {
		return types.Message{}, fmt.Errorf("unknown message type %q", message.Type)
	}
	if message.ID == "" {
		message.ID = NewMessageGUID()
	}
	if err := EnsureCampaign(db, message.Campaign); err != nil {
		return types.Message{}, err
	}

	attachments := message.Attachments
	if attachments == nil {
		attachments = []types.Attachment{}
	}
	attachmentsJSON, err := json.Marshal(attachments)
	if err != nil {
		return types.Message{}, err
	}

	result, err := db.Exec(`
		INSERT INTO tavern_messages (guid, ts, campaign, author, body, type, attachments)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, message.ID, message.TS, message.Campaign, message.Author, message.Body, string(message.Type), string(attachmentsJSON))
	if err != nil {
		return types.Message{}, fmt.Errorf("insert message: %w", err)
	}
	if message.Seq, err = result.LastInsertId(); err != nil {
		return types.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return message, nil
}

// GetMessage returns a single message by guid, or nil if missing.
func GetMessage(db *sql.DB, guid string) (*types.Message, error) {
	row := db.QueryRow("SELECT "+messageColumns+" FROM tavern_messages WHERE guid = ?", guid)
	msg, err := scanMessage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// GetMessages returns messages in chronological order.
//
// With Before and a Limit it returns the newest Limit messages older than
// the cursor, which is the page a backward scroll needs. With Since it
// returns everything newer than the cursor, oldest first; a Since cursor
// carrying a Seq returns everything inserted after it in insertion order,
// so a late write stamped with an earlier second is not skipped. With only
// a Limit it returns the latest page.
func GetMessages(db *sql.DB, options *types.MessageQueryOptions) ([]types.Message, error) {
	if options == nil {
		options = &types.MessageQueryOptions{}
	}

	var conditions []string
	var params []any
	if options.Campaign != "" {
		conditions = append(conditions, "campaign = ?")
		params = append(params, options.Campaign)
	}
	if options.Author != "" {
		conditions = append(conditions, "author = ?")
		params = append(params, options.Author)
	}
	bySeq := options.Since != nil && options.Since.Seq > 0
	if bySeq {
		conditions = append(conditions, "rowid > ?")
		params = append(params, options.Since.Seq)
	} else if options.Since != nil {
		clause, args := buildCursorCondition(">", options.Since)
		conditions = append(conditions, clause)
		params = append(params, args...)
	}
	if options.Before != nil {
		clause, args := buildCursorCondition("<", options.Before)
		conditions = append(conditions, clause)
		params = append(params, args...)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var query string
	if options.Limit > 0 && options.Since == nil {
		query = fmt.Sprintf(`
			SELECT %s FROM (
				SELECT %s FROM tavern_messages%s
				ORDER BY ts DESC, guid DESC
				LIMIT ?
			) ORDER BY ts ASC, guid ASC
		`, pagedColumns, messageColumns, whereClause)
		params = append(params, options.Limit)
	} else {
		order := " ORDER BY ts ASC, guid ASC"
		if bySeq {
			order = " ORDER BY rowid ASC"
		}
		query = "SELECT " + messageColumns + " FROM tavern_messages" + whereClause + order
		if options.Limit > 0 {
			query += " LIMIT ?"
			params = append(params, options.Limit)
		}
	}

	rows, err := db.Query(query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// CountMessages returns the number of messages in a campaign.
func CountMessages(db *sql.DB, campaign string) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM tavern_messages WHERE campaign = ?", campaign).Scan(&count)
	return count, err
}

// HasOlder reports whether any message in the campaign precedes cursor.
func HasOlder(db *sql.DB, campaign string, cursor *types.MessageCursor) (bool, error) {
	if cursor == nil {
		return false, nil
	}
	clause, args := buildCursorCondition("<", cursor)
	var exists int
	err := db.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM tavern_messages WHERE campaign = ? AND "+clause+")",
		append([]any{campaign}, args...)...,
	).Scan(&exists)
	return exists == 1, err
}

func buildCursorCondition(op string, cursor *types.MessageCursor) (string, []any) {
	clause := fmt.Sprintf("(ts %s ? OR (ts = ? AND guid %s ?))", op, op)
	return clause, []any{cursor.TS, cursor.TS, cursor.GUID}
}

func scanMessages(rows *sql.Rows) ([]types.Message, error) {
	var messages []types.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func scanMessage(scanner interface{ Scan(dest ...any) error }) (types.Message, error) {
	var (
		msg         types.Message
		msgType     string
		attachments string
	)
	if err := scanner.Scan(&msg.ID, &msg.TS, &msg.Campaign, &msg.Author, &msg.Body, &msgType, &attachments, &msg.Seq); err != nil {
		return types.Message{}, err
	}
	msg.Type = types.MessageType(msgType)
	if attachments != "" && attachments != "[]" {
		if err := json.Unmarshal([]byte(attachments), &msg.Attachments); err != nil {
			return types.Message{}, fmt.Errorf("decode attachments for %s: %w", msg.ID, err)
		}
	}
	return msg, nil
}

// FindMessagesByPrefix returns up to limit messages whose guid starts with
// "msg-"+prefix, newest first.
func FindMessagesByPrefix(db *sql.DB, campaign, prefix string, limit int) ([]types.Message, error) {
	query := "SELECT " + messageColumns + " FROM tavern_messages WHERE guid LIKE ?"
	params := []any{"msg-" + prefix + "%"}
	if campaign != "" {
		query += " AND campaign = ?"
		params = append(params, campaign)
	}
	query += " ORDER BY ts DESC, guid DESC LIMIT ?"
	params = append(params, limit)

	rows, err := db.Query(query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}
