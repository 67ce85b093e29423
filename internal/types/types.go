package types

import "strings"

// MessageType represents the kind of a campaign message.
type MessageType string

const (
	MessageTypeChat   MessageType = "chat"
	MessageTypeRoll   MessageType = "roll"
	MessageTypeSystem MessageType = "system"
)

// Valid reports whether the type is one of the known kinds.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeChat, MessageTypeRoll, MessageTypeSystem:
		return true
	}
	return false
}

// Attachment is a file shared alongside a message.
type Attachment struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	URL  string `json:"url,omitempty"`
}

// IsImage reports whether the attachment renders as an image.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MIME, "image/")
}

// Message represents a campaign chat message.
type Message struct {
	ID          string       `json:"id"`
	TS          int64        `json:"ts"`
	Campaign    string       `json:"campaign"`
	Author      string       `json:"author"`
	Body        string       `json:"body"`
	Type        MessageType  `json:"type"`
	Attachments []Attachment `json:"attachments,omitempty"`
	// Seq is the store's insertion order.
	Seq int64 `json:"-"`
}

// ItemID identifies the message in the ordered message list.
func (m Message) ItemID() string {
	return m.ID
}

// HasImage reports whether the message carries an image attachment.
func (m Message) HasImage() bool {
	for _, a := range m.Attachments {
		if a.IsImage() {
			return true
		}
	}
	return false
}

// Cursor returns the paging cursor positioned at this message.
func (m Message) Cursor() *MessageCursor {
	return &MessageCursor{GUID: m.ID, TS: m.TS, Seq: m.Seq}
}

// MessageCursor represents a stable paging cursor.
type MessageCursor struct {
	GUID string `json:"guid"`
	TS   int64  `json:"ts"`
	Seq  int64  `json:"seq,omitempty"`
}

// MessageQueryOptions controls message queries.
type MessageQueryOptions struct {
	Campaign string
	Limit    int
	Since    *MessageCursor
	Before   *MessageCursor
	Author   string
}

// Campaign is a group of players sharing one message log.
type Campaign struct {
	Name         string `json:"name"`
	CreatedAt    int64  `json:"created_at"`
	MessageCount int    `json:"message_count"`
	LastTS       int64  `json:"last_ts,omitempty"`
}
