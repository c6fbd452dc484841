package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Message is one entry in a conversation's append-only log.
// Only ReadBy changes after creation, and it only grows.
type Message struct {
	// ID is the message UUID.
	ID string `gorm:"primaryKey;type:uuid" json:"id"`
	// Seq is a database sequence used to break ties between equal CreatedAt values.
	Seq int64 `gorm:"autoIncrement;uniqueIndex;index:idx_messages_conversation_created,priority:3,sort:desc" json:"-"`
	// ConversationID is the owning conversation.
	ConversationID string `gorm:"type:uuid;not null;index:idx_messages_conversation_created,priority:1" json:"conversationId"`
	// SenderID is the user who sent the message.
	SenderID string `gorm:"type:text;not null" json:"senderId"`
	// Body is the trimmed message text.
	Body string `gorm:"type:text;not null" json:"body"`
	// ReadBy lists users who have seen the message; starts as {SenderID}.
	ReadBy pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"readBy"`
	// CreatedAt orders messages and is the pagination cursor.
	CreatedAt time.Time `gorm:"not null;index:idx_messages_conversation_created,priority:2,sort:desc" json:"createdAt"`
}

// NewMessage prepares an unsaved message already read by its sender.
// CreatedAt is truncated to the microsecond precision PostgreSQL stores.
func NewMessage(conversationID, senderID, body string, now time.Time) *Message {
	return &Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		ReadBy:         pq.StringArray{senderID},
		CreatedAt:      now.Truncate(time.Microsecond),
	}
}

// IsReadBy reports whether userID has seen the message.
func (m *Message) IsReadBy(userID string) bool {
	for _, r := range m.ReadBy {
		if r == userID {
			return true
		}
	}
	return false
}

// MessageAfter reports whether a sorts after b in conversation order: CreatedAt, then Seq.
func MessageAfter(a, b *Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Seq > b.Seq
}

// BeforeCreate generates a UUID if the ID is not set yet.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}
