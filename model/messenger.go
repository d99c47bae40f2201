package model

import (
	"time"

	"gorm.io/gorm"
)

// Message kinds accepted on the wire.
const (
	KindText  = "text"
	KindImage = "image"
	KindFile  = "file"
	KindVoice = "voice"
)

// Conversation holds exactly two participants in canonical order
// (UserLowID < UserHighID). The composite unique index is what makes
// concurrent ensure calls for the same pair collapse into one row.
type Conversation struct {
	gorm.Model
	UserLowID  uint      `gorm:"not null;uniqueIndex:idx_conversation_pair" json:"userLowId"`
	UserHighID uint      `gorm:"not null;uniqueIndex:idx_conversation_pair" json:"userHighId"`
	LastMsgAt  time.Time `gorm:"index" json:"lastMsgAt"`
}

// HasParticipant reports whether id is one of the two participants.
func (c *Conversation) HasParticipant(id uint) bool {
	return id == c.UserLowID || id == c.UserHighID
}

// PeerOf returns the other participant.
func (c *Conversation) PeerOf(id uint) uint {
	if id == c.UserLowID {
		return c.UserHighID
	}
	return c.UserLowID
}

// Participants returns both participant ids, low first.
func (c *Conversation) Participants() [2]uint {
	return [2]uint{c.UserLowID, c.UserHighID}
}

// Message is immutable once created except for the delivered/read stamps.
// ClientID carries the client-side idempotency token; its unique index is
// what makes retries safe.
type Message struct {
	gorm.Model
	ConversationID uint   `gorm:"not null;index" json:"conversationId"`
	FromID         uint   `gorm:"not null;index" json:"fromId"`
	ClientID       string `gorm:"uniqueIndex;not null" json:"clientId"`
	Kind           string `gorm:"not null" json:"kind"`
	Text           string `json:"text"`

	MediaURL      string  `json:"mediaUrl"`
	MediaMime     string  `json:"mediaMime"`
	MediaWidth    int     `json:"mediaWidth"`
	MediaHeight   int     `json:"mediaHeight"`
	MediaSize     int64   `json:"mediaSize"`
	MediaDuration float64 `json:"mediaDuration"`

	SentAt      time.Time  `gorm:"not null;index" json:"sentAt"`
	DeliveredAt *time.Time `json:"deliveredAt"`
	ReadAt      *time.Time `json:"readAt"`
}
