package messenger

import (
	"errors"
	"time"

	"chat-service/apperror"
	"chat-service/model"

	"gorm.io/gorm"
)

const (
	MaxTextLen      = 4096
	MinClientIDLen  = 8
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Media describes an uploaded attachment embedded in a message.
type Media struct {
	URL      string  `json:"url"`
	Mime     string  `json:"mime"`
	Width    int     `json:"w,omitempty"`
	Height   int     `json:"h,omitempty"`
	Size     int64   `json:"size,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// MessageView is the wire shape of a message, both for broadcasts and for
// history responses.
type MessageView struct {
	ID          uint       `json:"_id"`
	ConvID      uint       `json:"convId"`
	From        uint       `json:"from"`
	Kind        string     `json:"kind"`
	Text        string     `json:"text,omitempty"`
	Media       *Media     `json:"media,omitempty"`
	ClientID    string     `json:"clientId"`
	SentAt      time.Time  `json:"sentAt"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
}

// View shapes a stored message for the wire.
func View(msg *model.Message) MessageView {
	view := MessageView{
		ID:          msg.ID,
		ConvID:      msg.ConversationID,
		From:        msg.FromID,
		Kind:        msg.Kind,
		Text:        msg.Text,
		ClientID:    msg.ClientID,
		SentAt:      msg.SentAt,
		DeliveredAt: msg.DeliveredAt,
		ReadAt:      msg.ReadAt,
	}
	if msg.MediaURL != "" {
		view.Media = &Media{
			URL:      msg.MediaURL,
			Mime:     msg.MediaMime,
			Width:    msg.MediaWidth,
			Height:   msg.MediaHeight,
			Size:     msg.MediaSize,
			Duration: msg.MediaDuration,
		}
	}
	return view
}

// Views shapes a message slice for the wire.
func Views(msgs []model.Message) []MessageView {
	views := make([]MessageView, 0, len(msgs))
	for i := range msgs {
		views = append(views, View(&msgs[i]))
	}
	return views
}

type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func validateSend(kind, text string, media *Media, clientID string) error {
	if len(clientID) < MinClientIDLen {
		return apperror.ValidationFailed("clientId", "clientId must be at least 8 characters")
	}
	if len(text) > MaxTextLen {
		return apperror.ValidationFailed("text", "text exceeds 4096 characters")
	}

	switch kind {
	case model.KindText:
		if text == "" {
			return apperror.ValidationFailed("text", "text is required for text messages")
		}
	case model.KindImage, model.KindFile, model.KindVoice:
		if media == nil || media.URL == "" {
			return apperror.ValidationFailed("media", "media is required for "+kind+" messages")
		}
	default:
		return apperror.ValidationFailed("kind", "unknown message kind")
	}
	return nil
}

// Append validates and durably records a message, then bumps the parent
// conversation's recency. A duplicate clientId comes back as a conflict and
// persists nothing.
func (l *Ledger) Append(convID, senderID uint, kind, text string, media *Media, clientID string) (*model.Message, error) {
	if err := validateSend(kind, text, media, clientID); err != nil {
		return nil, err
	}

	conv := new(model.Conversation)
	if err := l.db.First(conv, convID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("conversation")
		}
		return nil, apperror.Store(err)
	}
	if !conv.HasParticipant(senderID) {
		return nil, apperror.NotParticipant()
	}

	msg := &model.Message{
		ConversationID: convID,
		FromID:         senderID,
		ClientID:       clientID,
		Kind:           kind,
		Text:           text,
		SentAt:         time.Now(),
	}
	if media != nil {
		msg.MediaURL = media.URL
		msg.MediaMime = media.Mime
		msg.MediaWidth = media.Width
		msg.MediaHeight = media.Height
		msg.MediaSize = media.Size
		msg.MediaDuration = media.Duration
	}

	if err := l.db.Create(msg).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("duplicate clientId")
		}
		return nil, apperror.Store(err)
	}

	if err := l.db.Model(&model.Conversation{}).
		Where("id = ?", convID).
		Update("last_msg_at", msg.SentAt).Error; err != nil {
		return nil, apperror.Store(err)
	}
	return msg, nil
}

// Page returns messages strictly older than beforeID (newest first when
// beforeID is zero) in descending insertion order. The id cursor keeps
// pages stable under concurrent inserts; limit is capped at MaxPageSize.
func (l *Ledger) Page(convID uint, beforeID uint, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	query := l.db.Where("conversation_id = ?", convID)
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}

	msgs := []model.Message{}
	if err := query.Order("id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, apperror.Store(err)
	}
	return msgs, nil
}

// MarkRead stamps ReadAt on the peer's unread messages in a conversation.
func (l *Ledger) MarkRead(convID, readerID uint) error {
	conv := new(model.Conversation)
	if err := l.db.First(conv, convID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("conversation")
		}
		return apperror.Store(err)
	}
	if !conv.HasParticipant(readerID) {
		return apperror.NotParticipant()
	}

	now := time.Now()
	if err := l.db.Model(&model.Message{}).
		Where("conversation_id = ? AND from_id <> ? AND read_at IS NULL", convID, readerID).
		Update("read_at", &now).Error; err != nil {
		return apperror.Store(err)
	}
	return nil
}
