// Package messenger implements the conversation directory and the message
// ledger on top of the shared GORM store.
package messenger

import (
	"errors"
	"time"

	"chat-service/apperror"
	"chat-service/model"

	"gorm.io/gorm"
)

// PeerSelector targets a user by id, email or display name. Id wins when
// several fields are set.
type PeerSelector struct {
	ID    uint
	Email string
	Name  string
}

// PeerProfile is the public slice of a user attached to conversation lists.
type PeerProfile struct {
	ID        uint   `json:"_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// ConversationView annotates a conversation with the resolved peer. Peer is
// nil when the peer's user record no longer resolves.
type ConversationView struct {
	ID        uint         `json:"_id"`
	Peer      *PeerProfile `json:"peer"`
	LastMsgAt time.Time    `json:"lastMsgAt"`
}

type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// PairOf normalizes two participant ids into canonical order, low first.
// Every persistence call goes through this; nothing relies on insertion
// order or lifecycle hooks.
func PairOf(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

func (d *Directory) resolvePeer(sel PeerSelector) (*model.User, error) {
	peer := new(model.User)
	var err error

	switch {
	case sel.ID != 0:
		err = d.db.First(peer, sel.ID).Error
	case sel.Email != "":
		err = d.db.Where(&model.User{Email: sel.Email}).First(peer).Error
	case sel.Name != "":
		err = d.db.Where(&model.User{Name: sel.Name}).First(peer).Error
	default:
		return nil, apperror.ValidationFailed("peer", "peer selector is empty")
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("peer")
		}
		return nil, apperror.Store(err)
	}
	return peer, nil
}

// Ensure returns the unique conversation for the caller and the selected
// peer, creating it when absent. Safe under both peers calling concurrently:
// the insert races on the canonical-pair unique index and the loser re-reads
// the winner's row.
func (d *Directory) Ensure(userID uint, sel PeerSelector) (*model.Conversation, error) {
	peer, err := d.resolvePeer(sel)
	if err != nil {
		return nil, err
	}
	if peer.ID == userID {
		return nil, apperror.ValidationFailed("peer", "cannot start a conversation with yourself")
	}

	low, high := PairOf(userID, peer.ID)

	conv := new(model.Conversation)
	err = d.db.Where(&model.Conversation{UserLowID: low, UserHighID: high}).First(conv).Error
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Store(err)
	}

	conv = &model.Conversation{UserLowID: low, UserHighID: high, LastMsgAt: time.Now()}
	if err := d.db.Create(conv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the insert race, the peer's row wins.
			conv = new(model.Conversation)
			if err := d.db.Where(&model.Conversation{UserLowID: low, UserHighID: high}).First(conv).Error; err != nil {
				return nil, apperror.Store(err)
			}
			return conv, nil
		}
		return nil, apperror.Store(err)
	}
	return conv, nil
}

// Get fetches a conversation by id.
func (d *Directory) Get(convID uint) (*model.Conversation, error) {
	conv := new(model.Conversation)
	if err := d.db.First(conv, convID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("conversation")
		}
		return nil, apperror.Store(err)
	}
	return conv, nil
}

// List returns the caller's conversations ordered by recency, each
// annotated with the peer's public profile.
func (d *Directory) List(userID uint) ([]ConversationView, error) {
	convs := []model.Conversation{}
	if err := d.db.
		Where("user_low_id = ? OR user_high_id = ?", userID, userID).
		Order("last_msg_at DESC").
		Find(&convs).Error; err != nil {
		return nil, apperror.Store(err)
	}

	views := []ConversationView{}
	for _, conv := range convs {
		view := ConversationView{ID: conv.ID, LastMsgAt: conv.LastMsgAt}

		peer := new(model.User)
		if err := d.db.First(peer, conv.PeerOf(userID)).Error; err == nil {
			view.Peer = &PeerProfile{
				ID:        peer.ID,
				Name:      peer.Name,
				Email:     peer.Email,
				AvatarURL: peer.AvatarURL,
			}
		}

		views = append(views, view)
	}
	return views, nil
}
