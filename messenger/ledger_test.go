package messenger

import (
	"fmt"
	"strings"
	"testing"

	"chat-service/apperror"
	"chat-service/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newLedgerFixture(t *testing.T) (*gorm.DB, *Ledger, *model.User, *model.User, *model.Conversation) {
	t.Helper()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice@example.com", "Alice")
	bob := seedUser(t, db, "bob@example.com", "Bob")

	conv, err := NewDirectory(db).Ensure(alice.ID, PeerSelector{ID: bob.ID})
	require.NoError(t, err)

	return db, NewLedger(db), alice, bob, conv
}

func TestAppendRoundTripsThroughPage(t *testing.T) {
	_, ledger, alice, _, conv := newLedgerFixture(t)

	msg, err := ledger.Append(conv.ID, alice.ID, model.KindText, "hi", nil, "abc12345")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.False(t, msg.SentAt.IsZero())

	page, err := ledger.Page(conv.ID, 0, 50)
	require.NoError(t, err)
	require.Len(t, page, 1)

	assert.Equal(t, msg.ID, page[0].ID)
	assert.Equal(t, "hi", page[0].Text)
	assert.Equal(t, alice.ID, page[0].FromID)
	assert.Equal(t, "abc12345", page[0].ClientID)
	assert.Equal(t, msg.SentAt.Unix(), page[0].SentAt.Unix())
}

func TestAppendDuplicateClientIDConflicts(t *testing.T) {
	db, ledger, alice, _, conv := newLedgerFixture(t)

	_, err := ledger.Append(conv.ID, alice.ID, model.KindText, "first", nil, "abc12345")
	require.NoError(t, err)

	_, err = ledger.Append(conv.ID, alice.ID, model.KindText, "retry", nil, "abc12345")
	require.ErrorIs(t, err, apperror.ErrConflict)

	var count int64
	require.NoError(t, db.Model(&model.Message{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAppendNonParticipantPersistsNothing(t *testing.T) {
	db, ledger, _, _, conv := newLedgerFixture(t)
	mallory := seedUser(t, db, "mallory@example.com", "Mallory")

	_, err := ledger.Append(conv.ID, mallory.ID, model.KindText, "let me in", nil, "abc12345")
	require.ErrorIs(t, err, apperror.ErrNotParticipant)

	var count int64
	require.NoError(t, db.Model(&model.Message{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAppendValidation(t *testing.T) {
	_, ledger, alice, _, conv := newLedgerFixture(t)

	media := &Media{URL: "http://localhost:4000/uploads/a.png", Mime: "image/png"}

	tests := []struct {
		name     string
		kind     string
		text     string
		media    *Media
		clientID string
	}{
		{name: "short clientId", kind: model.KindText, text: "hi", clientID: "short"},
		{name: "empty text", kind: model.KindText, text: "", clientID: "abc12345"},
		{name: "oversized text", kind: model.KindText, text: strings.Repeat("x", MaxTextLen+1), clientID: "abc12345"},
		{name: "image without media", kind: model.KindImage, clientID: "abc12345"},
		{name: "voice without media", kind: model.KindVoice, clientID: "abc12345"},
		{name: "unknown kind", kind: "sticker", text: "hi", media: media, clientID: "abc12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Append(conv.ID, alice.ID, tt.kind, tt.text, tt.media, tt.clientID)
			require.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestAppendMediaMessage(t *testing.T) {
	_, ledger, alice, _, conv := newLedgerFixture(t)

	media := &Media{
		URL:      "http://localhost:4000/uploads/cat.jpg",
		Mime:     "image/jpeg",
		Width:    800,
		Height:   600,
		Size:     120345,
	}
	msg, err := ledger.Append(conv.ID, alice.ID, model.KindImage, "", media, "img-abc12345")
	require.NoError(t, err)

	view := View(msg)
	require.NotNil(t, view.Media)
	assert.Equal(t, media.URL, view.Media.URL)
	assert.Equal(t, media.Mime, view.Media.Mime)
	assert.Equal(t, 800, view.Media.Width)
}

func TestAppendBumpsConversationRecency(t *testing.T) {
	db, ledger, alice, _, conv := newLedgerFixture(t)

	before := conv.LastMsgAt

	msg, err := ledger.Append(conv.ID, alice.ID, model.KindText, "bump", nil, "abc12345")
	require.NoError(t, err)

	refreshed := new(model.Conversation)
	require.NoError(t, db.First(refreshed, conv.ID).Error)
	assert.False(t, refreshed.LastMsgAt.Before(before))
	assert.Equal(t, msg.SentAt.Unix(), refreshed.LastMsgAt.Unix())
}

func TestPageIsStableGaplessAndCapped(t *testing.T) {
	_, ledger, alice, bob, conv := newLedgerFixture(t)

	const total = 220
	for i := 0; i < total; i++ {
		sender := alice.ID
		if i%2 == 1 {
			sender = bob.ID
		}
		_, err := ledger.Append(conv.ID, sender, model.KindText,
			fmt.Sprintf("message %d", i), nil, fmt.Sprintf("client-%08d", i))
		require.NoError(t, err)
	}

	// Default page size, repeated reads identical.
	first, err := ledger.Page(conv.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, first, DefaultPageSize)

	again, err := ledger.Page(conv.ID, 0, 0)
	require.NoError(t, err)
	require.Equal(t, len(first), len(again))
	for i := range first {
		assert.Equal(t, first[i].ID, again[i].ID)
	}

	// Descending order.
	for i := 1; i < len(first); i++ {
		assert.Greater(t, first[i-1].ID, first[i].ID)
	}

	// Cursor page is strictly older and non-overlapping.
	oldest := first[len(first)-1].ID
	second, err := ledger.Page(conv.ID, oldest, 0)
	require.NoError(t, err)
	require.Len(t, second, DefaultPageSize)
	for _, msg := range second {
		assert.Less(t, msg.ID, oldest)
	}

	// Requested limit above the ceiling is capped.
	capped, err := ledger.Page(conv.ID, 0, 1000)
	require.NoError(t, err)
	assert.Len(t, capped, MaxPageSize)
}

func TestMarkReadStampsOnlyPeerMessages(t *testing.T) {
	db, ledger, alice, bob, conv := newLedgerFixture(t)

	fromAlice, err := ledger.Append(conv.ID, alice.ID, model.KindText, "from alice", nil, "alice-msg-1")
	require.NoError(t, err)
	fromBob, err := ledger.Append(conv.ID, bob.ID, model.KindText, "from bob", nil, "bob-msg-1")
	require.NoError(t, err)

	require.NoError(t, ledger.MarkRead(conv.ID, alice.ID))

	var got model.Message
	require.NoError(t, db.First(&got, fromBob.ID).Error)
	assert.NotNil(t, got.ReadAt)

	var own model.Message
	require.NoError(t, db.First(&own, fromAlice.ID).Error)
	assert.Nil(t, own.ReadAt)
}

func TestMarkReadRequiresParticipant(t *testing.T) {
	db, ledger, _, _, conv := newLedgerFixture(t)
	mallory := seedUser(t, db, "mallory@example.com", "Mallory")

	err := ledger.MarkRead(conv.ID, mallory.ID)
	require.ErrorIs(t, err, apperror.ErrNotParticipant)
}
