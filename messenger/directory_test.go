package messenger

import (
	"sync"
	"testing"
	"time"

	"chat-service/apperror"
	"chat-service/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPairOf(t *testing.T) {
	tests := []struct {
		name     string
		a, b     uint
		wantLow  uint
		wantHigh uint
	}{
		{name: "already ordered", a: 1, b: 2, wantLow: 1, wantHigh: 2},
		{name: "reversed", a: 9, b: 3, wantLow: 3, wantHigh: 9},
		{name: "large ids", a: 100000, b: 7, wantLow: 7, wantHigh: 100000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			low, high := PairOf(tt.a, tt.b)
			assert.Equal(t, tt.wantLow, low)
			assert.Equal(t, tt.wantHigh, high)
		})
	}
}

func TestEnsureIsDirectionless(t *testing.T) {
	db := newTestDB(t)
	directory := NewDirectory(db)

	alice := seedUser(t, db, "alice@example.com", "Alice")
	bob := seedUser(t, db, "bob@example.com", "Bob")

	first, err := directory.Ensure(alice.ID, PeerSelector{ID: bob.ID})
	require.NoError(t, err)

	second, err := directory.Ensure(bob.ID, PeerSelector{ID: alice.ID})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&model.Conversation{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestEnsureResolvesPeerByEmailAndName(t *testing.T) {
	db := newTestDB(t)
	directory := NewDirectory(db)

	alice := seedUser(t, db, "alice@example.com", "Alice")
	bob := seedUser(t, db, "bob@example.com", "Bob")

	byEmail, err := directory.Ensure(alice.ID, PeerSelector{Email: "bob@example.com"})
	require.NoError(t, err)
	assert.True(t, byEmail.HasParticipant(bob.ID))

	byName, err := directory.Ensure(alice.ID, PeerSelector{Name: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, byEmail.ID, byName.ID)
}

func TestEnsurePeerNotFound(t *testing.T) {
	db := newTestDB(t)
	directory := NewDirectory(db)

	alice := seedUser(t, db, "alice@example.com", "Alice")

	_, err := directory.Ensure(alice.ID, PeerSelector{ID: 4242})
	require.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = directory.Ensure(alice.ID, PeerSelector{})
	require.ErrorIs(t, err, apperror.ErrValidation)
}

func TestEnsureRejectsSelf(t *testing.T) {
	db := newTestDB(t)
	directory := NewDirectory(db)

	alice := seedUser(t, db, "alice@example.com", "Alice")

	_, err := directory.Ensure(alice.ID, PeerSelector{ID: alice.ID})
	require.ErrorIs(t, err, apperror.ErrValidation)
}

func TestEnsureConcurrentCreatesExactlyOne(t *testing.T) {
	db := newTestDB(t)
	directory := NewDirectory(db)

	alice := seedUser(t, db, "alice@example.com", "Alice")
	bob := seedUser(t, db, "bob@example.com", "Bob")

	const callers = 8
	ids := make([]uint, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller, peer := alice.ID, bob.ID
			if i%2 == 1 {
				caller, peer = bob.ID, alice.ID
			}
			conv, err := directory.Ensure(caller, PeerSelector{ID: peer})
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = conv.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	var count int64
	require.NoError(t, db.Model(&model.Conversation{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// The ensure retry depends on the canonical-pair unique index surfacing a
// translated duplicate-key error. Pin that behavior down directly.
func TestDuplicatePairInsertIsTranslated(t *testing.T) {
	db := newTestDB(t)

	first := &model.Conversation{UserLowID: 1, UserHighID: 2, LastMsgAt: time.Now()}
	require.NoError(t, db.Create(first).Error)

	second := &model.Conversation{UserLowID: 1, UserHighID: 2, LastMsgAt: time.Now()}
	err := db.Create(second).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestListOrdersByRecencyAndAnnotatesPeer(t *testing.T) {
	db := newTestDB(t)
	directory := NewDirectory(db)

	alice := seedUser(t, db, "alice@example.com", "Alice")
	bob := seedUser(t, db, "bob@example.com", "Bob")
	carol := seedUser(t, db, "carol@example.com", "Carol")

	withBob, err := directory.Ensure(alice.ID, PeerSelector{ID: bob.ID})
	require.NoError(t, err)
	withCarol, err := directory.Ensure(alice.ID, PeerSelector{ID: carol.ID})
	require.NoError(t, err)

	// Bob's conversation is the more recent one.
	require.NoError(t, db.Model(&model.Conversation{}).
		Where("id = ?", withBob.ID).
		Update("last_msg_at", time.Now().Add(time.Hour)).Error)
	require.NoError(t, db.Model(&model.Conversation{}).
		Where("id = ?", withCarol.ID).
		Update("last_msg_at", time.Now().Add(-time.Hour)).Error)

	views, err := directory.List(alice.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, withBob.ID, views[0].ID)
	require.NotNil(t, views[0].Peer)
	assert.Equal(t, bob.ID, views[0].Peer.ID)
	assert.Equal(t, "bob@example.com", views[0].Peer.Email)

	assert.Equal(t, withCarol.ID, views[1].ID)
	require.NotNil(t, views[1].Peer)
	assert.Equal(t, carol.ID, views[1].Peer.ID)
}

func TestListMissingPeerAnnotatesNil(t *testing.T) {
	db := newTestDB(t)
	directory := NewDirectory(db)

	alice := seedUser(t, db, "alice@example.com", "Alice")
	ghost := seedUser(t, db, "ghost@example.com", "Ghost")

	conv, err := directory.Ensure(alice.ID, PeerSelector{ID: ghost.ID})
	require.NoError(t, err)

	require.NoError(t, db.Unscoped().Delete(&model.User{}, ghost.ID).Error)

	views, err := directory.List(alice.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, conv.ID, views[0].ID)
	assert.Nil(t, views[0].Peer)
}
