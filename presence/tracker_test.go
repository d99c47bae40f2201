package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) (*Tracker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewTracker(rdb), mr
}

func TestPingMarksOnlineUntilTTL(t *testing.T) {
	tracker, mr := newTestTracker(t)
	ctx := context.Background()

	online, err := tracker.IsOnline(ctx, 1)
	require.NoError(t, err)
	assert.False(t, online)

	require.NoError(t, tracker.Ping(ctx, 1, 0, false))

	online, err = tracker.IsOnline(ctx, 1)
	require.NoError(t, err)
	assert.True(t, online)

	mr.FastForward(TTL + time.Second)

	online, err = tracker.IsOnline(ctx, 1)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestPingRefreshesTTL(t *testing.T) {
	tracker, mr := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.Ping(ctx, 1, 0, false))
	mr.FastForward(TTL - 2*time.Second)

	require.NoError(t, tracker.Ping(ctx, 1, 0, false))
	mr.FastForward(TTL - 2*time.Second)

	online, err := tracker.IsOnline(ctx, 1)
	require.NoError(t, err)
	assert.True(t, online)
}

func TestTypingUsersForConversation(t *testing.T) {
	tracker, mr := newTestTracker(t)
	ctx := context.Background()
	participants := [2]uint{1, 2}

	// User 1 typing in conversation 7, user 2 present but not typing.
	require.NoError(t, tracker.Ping(ctx, 1, 7, true))
	require.NoError(t, tracker.Ping(ctx, 2, 7, false))

	users, err := tracker.TypingUsersFor(ctx, 7, participants)
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, users)

	// Typing in a different conversation does not leak into this one.
	require.NoError(t, tracker.Ping(ctx, 1, 9, true))
	users, err = tracker.TypingUsersFor(ctx, 7, participants)
	require.NoError(t, err)
	assert.Empty(t, users)

	// Expiry drops the typist.
	require.NoError(t, tracker.Ping(ctx, 1, 7, true))
	mr.FastForward(TTL + time.Second)
	users, err = tracker.TypingUsersFor(ctx, 7, participants)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestClearDropsPresenceEagerly(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.Ping(ctx, 1, 0, true))
	require.NoError(t, tracker.Clear(ctx, 1))

	online, err := tracker.IsOnline(ctx, 1)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestDamagedRecordTreatedAsAbsent(t *testing.T) {
	tracker, mr := newTestTracker(t)
	ctx := context.Background()

	mr.Set("presence:1", "{not json")

	online, err := tracker.IsOnline(ctx, 1)
	require.NoError(t, err)
	assert.False(t, online)
}
