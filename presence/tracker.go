// Package presence tracks ephemeral online/typing state in Redis. Records
// self-heal through expiry: a crashed client goes offline within one TTL
// window with no cleanup required.
package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL bounds how long a user stays online without a ping.
const TTL = 12 * time.Second

// State is the value stored per user. Last-writer-wins per key; typing is
// best-effort and never feeds a durability-sensitive decision.
type State struct {
	ConvID   uint  `json:"convId,omitempty"`
	Typing   bool  `json:"typing"`
	LastSeen int64 `json:"lastSeen"`
}

type Tracker struct {
	rdb *redis.Client
}

func NewTracker(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb}
}

func key(userID uint) string {
	return fmt.Sprintf("presence:%d", userID)
}

// Ping upserts the user's presence record and restarts its TTL.
func (t *Tracker) Ping(ctx context.Context, userID, convID uint, typing bool) error {
	raw, err := json.Marshal(State{
		ConvID:   convID,
		Typing:   typing,
		LastSeen: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return t.rdb.Set(ctx, key(userID), raw, TTL).Err()
}

func (t *Tracker) get(ctx context.Context, userID uint) (*State, error) {
	raw, err := t.rdb.Get(ctx, key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := new(State)
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		// Damaged record, treat as absent. It expires on its own.
		return nil, nil
	}
	return state, nil
}

// IsOnline reports whether an unexpired presence record exists.
func (t *Tracker) IsOnline(ctx context.Context, userID uint) (bool, error) {
	state, err := t.get(ctx, userID)
	if err != nil {
		return false, err
	}
	return state != nil, nil
}

// TypingUsersFor recomputes the typing set for a conversation: participants
// with an unexpired record flagged typing in that conversation.
func (t *Tracker) TypingUsersFor(ctx context.Context, convID uint, participants [2]uint) ([]uint, error) {
	users := []uint{}
	for _, id := range participants {
		state, err := t.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if state != nil && state.Typing && state.ConvID == convID {
			users = append(users, id)
		}
	}
	return users, nil
}

// Clear eagerly drops a user's record on disconnect. Correctness does not
// depend on it; the TTL covers abrupt process death.
func (t *Tracker) Clear(ctx context.Context, userID uint) error {
	return t.rdb.Del(ctx, key(userID)).Err()
}
