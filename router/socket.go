package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"chat-service/apperror"
	"chat-service/database"
	"chat-service/event"
	"chat-service/messenger"
	"chat-service/presence"
	"chat-service/socketio"
	"chat-service/utils"

	"github.com/zishang520/socket.io/v2/socket"
)

// Bounded timeout for presence-store operations inside event handlers; a
// stuck Redis call fails the request instead of hanging the connection.
const presenceOpTimeout = 5 * time.Second

// wireID accepts ids sent either as JSON strings or numbers.
type wireID uint

func (id *wireID) UnmarshalJSON(raw []byte) error {
	s := strings.Trim(string(raw), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*id = wireID(v)
	return nil
}

// Inbound event payloads. Each event has a fixed shape validated at the
// boundary before any business logic runs.
type ensurePayload struct {
	PeerID wireID `json:"peerId"`
}

type joinPayload struct {
	ConvID wireID `json:"convId"`
}

type historyPayload struct {
	ConvID   wireID `json:"convId"`
	BeforeID wireID `json:"beforeId"`
	Limit    int    `json:"limit"`
}

type sendPayload struct {
	ConvID   wireID           `json:"convId"`
	ClientID string           `json:"clientId"`
	Kind     string           `json:"kind"`
	Text     string           `json:"text"`
	Media    *messenger.Media `json:"media"`
}

type pingPayload struct {
	ConvID wireID `json:"convId"`
	Typing bool   `json:"typing"`
}

type readPayload struct {
	ConvID wireID `json:"convId"`
}

type typingChanged struct {
	ConvID uint   `json:"convId"`
	Users  []uint `json:"users"`
}

func convRoom(convID uint) socket.Room {
	return socket.Room(fmt.Sprintf("conv:%d", convID))
}

func userRoom(userID uint) socket.Room {
	return socket.Room(fmt.Sprintf("user:%d", userID))
}

// deliveryRooms is the fan-out set for a new message: the conversation room
// plus the peer's user room, so a peer that never joined the conversation
// still gets live delivery on all of their devices.
func deliveryRooms(convID, peerID uint) []socket.Room {
	return []socket.Room{convRoom(convID), userRoom(peerID)}
}

// decodePayload re-decodes the socket.io argument (a map once the parser is
// done with it) into a typed payload struct.
func decodePayload(args []any, out any) error {
	if len(args) == 0 {
		return apperror.ValidationFailed("payload", "missing payload")
	}
	raw, err := json.Marshal(args[0])
	if err != nil {
		return apperror.ValidationFailed("payload", "malformed payload")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperror.ValidationFailed("payload", "malformed payload")
	}
	return nil
}

func ackOf(args []any) func([]any, error) {
	if len(args) == 0 {
		return nil
	}
	ack, _ := args[len(args)-1].(func([]any, error))
	return ack
}

// Exactly one reply per request: either a result object or a discriminated
// error, always through the acknowledgment. Errors never terminate the
// connection once it is established.
func reply(ack func([]any, error), data any) {
	if ack != nil {
		ack([]any{data}, nil)
	}
}

func replyError(ack func([]any, error), err error) {
	if ack != nil {
		ack([]any{map[string]any{
			"error": err.Error(),
			"kind":  apperror.Kind(err),
		}}, nil)
	}
}

// Socket registers the realtime event handlers. By this point the handshake
// middleware has authenticated the connection and joined the per-user room.
func Socket(server *socket.Server) {
	directory := messenger.NewDirectory(database.Postgres)
	ledger := messenger.NewLedger(database.Postgres)
	tracker := presence.NewTracker(database.Redis[0])

	server.On("connection", func(clients ...interface{}) {
		client := clients[0].(*socket.Socket)

		claims, ok := client.Data().(*utils.TokenMetadata)
		if !ok {
			client.Disconnect(true)
			return
		}
		id64, err := strconv.ParseUint(claims.Id, 10, 64)
		if err != nil {
			client.Disconnect(true)
			return
		}
		userID := uint(id64)

		// joined resolves a conversation, checks membership and joins its
		// room. Join is idempotent, so every conversation-scoped event can
		// run through it.
		joined := func(convID uint) error {
			conv, err := directory.Get(convID)
			if err != nil {
				return err
			}
			if !conv.HasParticipant(userID) {
				return apperror.NotParticipant()
			}
			client.Join(convRoom(convID))
			return nil
		}

		client.On("conv:ensure", func(args ...interface{}) {
			ack := ackOf(args)
			payload := new(ensurePayload)
			if err := decodePayload(args, payload); err != nil {
				replyError(ack, err)
				return
			}

			conv, err := directory.Ensure(userID, messenger.PeerSelector{ID: uint(payload.PeerID)})
			if err != nil {
				replyError(ack, err)
				return
			}

			client.Join(convRoom(conv.ID))
			reply(ack, map[string]any{"convId": conv.ID})
		})

		client.On("conv:join", func(args ...interface{}) {
			ack := ackOf(args)
			payload := new(joinPayload)
			if err := decodePayload(args, payload); err != nil {
				replyError(ack, err)
				return
			}

			if err := joined(uint(payload.ConvID)); err != nil {
				replyError(ack, err)
				return
			}
			reply(ack, map[string]any{"ok": true})
		})

		client.On("history:load", func(args ...interface{}) {
			ack := ackOf(args)
			payload := new(historyPayload)
			if err := decodePayload(args, payload); err != nil {
				replyError(ack, err)
				return
			}

			// Joining is idempotent, so the authorization check doubles as
			// the auto-join.
			if err := joined(uint(payload.ConvID)); err != nil {
				replyError(ack, err)
				return
			}

			msgs, err := ledger.Page(uint(payload.ConvID), uint(payload.BeforeID), payload.Limit)
			if err != nil {
				replyError(ack, err)
				return
			}
			reply(ack, map[string]any{"messages": messenger.Views(msgs)})
		})

		client.On("message:send", func(args ...interface{}) {
			ack := ackOf(args)
			payload := new(sendPayload)
			if err := decodePayload(args, payload); err != nil {
				replyError(ack, err)
				return
			}

			msg, err := ledger.Append(
				uint(payload.ConvID),
				userID,
				payload.Kind,
				payload.Text,
				payload.Media,
				payload.ClientID,
			)
			if err != nil {
				replyError(ack, err)
				return
			}

			// Ack the sender first, then fan out. The broadcast goes to the
			// whole conversation room (the sender's other devices included)
			// and to the peer's user room, and leaves this handler in append
			// order.
			reply(ack, map[string]any{
				"_id":      msg.ID,
				"clientId": msg.ClientID,
				"sentAt":   msg.SentAt,
			})

			client.Join(convRoom(msg.ConversationID))
			view := messenger.View(msg)
			if conv, err := directory.Get(msg.ConversationID); err == nil {
				socketio.Emit("message:new", view, deliveryRooms(msg.ConversationID, conv.PeerOf(userID))...)
			} else {
				socketio.Emit("message:new", view, convRoom(msg.ConversationID))
			}

			event.PublishJSON("api", "message.sent", event.MessageSent{
				ConvID:    msg.ConversationID,
				MessageID: msg.ID,
				From:      msg.FromID,
				Kind:      msg.Kind,
			})
		})

		client.On("conv:read", func(args ...interface{}) {
			ack := ackOf(args)
			payload := new(readPayload)
			if err := decodePayload(args, payload); err != nil {
				replyError(ack, err)
				return
			}

			if err := ledger.MarkRead(uint(payload.ConvID), userID); err != nil {
				replyError(ack, err)
				return
			}
			reply(ack, map[string]any{"ok": true})
		})

		client.On("presence:ping", func(args ...interface{}) {
			payload := new(pingPayload)
			if err := decodePayload(args, payload); err != nil {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), presenceOpTimeout)
			defer cancel()

			convID := uint(payload.ConvID)
			if err := tracker.Ping(ctx, userID, convID, payload.Typing); err != nil {
				log.Printf("presence ping failed for user %d: %v", userID, err)
				return
			}
			if convID == 0 {
				return
			}

			// Best-effort recompute of the typing set; O(participants) and
			// may race a concurrent ping, which the TTL makes self-healing.
			conv, err := directory.Get(convID)
			if err != nil {
				return
			}
			users, err := tracker.TypingUsersFor(ctx, convID, conv.Participants())
			if err != nil {
				log.Printf("typing recompute failed for conversation %d: %v", convID, err)
				return
			}
			socketio.Emit("presence:typing", typingChanged{
				ConvID: convID,
				Users:  users,
			}, convRoom(convID))
		})

		client.On("disconnect", func(args ...interface{}) {
			ctx, cancel := context.WithTimeout(context.Background(), presenceOpTimeout)
			defer cancel()
			if err := tracker.Clear(ctx, userID); err != nil {
				log.Printf("presence clear failed for user %d: %v", userID, err)
			}
		})
	})
}
