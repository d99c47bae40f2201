package controller

import (
	"context"
	"strconv"
	"time"

	"chat-service/apperror"
	"chat-service/database"
	"chat-service/messenger"
	"chat-service/presence"

	"github.com/gofiber/fiber/v2"
)

type ConversationEnsureInput struct {
	PeerID    uint   `json:"peerId"`
	PeerEmail string `json:"peerEmail"`
	PeerName  string `json:"peerName"`
}

// ConversationList answers GET /conversations: the caller's conversations
// by recency, peers annotated.
func ConversationList(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return fail(c, err)
	}

	views, err := messenger.NewDirectory(database.Postgres).List(userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"conversations": views})
}

// ConversationEnsure answers POST /conv/ensure for clients without a live
// realtime connection.
func ConversationEnsure(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return fail(c, err)
	}

	input := new(ConversationEnsureInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, apperror.ValidationFailed("body", "review your input"))
	}

	conv, err := messenger.NewDirectory(database.Postgres).Ensure(userID, messenger.PeerSelector{
		ID:    input.PeerID,
		Email: input.PeerEmail,
		Name:  input.PeerName,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"convId": conv.ID})
}

// ConversationMessages answers GET /messages/:convId, the legacy fallback
// history path: newest 50, no cursor.
func ConversationMessages(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return fail(c, err)
	}

	convID, err := strconv.ParseUint(c.Params("convId"), 10, 64)
	if err != nil {
		return fail(c, apperror.ValidationFailed("convId", "invalid conversation id"))
	}

	directory := messenger.NewDirectory(database.Postgres)
	conv, err := directory.Get(uint(convID))
	if err != nil {
		return fail(c, err)
	}
	if !conv.HasParticipant(userID) {
		return fail(c, apperror.NotParticipant())
	}

	msgs, err := messenger.NewLedger(database.Postgres).Page(conv.ID, 0, messenger.DefaultPageSize)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"messages": messenger.Views(msgs)})
}

// PresenceStatus answers GET /presence/:userId.
func PresenceStatus(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("userId"), 10, 64)
	if err != nil {
		return fail(c, apperror.ValidationFailed("userId", "invalid user id"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	online, err := presence.NewTracker(database.Redis[0]).IsOnline(ctx, uint(userID))
	if err != nil {
		return fail(c, apperror.Store(err))
	}

	return c.JSON(fiber.Map{"online": online})
}
