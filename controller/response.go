package controller

import (
	"strconv"

	"chat-service/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// fail maps an error to its status family and the uniform {error} body.
func fail(c *fiber.Ctx, err error) error {
	return c.Status(apperror.Status(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// callerID extracts the authenticated user id placed by the JWT middleware.
func callerID(c *fiber.Ctx) (uint, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return 0, apperror.Unauthenticated()
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, apperror.Unauthenticated()
	}
	raw, ok := claims["id"].(string)
	if !ok {
		return 0, apperror.Unauthenticated()
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperror.Unauthenticated()
	}
	return uint(id), nil
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}
