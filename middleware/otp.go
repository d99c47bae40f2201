package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// OTP blocks tokens issued before 2FA validation. Users with 2FA enabled
// carry otp=true in their claims until /auth/2fa/validate succeeds.
func OTP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals("user").(*jwt.Token)
		claims := user.Claims.(jwt.MapClaims)

		if otp, ok := claims["otp"].(bool); ok && otp {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "2FA required",
			})
		}

		return c.Next()
	}
}
