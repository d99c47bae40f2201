package controller

import (
	"errors"

	"chat-service/apperror"
	"chat-service/database"
	"chat-service/model"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserProfileUpdateInput struct {
	Name      *string `json:"name"`
	Phone     *string `json:"phone"`
	Bio       *string `json:"bio"`
	Location  *string `json:"location"`
	AvatarURL *string `json:"avatarUrl"`
}

func UserProfile(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return fail(c, err)
	}

	user := new(model.User)
	if err := database.Postgres.Preload("Devices").First(user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, apperror.NotFound("user"))
		}
		return fail(c, apperror.Store(err))
	}

	return c.JSON(fiber.Map{
		"id":        user.ID,
		"_id":       user.ID,
		"created":   user.CreatedAt.Unix(),
		"email":     user.Email,
		"name":      user.Name,
		"avatarUrl": user.AvatarURL,
		"phone":     user.Phone,
		"bio":       user.Bio,
		"location":  user.Location,
		"role":      user.Role,
		"otp":       user.Otp_enabled,
		"devices":   user.Devices,
	})
}

func UserProfileUpdate(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return fail(c, err)
	}

	input := new(UserProfileUpdateInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, apperror.ValidationFailed("body", "review your input"))
	}

	user := new(model.User)
	if err := database.Postgres.First(user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, apperror.NotFound("user"))
		}
		return fail(c, apperror.Store(err))
	}

	if input.Name != nil {
		if len(*input.Name) < 2 {
			return fail(c, apperror.ValidationFailed("name", "name must be at least 2 characters"))
		}
		user.Name = *input.Name
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.Bio != nil {
		user.Bio = *input.Bio
	}
	if input.Location != nil {
		user.Location = *input.Location
	}
	if input.AvatarURL != nil {
		user.AvatarURL = *input.AvatarURL
	}

	if err := database.Postgres.Save(user).Error; err != nil {
		return fail(c, apperror.Store(err))
	}

	return c.JSON(fiber.Map{"user": userBody(user)})
}
