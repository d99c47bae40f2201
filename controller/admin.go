package controller

import (
	"chat-service/apperror"
	"chat-service/database"
	"chat-service/model"

	"github.com/gofiber/fiber/v2"
)

// AdminUsers lists registered users. Reachable only through the casbin
// guarded admin group.
func AdminUsers(c *fiber.Ctx) error {
	users := []model.User{}
	if err := database.Postgres.Order("id ASC").Find(&users).Error; err != nil {
		return fail(c, apperror.Store(err))
	}

	list := make([]fiber.Map, 0, len(users))
	for i := range users {
		list = append(list, fiber.Map{
			"id":      users[i].ID,
			"email":   users[i].Email,
			"name":    users[i].Name,
			"role":    users[i].Role,
			"created": users[i].CreatedAt.Unix(),
		})
	}

	return c.JSON(fiber.Map{"users": list})
}
