package controller

import (
	"fmt"
	"os"
	"path/filepath"

	"chat-service/apperror"
	"chat-service/config"
	"chat-service/database"
	"chat-service/model"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const uploadDir = "uploads"

func baseURL() string {
	if base := config.Config("BASE_URL"); base != "" {
		return base
	}
	port := config.Config("SERVER_PORT")
	if port == "" {
		port = "4000"
	}
	return "http://localhost:" + port
}

func saveUpload(c *fiber.Ctx, field string) (string, *fiber.Map, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", nil, apperror.ValidationFailed(field, "no file uploaded")
	}

	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", nil, apperror.Store(err)
	}

	name := uuid.NewString() + filepath.Ext(file.Filename)
	if err := c.SaveFile(file, filepath.Join(uploadDir, name)); err != nil {
		return "", nil, apperror.Store(err)
	}

	url := fmt.Sprintf("%s/uploads/%s", baseURL(), name)
	return url, &fiber.Map{
		"url":  url,
		"mime": file.Header.Get("Content-Type"),
		"size": file.Size,
	}, nil
}

// Upload stores a file on local disk and returns the media descriptor the
// caller embeds in a message.
func Upload(c *fiber.Ctx) error {
	_, body, err := saveUpload(c, "file")
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(body)
}

// UploadAvatar stores an avatar image and points the caller's profile at it.
func UploadAvatar(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return fail(c, err)
	}

	url, _, err := saveUpload(c, "avatar")
	if err != nil {
		return fail(c, err)
	}

	if err := database.Postgres.Model(&model.User{}).
		Where("id = ?", userID).
		Update("avatar_url", url).Error; err != nil {
		return fail(c, apperror.Store(err))
	}

	return c.JSON(fiber.Map{"avatarUrl": url})
}
