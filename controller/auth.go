package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"chat-service/apperror"
	"chat-service/database"
	"chat-service/event"
	"chat-service/model"
	"chat-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthRegisterInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type AuthLoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthRefreshInput struct {
	RefreshToken string `json:"refreshToken"`
}

type AuthOtpSecretInput struct {
	Password string `json:"password"`
}

type AuthOtpVerifyInput struct {
	Token string `json:"token"`
}

type AuthOtpValidateInput struct {
	Token string `json:"token"`
}

type AuthOtpDisableInput struct {
	Password string `json:"password"`
	Token    string `json:"token"`
}

func userBody(user *model.User) fiber.Map {
	return fiber.Map{
		"id":        user.ID,
		"_id":       user.ID,
		"email":     user.Email,
		"name":      user.Name,
		"avatarUrl": user.AvatarURL,
	}
}

func tokensBody(tokens *utils.Tokens) fiber.Map {
	return fiber.Map{
		"access":  tokens.Access,
		"refresh": tokens.Refresh,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func AuthRegister(c *fiber.Ctx) error {
	input := new(AuthRegisterInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, apperror.ValidationFailed("body", "review your input"))
	}

	input.Email = normalizeEmail(input.Email)
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return fail(c, apperror.ValidationFailed("email", "enter a valid email"))
	}
	if len(input.Name) < 2 {
		return fail(c, apperror.ValidationFailed("name", "name must be at least 2 characters"))
	}
	if len(input.Password) < 6 {
		return fail(c, apperror.ValidationFailed("password", "password must be at least 6 characters"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), 14)
	if err != nil {
		return fail(c, apperror.Store(err))
	}

	user := &model.User{
		Email:    input.Email,
		Name:     input.Name,
		Password: string(hash),
		Role:     "user",
	}

	// TOTP secret is minted up front so 2FA can be enabled later without a
	// second provisioning step.
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "chat-service",
		AccountName: user.Email,
		SecretSize:  15,
	})
	if err != nil {
		return fail(c, apperror.Store(err))
	}
	user.Otp_secret = key.Secret()

	if err := database.Postgres.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fail(c, apperror.Conflict("email already in use"))
		}
		return fail(c, apperror.Store(err))
	}

	// Role grant is best-effort; the admin surface re-checks on every call.
	if enforcer, err := database.Casbin(); err == nil {
		enforcer.AddGroupingPolicy(fmt.Sprint(user.ID), user.Role)
	} else {
		log.Printf("casbin unavailable, role grant skipped: %v", err)
	}

	idStr := strconv.FormatUint(uint64(user.ID), 10)
	tokens, err := utils.GenerateTokens(idStr, user.Otp_enabled)
	if err != nil {
		return fail(c, apperror.Store(err))
	}

	// The issued refresh token must be redeemable right away, so store it
	// the same way login does.
	if err := database.Redis[0].Set(context.Background(), idStr, tokens.Refresh, 0).Err(); err != nil {
		return fail(c, apperror.Store(err))
	}

	event.PublishJSON("api", "user.registered", event.UserRegistered{
		UserID: user.ID,
		Email:  user.Email,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":   userBody(user),
		"tokens": tokensBody(tokens),
	})
}

func AuthLogin(c *fiber.Ctx) error {
	input := new(AuthLoginInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, apperror.ValidationFailed("body", "review your input"))
	}

	user := new(model.User)
	if err := database.Postgres.
		Where(&model.User{Email: normalizeEmail(input.Email)}).
		First(user).Error; err != nil {
		return fail(c, apperror.Unauthenticated())
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return fail(c, apperror.Unauthenticated())
	}

	idStr := strconv.FormatUint(uint64(user.ID), 10)
	tokens, err := utils.GenerateTokens(idStr, user.Otp_enabled)
	if err != nil {
		return fail(c, apperror.Store(err))
	}

	if err := database.Redis[0].Set(context.Background(), idStr, tokens.Refresh, 0).Err(); err != nil {
		return fail(c, apperror.Store(err))
	}

	recordDevice(user.ID, c.Get("User-Agent"), c.IP())

	return c.JSON(fiber.Map{
		"user":   userBody(user),
		"tokens": tokensBody(tokens),
		"2fa":    user.Otp_enabled,
	})
}

// recordDevice upserts the login device by fingerprint and evicts the
// oldest entries beyond the cap. Best-effort bookkeeping: failures are
// logged and never fail the login.
func recordDevice(userID uint, userAgent, ip string) {
	info := utils.ParseDevice(userAgent, ip)
	now := time.Now()

	device := new(model.Device)
	err := database.Postgres.
		Where(&model.Device{UserID: userID, Fingerprint: info.Fingerprint}).
		First(device).Error
	if err == nil {
		device.UserAgent = info.UserAgent
		device.Class = info.Class
		device.Browser = info.Browser
		device.OS = info.OS
		device.LastSeenAt = now
		if err := database.Postgres.Save(device).Error; err != nil {
			log.Printf("device update failed for user %d: %v", userID, err)
		}
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("device lookup failed for user %d: %v", userID, err)
		return
	}

	device = &model.Device{
		UserID:      userID,
		Fingerprint: info.Fingerprint,
		UserAgent:   info.UserAgent,
		Class:       info.Class,
		Browser:     info.Browser,
		OS:          info.OS,
		LastSeenAt:  now,
	}
	if err := database.Postgres.Create(device).Error; err != nil {
		log.Printf("device create failed for user %d: %v", userID, err)
		return
	}

	var count int64
	database.Postgres.Model(&model.Device{}).Where("user_id = ?", userID).Count(&count)
	if count <= model.MaxDevices {
		return
	}

	oldest := []model.Device{}
	database.Postgres.
		Where("user_id = ?", userID).
		Order("last_seen_at ASC").
		Limit(int(count) - model.MaxDevices).
		Find(&oldest)
	for _, stale := range oldest {
		database.Postgres.Unscoped().Delete(&stale)
	}
}

func AuthTokenRefresh(c *fiber.Ctx) error {
	input := new(AuthRefreshInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, apperror.ValidationFailed("body", "review your input"))
	}

	claims, err := utils.CheckAndExtractTokenMetadata(input.RefreshToken, "JWT_REFRESH_KEY")
	if err != nil {
		return fail(c, apperror.Unauthenticated())
	}

	// A refresh token is single-use: it must match the copy stored at login
	// and gets rotated on success.
	stored, err := database.Redis[0].Get(context.Background(), claims.Id).Result()
	if err != nil || stored != input.RefreshToken {
		return fail(c, apperror.Unauthenticated())
	}

	tokens, err := utils.GenerateTokens(claims.Id, claims.Otp)
	if err != nil {
		return fail(c, apperror.Store(err))
	}

	if err := database.Redis[0].Set(context.Background(), claims.Id, tokens.Refresh, 0).Err(); err != nil {
		return fail(c, apperror.Store(err))
	}

	return c.JSON(fiber.Map{
		"tokens": tokensBody(tokens),
	})
}

func AuthOtpSecret(c *fiber.Ctx) error {
	input := new(AuthOtpSecretInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, apperror.ValidationFailed("body", "review your input"))
	}

	userID, err := callerID(c)
	if err != nil {
		return fail(c, err)
	}

	user := new(model.User)
	if err := database.Postgres.First(user, userID).Error; err != nil {
		return fail(c, apperror.Store(err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return fail(c, apperror.Unauthenticated())
	}

	return c.JSON(fiber.Map{
		"secret": user.Otp_secret,
		"url": fmt.Sprintf("otpauth://totp/chat-service:%s?algorithm=SHA1&digits=6&issuer=chat-service&period=30&secret=%s",
			user.Email,
			user.Otp_secret,
		),
	})
}

func AuthOtpVerify(c *fiber.Ctx) error {
	input := new(AuthOtpVerifyInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, apperror.ValidationFailed("body", "review your input"))
	}

	userID, err := callerID(c)
	if err != nil {
		return fail(c, err)
	}

	user := new(model.User)
	if err := database.Postgres.First(user, userID).Error; err != nil {
		return fail(c, apperror.Store(err))
	}

	if user.Otp_enabled {
		return fail(c, apperror.Conflict("verification has already been performed"))
	}

	if !totp.Validate(input.Token, user.Otp_secret) {
		return fail(c, apperror.ValidationFailed("token", "invalid token"))
	}

	user.Otp_enabled = true
	if err := database.Postgres.Save(user).Error; err != nil {
		return fail(c, apperror.Store(err))
	}

	return c.JSON(fiber.Map{"ok": true})
}

func AuthOtpValidate(c *fiber.Ctx) error {
	input := new(AuthOtpValidateInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, apperror.ValidationFailed("body", "review your input"))
	}

	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	idStr, _ := claims["id"].(string)

	user := new(model.User)
	if err := database.Postgres.First(user, idStr).Error; err != nil {
		return fail(c, apperror.Store(err))
	}

	if !user.Otp_enabled {
		return fail(c, apperror.Conflict("2FA is not enabled"))
	}

	if !totp.Validate(input.Token, user.Otp_secret) {
		return fail(c, apperror.ValidationFailed("token", "invalid token"))
	}

	// Re-issue with otp cleared; these tokens unlock the messaging surface.
	tokens, err := utils.GenerateTokens(idStr, false)
	if err != nil {
		return fail(c, apperror.Store(err))
	}

	if err := database.Redis[0].Set(context.Background(), idStr, tokens.Refresh, 0).Err(); err != nil {
		return fail(c, apperror.Store(err))
	}

	return c.JSON(fiber.Map{
		"tokens": tokensBody(tokens),
	})
}

func AuthOtpDisable(c *fiber.Ctx) error {
	input := new(AuthOtpDisableInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, apperror.ValidationFailed("body", "review your input"))
	}

	userID, err := callerID(c)
	if err != nil {
		return fail(c, err)
	}

	user := new(model.User)
	if err := database.Postgres.First(user, userID).Error; err != nil {
		return fail(c, apperror.Store(err))
	}

	if !user.Otp_enabled {
		return fail(c, apperror.Conflict("2FA is not enabled"))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return fail(c, apperror.Unauthenticated())
	}

	if !totp.Validate(input.Token, user.Otp_secret) {
		return fail(c, apperror.ValidationFailed("token", "invalid token"))
	}

	user.Otp_enabled = false
	if err := database.Postgres.Save(user).Error; err != nil {
		return fail(c, apperror.Store(err))
	}

	return c.JSON(fiber.Map{"ok": true})
}
