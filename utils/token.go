package utils

import (
	"strconv"
	"time"

	"chat-service/apperror"
	"chat-service/config"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens struct to describe tokens object.
type Tokens struct {
	Access  string
	Refresh string
}

// TokenMetadata struct to describe metadata in JWT.
type TokenMetadata struct {
	Id  string
	Otp bool
	Exp int64
}

// Fallback lifetimes when the expiry keys are unset: minutes-scale access,
// days-scale refresh.
const (
	defaultAccessExpireMinutes  = 15
	defaultRefreshExpireMinutes = 14 * 24 * 60
)

// GenerateTokens issues a new access and refresh token pair. The two kinds
// are signed with independent secrets so compromise of one cannot forge the
// other.
func GenerateTokens(id string, otp bool) (*Tokens, error) {
	accessToken, err := generateToken(
		id,
		otp,
		expireMinutes("JWT_ACCESS_EXPIRE", defaultAccessExpireMinutes),
		"JWT_ACCESS_KEY",
	)
	if err != nil {
		return nil, err
	}

	refreshToken, err := generateToken(
		id,
		otp,
		expireMinutes("JWT_REFRESH_EXPIRE", defaultRefreshExpireMinutes),
		"JWT_REFRESH_KEY",
	)
	if err != nil {
		return nil, err
	}

	return &Tokens{
		Access:  accessToken,
		Refresh: refreshToken,
	}, nil
}

func expireMinutes(key string, fallback int) int {
	if raw := config.Config(key); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil {
			return minutes
		}
	}
	return fallback
}

func generateToken(id string, otp bool, minutes int, key string) (string, error) {
	claims := jwt.MapClaims{}

	claims["id"] = id
	claims["otp"] = otp
	claims["exp"] = time.Now().Add(time.Minute * time.Duration(minutes)).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString([]byte(config.Config(key)))
}

// CheckAndExtractTokenMetadata verifies a token against the named signing
// key and extracts its claims. Every failure mode (bad signature, expiry,
// malformed claims) comes back as the same unauthenticated error so callers
// cannot leak which check failed.
func CheckAndExtractTokenMetadata(token string, key string) (*TokenMetadata, error) {
	t, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.Config(key)), nil
	})
	if err != nil || !t.Valid {
		return nil, apperror.Unauthenticated()
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperror.Unauthenticated()
	}

	id, okId := claims["id"].(string)
	otp, okOtp := claims["otp"].(bool)
	exp, okExp := claims["exp"].(float64)
	if !okId || !okOtp || !okExp {
		return nil, apperror.Unauthenticated()
	}

	return &TokenMetadata{
		Id:  id,
		Otp: otp,
		Exp: int64(exp),
	}, nil
}
