package model

import (
	"time"

	"gorm.io/gorm"
)

// User struct
type User struct {
	gorm.Model
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Name      string `gorm:"not null" json:"name"`
	Password  string `gorm:"not null" json:"-"`
	AvatarURL string `json:"avatarUrl"`
	Phone     string `json:"phone"`
	Bio       string `json:"bio"`
	Location  string `json:"location"`
	Role      string `json:"role"`

	Otp_enabled bool `gorm:"default:false;"`
	Otp_secret  string

	Devices []Device `json:"devices"`
}

// MaxDevices caps the per-user device list. The oldest entries are evicted
// beyond it.
const MaxDevices = 10

// Device is login bookkeeping only. The fingerprint is a weak signal
// (sha256 of user-agent and IP) and is never used for authorization.
type Device struct {
	gorm.Model
	UserID      uint      `gorm:"not null;uniqueIndex:idx_device_fingerprint" json:"-"`
	Fingerprint string    `gorm:"not null;uniqueIndex:idx_device_fingerprint" json:"fingerprint"`
	UserAgent   string    `json:"userAgent"`
	Class       string    `json:"class"` // mobile, tablet or desktop
	Browser     string    `json:"browser"`
	OS          string    `json:"os"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}
