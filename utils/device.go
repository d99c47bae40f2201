package utils

import (
	"crypto/sha256"
	"encoding/hex"

	ua "github.com/mileusna/useragent"
)

// DeviceInfo describes the device a login came from.
type DeviceInfo struct {
	Fingerprint string
	UserAgent   string
	Class       string
	Browser     string
	OS          string
}

// Fingerprint derives a stable device key from user-agent and IP. Shared
// IPs and rotating user-agents make this a weak signal; it only keys the
// device bookkeeping list.
func Fingerprint(userAgent, ip string) string {
	sum := sha256.Sum256([]byte(userAgent + "|" + ip))
	return hex.EncodeToString(sum[:])
}

// ParseDevice classifies a user-agent into mobile/tablet/desktop plus
// browser and OS names.
func ParseDevice(userAgent, ip string) DeviceInfo {
	parsed := ua.Parse(userAgent)

	class := "desktop"
	switch {
	case parsed.Mobile:
		class = "mobile"
	case parsed.Tablet:
		class = "tablet"
	}

	return DeviceInfo{
		Fingerprint: Fingerprint(userAgent, ip),
		UserAgent:   userAgent,
		Class:       class,
		Browser:     parsed.Name,
		OS:          parsed.OS,
	}
}
