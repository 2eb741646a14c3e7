package server

import (
	"strings"

	"github.com/mssola/useragent"

	"github.com/clone-prom-team-2025/server/sessions"
)

const (
	deviceDesktop = "desktop"
	deviceMobile  = "mobile"
	deviceBot     = "bot"
	unknownValue  = "unknown"
)

// DeviceFromUserAgent reduces a User-Agent header to the fingerprint sessions are
// matched on: browser family, OS family and device class. Versions are dropped so an
// upgrade does not start a new session.
func DeviceFromUserAgent(header string) sessions.DeviceFingerprint {
	if strings.TrimSpace(header) == "" {
		return sessions.DeviceFingerprint{Browser: unknownValue, OS: unknownValue, Device: deviceDesktop}
	}
	ua := useragent.New(header)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = unknownValue
	}
	os := ua.OSInfo().Name
	if os == "" {
		os = unknownValue
	}

	device := deviceDesktop
	switch {
	case ua.Bot():
		device = deviceBot
	case ua.Mobile():
		device = deviceMobile
	}
	return sessions.DeviceFingerprint{Browser: browser, OS: os, Device: device}
}
