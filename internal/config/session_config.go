package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	sessionTTLVar         = "SESSION_TTL"
	sessionMaxLifetimeVar = "SESSION_MAX_LIFETIME"
	tokenSecretVar        = "TOKEN_SECRET"
	purgeIntervalVar      = "SESSION_PURGE_INTERVAL"

	minSecretLength = 32
	devTokenSecret  = "dev-only-token-secret-change-me!!"
)

type SessionConfig interface {
	GetSessionTTL() time.Duration
	// GetSessionMaxLifetime caps a session's lifetime from creation; 0 disables the cap.
	GetSessionMaxLifetime() time.Duration
	GetTokenSecret() string
	GetSessionPurgeInterval() time.Duration
}

type Session struct {
	v *viper.Viper
}

var _ SessionConfig = Session{}

func (s Session) GetSessionTTL() time.Duration {
	return s.v.GetDuration(sessionTTLVar)
}

func (s Session) GetSessionMaxLifetime() time.Duration {
	return s.v.GetDuration(sessionMaxLifetimeVar)
}

// GetTokenSecret returns TOKEN_SECRET, falling back to a fixed secret in DEV.
func (s Session) GetTokenSecret() string {
	secret := s.v.GetString(tokenSecretVar)
	if secret == "" && (EnvVars{v: s.v}).IsDev() {
		return devTokenSecret
	}
	return secret
}

func (s Session) GetSessionPurgeInterval() time.Duration {
	return s.v.GetDuration(purgeIntervalVar)
}
