// Package config reads service settings from the environment and an optional .env file.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	VerificationConfig
	CacheConfig
	StoreConfig
	MailConfig
	AdminConfig
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	Verification
	Cache
	Store
	Mail
	Admin
}

// Load builds a Config from envFile (skipped when empty or missing) overlaid by the
// process environment.
func Load(envFile string) (Config, error) {
	v := viper.New()
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "[config.Load] read %s", envFile)
			}
		}
	}
	v.AutomaticEnv()
	setDefaults(v)

	cfg := mainConfig{
		EnvVars:      EnvVars{v: v},
		Cors:         Cors{v: v},
		Session:      Session{v: v},
		Verification: Verification{v: v},
		Cache:        Cache{v: v},
		Store:        Store{v: v},
		Mail:         Mail{v: v},
		Admin:        Admin{v: v},
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(portEnvVar, "8080")
	v.SetDefault(appNameVar, "Marketplace Auth")
	v.SetDefault(envVar, "DEV")
	v.SetDefault(logLevelVar, "info")

	v.SetDefault(corsOriginsVar, "")

	v.SetDefault(sessionTTLVar, "168h")
	v.SetDefault(sessionMaxLifetimeVar, "0s")
	v.SetDefault(tokenSecretVar, "")
	v.SetDefault(purgeIntervalVar, "1h")

	v.SetDefault(resetCodeTTLVar, "15m")
	v.SetDefault(resetAccessTTLVar, "30m")
	v.SetDefault(verifyCodeTTLVar, "15m")

	v.SetDefault(cacheBackendVar, CacheMemory)
	v.SetDefault(redisAddrVar, "localhost:6379")
	v.SetDefault(redisPasswordVar, "")
	v.SetDefault(redisDBVar, 0)
	v.SetDefault(cachePrefixVar, "")
	v.SetDefault(logoutChannelVar, "realtime:forced-logout")
	v.SetDefault(notifyTimeoutVar, "5s")

	v.SetDefault(storeBackendVar, StoreMemory)
	v.SetDefault(mongoURIVar, "mongodb://localhost:27017")
	v.SetDefault(mongoDatabaseVar, "marketplace")

	v.SetDefault(smtpHostVar, "")
	v.SetDefault(smtpPortVar, 587)
	v.SetDefault(smtpAccountVar, "")
	v.SetDefault(smtpPasswordVar, "")
	v.SetDefault(mailFromVar, "")

	v.SetDefault(adminEmailVar, "")
	v.SetDefault(adminUserVar, "admin")
	v.SetDefault(adminPasswordVar, "")
}

func validate(cfg mainConfig) error {
	switch cfg.GetCacheBackend() {
	case CacheMemory, CacheRedis:
	default:
		return errors.Errorf("[config.Load] %s must be %q or %q", cacheBackendVar, CacheMemory, CacheRedis)
	}
	switch cfg.GetStoreBackend() {
	case StoreMemory, StoreMongo:
	default:
		return errors.Errorf("[config.Load] %s must be %q or %q", storeBackendVar, StoreMemory, StoreMongo)
	}
	if cfg.GetSessionTTL() <= 0 {
		return errors.Errorf("[config.Load] %s must be positive", sessionTTLVar)
	}
	if !cfg.IsDev() && len(cfg.GetTokenSecret()) < minSecretLength {
		return errors.Errorf("[config.Load] %s must be at least %d characters outside DEV", tokenSecretVar, minSecretLength)
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
