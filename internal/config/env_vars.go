package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	portEnvVar  = "PORT"
	appNameVar  = "APP_NAME"
	envVar      = "ENV"
	logLevelVar = "LOG_LEVEL"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	IsDev() bool
	GetLogLevel() string
}

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

// GetPort returns the listen address, e.g. ":8080".
func (e EnvVars) GetPort() string {
	port := e.v.GetString(portEnvVar)
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.v.GetString(appNameVar)
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.v.GetString(envVar))
}

func (e EnvVars) IsDev() bool {
	return e.GetEnv() == "DEV"
}

func (e EnvVars) GetLogLevel() string {
	return e.v.GetString(logLevelVar)
}
