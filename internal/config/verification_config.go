package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	resetCodeTTLVar   = "RESET_CODE_TTL"
	resetAccessTTLVar = "RESET_ACCESS_TTL"
	verifyCodeTTLVar  = "VERIFY_CODE_TTL"
)

type VerificationConfig interface {
	GetResetCodeTTL() time.Duration
	GetResetAccessTTL() time.Duration
	GetVerifyCodeTTL() time.Duration
}

type Verification struct {
	v *viper.Viper
}

var _ VerificationConfig = Verification{}

func (c Verification) GetResetCodeTTL() time.Duration {
	return c.v.GetDuration(resetCodeTTLVar)
}

func (c Verification) GetResetAccessTTL() time.Duration {
	return c.v.GetDuration(resetAccessTTLVar)
}

func (c Verification) GetVerifyCodeTTL() time.Duration {
	return c.v.GetDuration(verifyCodeTTLVar)
}
