package config

import "github.com/spf13/viper"

const (
	adminEmailVar    = "SYSTEM_ADMIN_EMAIL"
	adminUserVar     = "SYSTEM_ADMIN_USER"
	adminPasswordVar = "SYSTEM_ADMIN_PASSWORD"
)

type AdminConfig interface {
	// GetSystemAdminEmail is empty when no administrator should be bootstrapped.
	GetSystemAdminEmail() string
	GetSystemAdminUser() string
	// GetSystemAdminPassword is empty when a password should be generated.
	GetSystemAdminPassword() string
}

type Admin struct {
	v *viper.Viper
}

var _ AdminConfig = Admin{}

func (a Admin) GetSystemAdminEmail() string {
	return a.v.GetString(adminEmailVar)
}

func (a Admin) GetSystemAdminUser() string {
	return a.v.GetString(adminUserVar)
}

func (a Admin) GetSystemAdminPassword() string {
	return a.v.GetString(adminPasswordVar)
}
