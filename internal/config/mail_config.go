package config

import "github.com/spf13/viper"

const (
	smtpHostVar     = "SMTP_HOST"
	smtpPortVar     = "SMTP_PORT"
	smtpAccountVar  = "SMTP_ACCOUNT"
	smtpPasswordVar = "SMTP_PASSWORD"
	mailFromVar     = "MAIL_FROM"
)

type MailConfig interface {
	// GetSmtpHost is empty when outgoing mail should only be logged.
	GetSmtpHost() string
	GetSmtpPort() int
	GetSmtpAccount() string
	GetSmtpPassword() string
	GetMailFrom() string
}

type Mail struct {
	v *viper.Viper
}

var _ MailConfig = Mail{}

func (m Mail) GetSmtpHost() string {
	return m.v.GetString(smtpHostVar)
}

func (m Mail) GetSmtpPort() int {
	return m.v.GetInt(smtpPortVar)
}

func (m Mail) GetSmtpAccount() string {
	return m.v.GetString(smtpAccountVar)
}

func (m Mail) GetSmtpPassword() string {
	return m.v.GetString(smtpPasswordVar)
}

// GetMailFrom defaults to the SMTP account.
func (m Mail) GetMailFrom() string {
	if from := m.v.GetString(mailFromVar); from != "" {
		return from
	}
	return m.GetSmtpAccount()
}
