// Package mail sends the short transactional emails carrying verification and
// password-reset codes.
package mail

import (
	"context"
	"fmt"
	"html"

	"github.com/rs/zerolog/log"
)

// Sender delivers one HTML email.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// CodeBody renders the body of a code email.
func CodeBody(heading, code string, validFor string) string {
	return fmt.Sprintf("<h2>%s</h2><p>Your code: <b>%s</b></p><p>The code is valid for %s.</p>",
		html.EscapeString(heading), html.EscapeString(code), html.EscapeString(validFor))
}

// LogSender writes emails to the log instead of sending them. Development only.
type LogSender struct{}

func (LogSender) SendEmail(_ context.Context, to, subject, htmlBody string) error {
	log.Info().Str("to", to).Str("subject", subject).Str("body", htmlBody).Msg("email (not sent)")
	return nil
}
