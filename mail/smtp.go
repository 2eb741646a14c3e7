package mail

import (
	"context"
	"crypto/tls"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SMTPSender sends mail through an SMTP relay, upgrading with STARTTLS when offered
// and authenticating with PLAIN when an account is configured.
type SMTPSender struct {
	host     string
	port     int
	account  string
	password string
	from     string
	// InsecureSkipVerify skips certificate checks (local relays such as MailHog).
	InsecureSkipVerify bool
	dialTimeout        time.Duration
}

func NewSMTPSender(host string, port int, account, password, from string) *SMTPSender {
	return &SMTPSender{
		host:        host,
		port:        port,
		account:     account,
		password:    password,
		from:        from,
		dialTimeout: 5 * time.Second,
	}
}

func (m *SMTPSender) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	dialer := &net.Dialer{Timeout: m.dialTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrap(err, "[SMTPSender.SendEmail] dial")
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return errors.Wrap(err, "[SMTPSender.SendEmail] client")
	}
	defer func() {
		if err := c.Quit(); err != nil {
			log.Debug().Err(err).Msg("smtp quit")
		}
	}()

	if err := c.Hello("localhost"); err != nil {
		return errors.Wrap(err, "[SMTPSender.SendEmail] EHLO")
	}
	if ok, _ := c.Extension("STARTTLS"); ok {
		cfg := &tls.Config{ServerName: m.host, InsecureSkipVerify: m.InsecureSkipVerify}
		if err := c.StartTLS(cfg); err != nil {
			return errors.Wrap(err, "[SMTPSender.SendEmail] STARTTLS")
		}
	}
	if m.account != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", m.account, m.password, m.host)); err != nil {
				return errors.Wrap(err, "[SMTPSender.SendEmail] AUTH")
			}
		}
	}

	if err := c.Mail(m.from); err != nil {
		return errors.Wrap(err, "[SMTPSender.SendEmail] MAIL FROM")
	}
	if err := c.Rcpt(to); err != nil {
		return errors.Wrap(err, "[SMTPSender.SendEmail] RCPT TO")
	}
	w, err := c.Data()
	if err != nil {
		return errors.Wrap(err, "[SMTPSender.SendEmail] DATA")
	}
	if _, err := w.Write([]byte(m.message(to, subject, htmlBody))); err != nil {
		return errors.Wrap(err, "[SMTPSender.SendEmail] write")
	}
	return w.Close()
}

func (m *SMTPSender) message(to, subject, htmlBody string) string {
	var sb strings.Builder
	sb.WriteString("From: " + m.from + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(htmlBody)
	return sb.String()
}
