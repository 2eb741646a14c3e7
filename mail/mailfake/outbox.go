package mailfake

import (
	"context"
	"regexp"
	"slices"
	"sync"

	"github.com/clone-prom-team-2025/server/mail"
)

var _ mail.Sender = (*Outbox)(nil)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Outbox records sent messages instead of delivering them.
type Outbox struct {
	lock     sync.Mutex
	messages []Message
	Err      error
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) SendEmail(_ context.Context, to, subject, htmlBody string) error {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.messages = append(o.messages, Message{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (o *Outbox) Messages() []Message {
	o.lock.Lock()
	defer o.lock.Unlock()
	return slices.Clone(o.messages)
}

// Last returns the most recent message; ok is false when nothing was sent.
func (o *Outbox) Last() (Message, bool) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if len(o.messages) == 0 {
		return Message{}, false
	}
	return o.messages[len(o.messages)-1], true
}

var codePattern = regexp.MustCompile(`<b>([A-Za-z0-9]+)</b>`)

// Code extracts the code rendered by mail.CodeBody, or "" when there is none.
func (m Message) Code() string {
	match := codePattern.FindStringSubmatch(m.Body)
	if match == nil {
		return ""
	}
	return match[1]
}
