package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// HeaderMessageID is the header stamped on every outgoing message.
const HeaderMessageID = "Message-ID"

// Mailer validates messages and hands them to a Sender.
type Mailer struct {
	sender Sender
	config Config
}

// Config holds defaults applied to every message.
type Config struct {
	// From is used when an Email leaves From empty.
	From string
	// MessageIDDomain is the right-hand side of generated Message-IDs.
	// Defaults to the domain of From.
	MessageIDDomain string
}

// New creates a Mailer delivering through sender.
func New(sender Sender, cfg Config) *Mailer {
	return &Mailer{sender: sender, config: cfg}
}

// Send validates email, fills defaults and delivers it.
// The caller's Email is not modified.
func (m *Mailer) Send(ctx context.Context, email *Email) error {
	if email == nil || len(email.To) == 0 {
		return ErrNoRecipient
	}
	if email.Subject == "" {
		return ErrNoSubject
	}
	if email.HTML == "" {
		return ErrNoContent
	}

	out := email.Clone()
	if out.From == "" {
		out.From = m.config.From
	}
	if out.From == "" {
		return ErrNoSender
	}
	if out.Header(HeaderMessageID) == "" {
		out.SetHeader(HeaderMessageID, m.messageID(out.From))
	}

	if err := m.sender.Send(ctx, out); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}

func (m *Mailer) messageID(from string) string {
	domain := m.config.MessageIDDomain
	if domain == "" {
		if at := strings.LastIndexByte(from, '@'); at != -1 {
			domain = strings.TrimSuffix(from[at+1:], ">")
		}
	}
	if domain == "" {
		domain = "localhost"
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
