package mailer

import (
	"maps"
	"net/mail"
)

// Tags are provider-specific categories. Values are either struct{}{} for
// presence-only tags or a scalar for key-value pairs.
type Tags map[string]any

// SimpleTags creates presence-only tags from names.
func SimpleTags(names ...string) Tags {
	t := make(Tags, len(names))
	for _, n := range names {
		t[n] = struct{}{}
	}
	return t
}

// Recipient formats name and address as an RFC 5322 mailbox, quoting or
// encoding the name as needed. It returns the bare address when name is empty.
func Recipient(name, email string) string {
	if name == "" {
		return email
	}
	return (&mail.Address{Name: name, Address: email}).String()
}

// Email is a message ready for delivery.
type Email struct {
	Headers     map[string]string // Custom headers
	Tags        Tags              // Provider-specific tags/categories
	Subject     string
	HTML        string // HTML body
	Text        string // Plain text alternative
	From        string // Overrides the provider default
	ReplyTo     string
	To          []string
	CC          []string
	BCC         []string
	Attachments []Attachment
}

// Header returns the value of a custom header.
func (e *Email) Header(name string) string {
	return e.Headers[name]
}

// SetHeader sets a custom header, allocating the map on first use.
func (e *Email) SetHeader(name, value string) {
	if e.Headers == nil {
		e.Headers = make(map[string]string)
	}
	e.Headers[name] = value
}

// Clone returns a copy that can be modified without touching e.
func (e *Email) Clone() *Email {
	c := *e
	c.Headers = maps.Clone(e.Headers)
	c.Tags = maps.Clone(e.Tags)
	c.To = append([]string(nil), e.To...)
	c.CC = append([]string(nil), e.CC...)
	c.BCC = append([]string(nil), e.BCC...)
	c.Attachments = append([]Attachment(nil), e.Attachments...)
	return &c
}

// Attachment is a file attached to an Email.
type Attachment struct {
	Filename    string
	ContentType string // MIME type, e.g. "text/calendar"
	ContentID   string // Optional Content-ID for inline attachments
	Content     []byte
}
