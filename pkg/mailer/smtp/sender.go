// Package smtp delivers mailer.Email messages over SMTP with STARTTLS and
// credential login. Messages are composed with gopkg.in/gomail.v2.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	netsmtp "net/smtp"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/dmitrymomot/techdigest/pkg/logger"
	"github.com/dmitrymomot/techdigest/pkg/mailer"
)

// implicitTLSPort is the submission port that expects TLS from the first byte.
const implicitTLSPort = 465

const defaultDialTimeout = 30 * time.Second

// Option configures a Sender.
type Option func(*Sender)

// WithLogger sets the logger used for progress lines.
func WithLogger(log *slog.Logger) Option {
	return func(s *Sender) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTLSConfig overrides the TLS settings used for STARTTLS.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(s *Sender) {
		if cfg != nil {
			s.tlsConfig = cfg
		}
	}
}

// WithDialTimeout bounds the TCP connect. Default: 30 seconds.
func WithDialTimeout(d time.Duration) Option {
	return func(s *Sender) {
		s.dialTimeout = d
	}
}

// Sender implements mailer.Sender over SMTP.
type Sender struct {
	config      Config
	tlsConfig   *tls.Config
	log         *slog.Logger
	dialTimeout time.Duration
}

// New creates an SMTP sender. Nothing is dialed until Send.
func New(cfg Config, opts ...Option) *Sender {
	if cfg.LocalName == "" {
		cfg.LocalName = "localhost"
	}

	s := &Sender{
		config:      cfg,
		tlsConfig:   &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
		log:         logger.NewNope(),
		dialTimeout: defaultDialTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Addr returns host:port of the configured server.
func (s *Sender) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Send implements mailer.Sender. Each call runs one session: connect,
// STARTTLS, login, transmit, quit. Cancelling ctx aborts the session only
// until it is established; once logged in, the transmission runs to the end.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := s.compose(email)

	c, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	s.log.InfoContext(ctx, "sending email", slog.Any("to", email.To))
	err = gomail.Send(gomail.SendFunc(func(from string, to []string, m io.WriterTo) error {
		return transmit(c, from, to, m)
	}), msg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransmitFailed, err)
	}

	// The message is accepted once DATA completes; QUIT errors are not delivery errors.
	_ = c.Quit()

	s.log.InfoContext(ctx, "email sent", slog.String("subject", email.Subject))
	return nil
}

// dial opens an authenticated session.
func (s *Sender) dial(ctx context.Context) (*netsmtp.Client, error) {
	addr := s.Addr()
	s.log.InfoContext(ctx, "connecting to SMTP server", slog.String("addr", addr))

	d := net.Dialer{Timeout: s.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDialFailed, addr, err)
	}
	if s.config.Port == implicitTLSPort {
		conn = tls.Client(conn, s.tlsConfig)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	c, err := s.handshake(conn)
	if !stop() && err == nil {
		_ = c.Close()
		return nil, ctx.Err()
	}
	if err != nil {
		_ = conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	return c, nil
}

// handshake greets the server, upgrades to TLS and logs in.
func (s *Sender) handshake(conn net.Conn) (*netsmtp.Client, error) {
	addr := s.Addr()

	c, err := netsmtp.NewClient(conn, s.config.Host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDialFailed, addr, err)
	}
	if err := c.Hello(s.config.LocalName); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDialFailed, addr, err)
	}

	if _, isTLS := c.TLSConnectionState(); !isTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(s.tlsConfig); err != nil {
				return nil, fmt.Errorf("%w: %s: starttls: %w", ErrDialFailed, addr, err)
			}
		} else if !s.config.AllowInsecure {
			return nil, fmt.Errorf("%w: %s", ErrTLSRequired, addr)
		}
	}

	if s.config.Username != "" {
		s.log.Info("logging in", slog.String("user", s.config.Username))
		auth := netsmtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		if err := c.Auth(auth); err != nil {
			return nil, fmt.Errorf("%w: %s: auth: %w", ErrDialFailed, addr, err)
		}
	}

	return c, nil
}

func transmit(c *netsmtp.Client, from string, to []string, m io.WriterTo) error {
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, addr := range to {
		if err := c.Rcpt(addr); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := m.WriteTo(w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// compose builds the message: a multipart/alternative with plain text first
// and HTML as the preferred part.
func (s *Sender) compose(email *mailer.Email) *gomail.Message {
	msg := gomail.NewMessage()

	from := email.From
	if from == "" {
		from = mailer.Recipient(s.config.SenderName, s.config.Username)
	}
	msg.SetHeader("From", from)
	msg.SetHeader("To", email.To...)
	if len(email.CC) > 0 {
		msg.SetHeader("Cc", email.CC...)
	}
	if len(email.BCC) > 0 {
		msg.SetHeader("Bcc", email.BCC...)
	}
	if email.ReplyTo != "" {
		msg.SetHeader("Reply-To", email.ReplyTo)
	}
	for name, value := range email.Headers {
		msg.SetHeader(name, value)
	}
	msg.SetHeader("Subject", email.Subject)

	if email.Text != "" {
		msg.SetBody("text/plain", email.Text)
		msg.AddAlternative("text/html", email.HTML)
	} else {
		msg.SetBody("text/html", email.HTML)
	}

	for _, a := range email.Attachments {
		msg.Attach(a.Filename, attachmentSettings(a)...)
	}
	return msg
}

func attachmentSettings(a mailer.Attachment) []gomail.FileSetting {
	content := a.Content
	settings := []gomail.FileSetting{
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := io.Copy(w, bytes.NewReader(content))
			return err
		}),
	}

	header := map[string][]string{}
	if a.ContentType != "" {
		header["Content-Type"] = []string{a.ContentType}
	}
	if a.ContentID != "" {
		header["Content-ID"] = []string{"<" + a.ContentID + ">"}
	}
	if len(header) > 0 {
		settings = append(settings, gomail.SetHeader(header))
	}
	return settings
}
