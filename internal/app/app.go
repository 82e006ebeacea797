// Package app wires configuration, event sources, rendering and delivery
// into a single digest run.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/techdigest/pkg/digest"
	"github.com/dmitrymomot/techdigest/pkg/logger"
	"github.com/dmitrymomot/techdigest/pkg/mailer"
	"github.com/dmitrymomot/techdigest/pkg/mailer/resend"
	"github.com/dmitrymomot/techdigest/pkg/mailer/smtp"
	"github.com/dmitrymomot/techdigest/pkg/metrics"
)

const (
	digestTag   = "weekly-digest"
	pushTimeout = 10 * time.Second
)

// Option configures an App.
type Option func(*App)

// WithSender replaces the configured mail provider.
func WithSender(s mailer.Sender) Option {
	return func(a *App) {
		if s != nil {
			a.sender = s
		}
	}
}

// WithSource replaces the configured event sources.
func WithSource(s digest.Source) Option {
	return func(a *App) {
		if s != nil {
			a.source = s
		}
	}
}

// WithClock sets the time source. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the application logger.
// If nil, logging is disabled.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithSMTPOptions passes options to the SMTP sender built from Config.
// Ignored when WithSender is used or the provider is not smtp.
func WithSMTPOptions(opts ...smtp.Option) Option {
	return func(a *App) {
		a.smtpOpts = append(a.smtpOpts, opts...)
	}
}

// App runs the digest pipeline.
type App struct {
	cfg      Config
	sender   mailer.Sender
	source   digest.Source
	renderer *digest.Renderer
	logger   *slog.Logger
	now      func() time.Time
	smtpOpts []smtp.Option
}

// New builds an App from cfg.
func New(cfg Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:      cfg,
		renderer: digest.NewRenderer(),
		logger:   logger.NewNope(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.sender == nil {
		sender, err := a.newSender()
		if err != nil {
			return nil, err
		}
		a.sender = sender
	}
	if a.source == nil {
		a.source = a.newSource()
	}

	return a, nil
}

func (a *App) newSender() (mailer.Sender, error) {
	switch a.cfg.Provider {
	case ProviderResend:
		s, err := resend.New(a.cfg.Resend)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		return s, nil
	case ProviderSMTP, "":
		opts := append([]smtp.Option{smtp.WithLogger(a.logger)}, a.smtpOpts...)
		return smtp.New(a.cfg.smtpConfig(), opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown mail provider %q", ErrConfig, a.cfg.Provider)
	}
}

func (a *App) newSource() digest.Source {
	var sources []digest.Source
	if a.cfg.Placeholder {
		sources = append(sources, digest.Placeholder{})
	}
	if a.cfg.EventsFile != "" {
		sources = append(sources, digest.OpenFile(a.cfg.EventsFile))
	}
	return digest.Combine(sources...)
}

// Run builds the digest for the current week and sends it to the recipient.
// Every failure is wrapped in ErrDelivery.
func (a *App) Run(ctx context.Context) error {
	started := a.now()
	ctx = logger.WithRunID(ctx, uuid.NewString())

	rec := metrics.New()
	defer func() {
		rec.RunFinished(a.now().Sub(started))
		a.pushMetrics(ctx, rec)
	}()

	window := digest.NewWindow(started)
	a.logger.InfoContext(ctx, "fetching events", slog.String("window", window.String()))

	events, err := a.source.Fetch(ctx, window)
	if err != nil {
		rec.Failure(metrics.StageFetch)
		return fmt.Errorf("%w: fetch events: %w", ErrDelivery, err)
	}
	rec.ObserveEvents(len(events))
	a.logger.InfoContext(ctx, "events fetched", slog.Int("count", len(events)))

	d, err := a.renderer.Render(events, window)
	if err != nil {
		rec.Failure(metrics.StageRender)
		return fmt.Errorf("%w: render digest: %w", ErrDelivery, err)
	}

	m := mailer.New(a.sender, mailer.Config{From: a.cfg.SenderEmail})
	email := &mailer.Email{
		From:    mailer.Recipient(a.cfg.SMTP.SenderName, a.cfg.SenderEmail),
		To:      []string{a.cfg.RecipientEmail},
		Subject: d.Subject,
		HTML:    d.HTML,
		Text:    d.Text,
		Tags:    mailer.SimpleTags(digestTag),
	}
	if err := m.Send(ctx, email); err != nil {
		rec.Failure(metrics.StageSend)
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	rec.EmailSent(a.now())
	a.logger.InfoContext(ctx, "digest delivered",
		slog.String("recipient", a.cfg.RecipientEmail),
		slog.String("subject", d.Subject),
	)
	return nil
}

// pushMetrics is best effort. A failed push never fails the run.
func (a *App) pushMetrics(ctx context.Context, rec *metrics.Recorder) {
	if a.cfg.Metrics.PushgatewayURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()

	if err := rec.Push(ctx, a.cfg.Metrics); err != nil {
		a.logger.WarnContext(ctx, "failed to push metrics", slog.String("error", err.Error()))
	}
}
