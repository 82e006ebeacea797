package app_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/techdigest/internal/app"
	"github.com/dmitrymomot/techdigest/pkg/digest"
	"github.com/dmitrymomot/techdigest/pkg/logger"
	"github.com/dmitrymomot/techdigest/pkg/mailer"
	"github.com/dmitrymomot/techdigest/pkg/mailer/smtp"
	"github.com/dmitrymomot/techdigest/pkg/mailer/smtp/smtptest"
)

var runTime = time.Date(2026, time.October, 14, 8, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return runTime }

func smtpEnv(srv *smtptest.Server, overrides map[string]string) map[string]string {
	vars := withEnv(map[string]string{
		"SMTP_HOST": srv.Host(),
		"SMTP_PORT": strconv.Itoa(srv.Port()),
	})
	for k, v := range overrides {
		vars[k] = v
	}
	return vars
}

func TestApp_Run_DeliversDigestOverSMTP(t *testing.T) {
	t.Parallel()

	srv := smtptest.NewServer(t,
		smtptest.WithSTARTTLS(),
		smtptest.WithCredentials("sender@example.com", "app-password"),
	)

	cfg, err := app.LoadConfigFrom(smtpEnv(srv, nil))
	require.NoError(t, err)

	var logs bytes.Buffer
	a, err := app.New(cfg,
		app.WithClock(fixedClock),
		app.WithLogger(logger.NewWriter(&logs, logger.RunIDExtractor())),
		app.WithSMTPOptions(smtp.WithTLSConfig(srv.ClientTLSConfig())),
	)
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background()))

	msgs := srv.Messages()
	require.Len(t, msgs, 1, "exactly one message per run")

	msg := msgs[0]
	assert.True(t, msg.TLS)
	assert.Equal(t, "sender@example.com", msg.User)
	assert.Equal(t, "sender@example.com", msg.From)
	assert.Equal(t, []string{"recipient@example.com"}, msg.To)

	parsed, err := msg.Parse()
	require.NoError(t, err)
	assert.Equal(t, "sender@example.com", parsed.Header.Get("From"))
	assert.Equal(t, "recipient@example.com", parsed.Header.Get("To"))
	assert.Equal(t, "🗓️ Tech Events This Week - Oct 14 - Oct 21", parsed.Subject)
	assert.True(t, strings.HasSuffix(parsed.Header.Get("Message-ID"), "@example.com>"))
	assert.Equal(t, "multipart/alternative", parsed.MediaType)

	text := parsed.Parts["text/plain"]
	assert.True(t, strings.HasPrefix(text, "Weekly Tech Events Digest\n\n"))
	assert.Contains(t, text, "Webb Tech Events\nDate: Oct 14 - Oct 21\n")
	assert.Contains(t, text, "40+ Tech Events")

	html := parsed.Parts["text/html"]
	assert.Equal(t, 1, strings.Count(html, `class="event-card"`))
	assert.Contains(t, html, "Weekly Tech Events Digest")
	assert.Contains(t, html, "Sent on October 14, 2026")

	out := logs.String()
	assert.Contains(t, out, "connecting to SMTP server")
	assert.Contains(t, out, "logging in")
	assert.Contains(t, out, "email sent")
	assert.Contains(t, out, "digest delivered")
	assert.Contains(t, out, "run_id=")
}

func TestApp_Run_AllowInsecureWithDisplayName(t *testing.T) {
	t.Parallel()

	srv := smtptest.NewServer(t, smtptest.WithCredentials("sender@example.com", "app-password"))

	cfg, err := app.LoadConfigFrom(smtpEnv(srv, map[string]string{
		"SMTP_ALLOW_INSECURE": "true",
		"SMTP_SENDER_NAME":    "Webb, Tech Digest",
	}))
	require.NoError(t, err)

	a, err := app.New(cfg, app.WithClock(fixedClock))
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].TLS)

	parsed, err := msgs[0].Parse()
	require.NoError(t, err)
	assert.Equal(t, "sender@example.com", msgs[0].From)

	from, err := parsed.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "Webb, Tech Digest", from[0].Name)
	assert.Equal(t, "sender@example.com", from[0].Address)
}

func TestApp_Run_AuthFailure(t *testing.T) {
	t.Parallel()

	srv := smtptest.NewServer(t,
		smtptest.WithSTARTTLS(),
		smtptest.WithCredentials("sender@example.com", "another-password"),
	)

	cfg, err := app.LoadConfigFrom(smtpEnv(srv, nil))
	require.NoError(t, err)

	a, err := app.New(cfg,
		app.WithClock(fixedClock),
		app.WithSMTPOptions(smtp.WithTLSConfig(srv.ClientTLSConfig())),
	)
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.ErrorIs(t, err, app.ErrDelivery)
	require.ErrorIs(t, err, mailer.ErrSendFailed)
	require.ErrorIs(t, err, smtp.ErrDialFailed)
	assert.Equal(t, 1, app.ExitCode(err))
	assert.Empty(t, srv.Messages())
}

func TestApp_Run_TLSRequired(t *testing.T) {
	t.Parallel()

	srv := smtptest.NewServer(t)

	cfg, err := app.LoadConfigFrom(smtpEnv(srv, nil))
	require.NoError(t, err)

	a, err := app.New(cfg, app.WithClock(fixedClock))
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.ErrorIs(t, err, app.ErrDelivery)
	require.ErrorIs(t, err, smtp.ErrTLSRequired)
	assert.Empty(t, srv.Messages())
}

func TestApp_Run_SourceFailure(t *testing.T) {
	t.Parallel()

	cfg, err := app.LoadConfigFrom(baseEnv())
	require.NoError(t, err)

	var sent atomic.Int32
	errBoom := errors.New("boom")
	a, err := app.New(cfg,
		app.WithSender(mailer.SenderFunc(func(context.Context, *mailer.Email) error {
			sent.Add(1)
			return nil
		})),
		app.WithSource(digest.SourceFunc(func(context.Context, digest.Window) ([]digest.Event, error) {
			return nil, errBoom
		})),
	)
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.ErrorIs(t, err, app.ErrDelivery)
	require.ErrorIs(t, err, errBoom)
	assert.Zero(t, sent.Load(), "nothing is sent when fetching fails")
}

func TestApp_Run_EventsFile(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
- title: Berlin AI Meetup
  date_range: Oct 16
  description: Talks on **agents**
- title: Founders Breakfast
`), 0o600))

	cfg, err := app.LoadConfigFrom(withEnv(map[string]string{
		"EVENTS_FILE":        file,
		"EVENTS_PLACEHOLDER": "false",
	}))
	require.NoError(t, err)

	var got *mailer.Email
	a, err := app.New(cfg,
		app.WithClock(fixedClock),
		app.WithSender(mailer.SenderFunc(func(_ context.Context, e *mailer.Email) error {
			got = e
			return nil
		})),
	)
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))

	require.NotNil(t, got)
	assert.Equal(t, []string{"recipient@example.com"}, got.To)
	assert.Equal(t, "sender@example.com", got.From)
	assert.Equal(t, 2, strings.Count(got.HTML, `class="event-card"`))
	assert.Contains(t, got.HTML, "<strong>agents</strong>")
	assert.Contains(t, got.Text, "Berlin AI Meetup\nDate: Oct 16\n")
	assert.Contains(t, got.Text, "Founders Breakfast\nDate: Oct 14 - Oct 21\n")
	assert.NotContains(t, got.Text, "Webb Tech Events")
	assert.Contains(t, got.Tags, "weekly-digest")
}

func TestApp_Run_MissingEventsFile(t *testing.T) {
	t.Parallel()

	cfg, err := app.LoadConfigFrom(withEnv(map[string]string{
		"EVENTS_FILE": filepath.Join(t.TempDir(), "missing.yaml"),
	}))
	require.NoError(t, err)

	a, err := app.New(cfg, app.WithSender(mailer.SenderFunc(func(context.Context, *mailer.Email) error {
		return nil
	})))
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.ErrorIs(t, err, app.ErrDelivery)
	require.ErrorIs(t, err, digest.ErrSourceNotFound)
}

func TestApp_Run_PushesMetrics(t *testing.T) {
	t.Parallel()

	var pushes atomic.Int32
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/metrics/job/techdigest" {
			pushes.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(gw.Close)

	cfg, err := app.LoadConfigFrom(withEnv(map[string]string{"PUSHGATEWAY_URL": gw.URL}))
	require.NoError(t, err)

	a, err := app.New(cfg, app.WithSender(mailer.SenderFunc(func(context.Context, *mailer.Email) error {
		return nil
	})))
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, int32(1), pushes.Load())
}

func TestApp_Run_PushFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(gw.Close)

	cfg, err := app.LoadConfigFrom(withEnv(map[string]string{"PUSHGATEWAY_URL": gw.URL}))
	require.NoError(t, err)

	var logs bytes.Buffer
	a, err := app.New(cfg,
		app.WithLogger(logger.NewWriter(&logs)),
		app.WithSender(mailer.SenderFunc(func(context.Context, *mailer.Email) error {
			return nil
		})),
	)
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, logs.String(), "failed to push metrics")
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, app.ExitCode(nil))
	assert.Equal(t, 1, app.ExitCode(app.ErrConfig))
	assert.Equal(t, 1, app.ExitCode(app.ErrDelivery))
}
