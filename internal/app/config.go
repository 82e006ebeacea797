package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrymomot/techdigest/pkg/logger"
	"github.com/dmitrymomot/techdigest/pkg/mailer/resend"
	"github.com/dmitrymomot/techdigest/pkg/mailer/smtp"
	"github.com/dmitrymomot/techdigest/pkg/metrics"
)

// Mail providers accepted by Config.Provider.
const (
	ProviderSMTP   = "smtp"
	ProviderResend = "resend"
)

// Config is the full runtime configuration, read from the environment.
type Config struct {
	SenderEmail    string `env:"SENDER_EMAIL,required,notEmpty"`
	AppPassword    string `env:"EMAIL_APP_PASSWORD,required,notEmpty"`
	RecipientEmail string `env:"RECIPIENT_EMAIL,required,notEmpty"`

	Provider string      `env:"MAILER_PROVIDER" envDefault:"smtp"`
	SMTP     smtp.Config `envPrefix:"SMTP_"`
	Resend   resend.Config

	// EventsFile adds a yaml, json or markdown file of events to the digest.
	EventsFile string `env:"EVENTS_FILE"`
	// Placeholder includes the built-in placeholder record.
	Placeholder bool `env:"EVENTS_PLACEHOLDER" envDefault:"true"`

	Log     logger.Config
	Metrics metrics.Config
}

// LoadConfig reads Config from the process environment.
func LoadConfig() (Config, error) {
	return parse(env.Options{})
}

// LoadConfigFrom reads Config from vars instead of the process environment.
func LoadConfigFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, errors.Join(ErrConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, errors.Join(ErrConfig, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderSMTP:
	case ProviderResend:
		if c.Resend.APIKey == "" {
			return errors.New("RESEND_API_KEY is required for the resend provider")
		}
	default:
		return fmt.Errorf("unknown MAILER_PROVIDER %q", c.Provider)
	}

	if !c.Placeholder && c.EventsFile == "" {
		return errors.New("no event source: set EVENTS_FILE or EVENTS_PLACEHOLDER=true")
	}
	return nil
}

// smtpConfig returns the SMTP settings with the sender credentials applied.
func (c Config) smtpConfig() smtp.Config {
	cfg := c.SMTP
	cfg.Username = c.SenderEmail
	cfg.Password = c.AppPassword
	return cfg
}
