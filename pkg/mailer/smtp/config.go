package smtp

// Config holds SMTP connection settings. Port 465 uses implicit TLS, any
// other port upgrades with STARTTLS.
type Config struct {
	Host string `env:"HOST" envDefault:"smtp.gmail.com"`
	Port int    `env:"PORT" envDefault:"587"`
	// Username and Password are the login credentials, set by the caller.
	Username string
	Password string
	// SenderName is the display name on the From header.
	SenderName string `env:"SENDER_NAME"`
	// AllowInsecure permits sessions on servers that do not offer STARTTLS.
	// Only meant for local relays and tests.
	AllowInsecure bool `env:"ALLOW_INSECURE" envDefault:"false"`
	// LocalName is sent with EHLO. Defaults to "localhost".
	LocalName string `env:"LOCAL_NAME"`
}
