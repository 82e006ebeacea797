package resend

// Config holds Resend provider settings.
type Config struct {
	APIKey     string `env:"RESEND_API_KEY"`
	SenderName string `env:"RESEND_FROM_NAME"`
	// BaseURL overrides the API endpoint. Empty means the Resend default.
	BaseURL string `env:"RESEND_BASE_URL"`
}
