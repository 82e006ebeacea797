package smtp

import "errors"

var (
	// ErrDialFailed is returned when connecting, upgrading to TLS or
	// authenticating fails.
	ErrDialFailed = errors.New("smtp: dial failed")

	// ErrTLSRequired is returned when the server does not offer STARTTLS and
	// AllowInsecure is not set.
	ErrTLSRequired = errors.New("smtp: server does not support STARTTLS")

	// ErrTransmitFailed is returned when the server rejects the message.
	ErrTransmitFailed = errors.New("smtp: transmit failed")
)
