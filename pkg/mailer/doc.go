// Package mailer defines the provider independent message type and the
// delivery interface used by the digest.
//
// A Mailer validates an Email (recipient, subject and HTML body are required),
// fills the default sender, stamps a Message-ID and hands it to a Sender:
//
//	m := mailer.New(smtp.New(cfg), mailer.Config{From: cfg.Username})
//	err := m.Send(ctx, &mailer.Email{
//		To:      []string{"me@example.com"},
//		Subject: "Tech Events This Week",
//		HTML:    html,
//		Text:    text,
//	})
//
// Providers live in sub-packages: smtp (gomail) and resend. Any type with a
// Send(ctx, *Email) error method can be plugged in, as can a SenderFunc.
//
// Markdown converts event descriptions to HTML and understands a button
// shorthand for call-to-action links:
//
//	[!button|Open the newsletter](https://example.com/newsletter)
//
// Errors returned by Send wrap ErrSendFailed together with the provider error.
package mailer
