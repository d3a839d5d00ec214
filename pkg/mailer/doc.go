// Package mailer defines the delivery channel used by the dispatcher.
//
// # Architecture
//
//   - [Sender]: delivers one prepared [Email]
//   - [Transport]: opens a Sender bound to per-campaign [Credentials]
//   - [Compose]: builds the text and HTML bodies for one recipient
//
// Credentials are supplied with every campaign and handed to the transport
// only for the lifetime of that campaign. Nothing in this package stores them.
//
// # Providers
//
// Three transports are available as subpackages:
//
//   - smtp: authenticated SMTP, implicit TLS on port 465 (gopkg.in/mail.v2)
//   - resend: Resend API, the campaign secret is the API key
//   - ses: Amazon SES v2, the campaign secret is "KEY_ID:SECRET"
//
// # Usage
//
//	transport := smtp.New(smtp.Config{Host: "smtp.gmail.com", Port: 465})
//
//	sender, err := transport.Open(ctx, mailer.Credentials{
//		Identity: "me@example.com",
//		Secret:   appPassword,
//	})
//	if err != nil {
//		return err
//	}
//
//	email, err := mailer.Compose(ctx, mailer.Message{
//		Identity: "me@example.com",
//		To:       "friend@example.com",
//		Subject:  "Quick question",
//		Greeting: "Hi",
//		Body:     "Are you around on Friday?",
//	})
//	if err != nil {
//		return err
//	}
//
//	if err := sender.Send(ctx, email); err != nil {
//		return mailer.NewTransportError("friend@example.com", err)
//	}
//
// # Errors
//
// Delivery failures are reported as [*TransportError], which matches
// [ErrTransport] with errors.Is. Validation of an Email reports
// [ErrNoRecipient], [ErrNoSubject] or [ErrNoContent].
package mailer
