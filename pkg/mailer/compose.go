package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailpace/pkg/sanitizer"
)

// DefaultSenderName is used in the From header when a campaign has none.
const DefaultSenderName = "Support"

// DefaultFooter is appended to every message body.
const DefaultFooter = "You are receiving this email because you opted in.\nTo unsubscribe reply STOP."

// Message is the per-recipient input for Compose.
type Message struct {
	Identity   string // Sending address; also used as Reply-To
	SenderName string // Display name, DefaultSenderName when empty
	To         string
	Subject    string
	Greeting   string
	Body       string // Operator message, plain text or basic HTML
	Footer     string // DefaultFooter when empty
}

// Compose builds a ready-to-send Email with text and HTML bodies, a unique
// Message-ID and an unsubscribe hint.
func Compose(ctx context.Context, m Message) (*Email, error) {
	if m.To == "" {
		return nil, ErrNoRecipient
	}
	if strings.TrimSpace(m.Subject) == "" {
		return nil, ErrNoSubject
	}
	if strings.TrimSpace(m.Body) == "" {
		return nil, ErrNoContent
	}
	if m.SenderName == "" {
		m.SenderName = DefaultSenderName
	}
	if m.Footer == "" {
		m.Footer = DefaultFooter
	}

	var buf bytes.Buffer
	if err := htmlBody(m).Render(ctx, &buf); err != nil {
		return nil, errors.Join(ErrRenderFailed, err)
	}

	return &Email{
		From:    Recipient(m.SenderName, m.Identity),
		To:      []string{m.To},
		ReplyTo: m.Identity,
		Subject: m.Subject,
		Text:    textBody(m),
		HTML:    buf.String(),
		Headers: map[string]string{
			"Message-ID":       MessageID(m.Identity),
			"List-Unsubscribe": fmt.Sprintf("<mailto:%s?subject=STOP>", m.Identity),
		},
	}, nil
}

// MessageID returns a globally unique RFC 5322 message identifier using the
// domain of the sending address.
func MessageID(identity string) string {
	domain := "localhost"
	if at := strings.LastIndexByte(identity, '@'); at >= 0 && at < len(identity)-1 {
		domain = identity[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

func textBody(m Message) string {
	var b strings.Builder
	b.WriteString(m.Greeting)
	b.WriteString(",\n\n")
	b.WriteString(sanitizer.StripHTML(m.Body))
	b.WriteString("\n\n--\n")
	b.WriteString(m.Footer)
	b.WriteString("\n")
	return b.String()
}

func footerLines(footer string) []string {
	return strings.Split(footer, "\n")
}
