package dispatch

import (
	"regexp"
	"strings"

	"github.com/dmitrymomot/mailpace/pkg/mailer"
)

var recipientSeparator = regexp.MustCompile(`[\n,]+`)

// Campaign is one operator submission. It is never persisted; the credential
// lives only as long as the campaign runs.
type Campaign struct {
	// OnOutcome, when set, is called after every delivery attempt, from the
	// goroutine running the campaign.
	OnOutcome func(Outcome) `json:"-"`

	Identity   string `json:"email"`
	Credential string `json:"password"`
	Recipients string `json:"recipients"`
	Message    string `json:"message"`
	SenderName string `json:"senderName,omitempty"`
	Subject    string `json:"subject,omitempty"`
}

// Validate reports the first missing required field.
func (c Campaign) Validate() error {
	switch {
	case strings.TrimSpace(c.Identity) == "":
		return invalid("email", "sender identity is required")
	case c.Credential == "":
		return invalid("password", "credential is required")
	case strings.TrimSpace(c.Recipients) == "":
		return invalid("recipients", "at least one recipient is required")
	case strings.TrimSpace(c.Message) == "":
		return invalid("message", "message is required")
	}
	return nil
}

func (c Campaign) credentials() mailer.Credentials {
	return mailer.Credentials{Identity: strings.TrimSpace(c.Identity), Secret: c.Credential}
}

// SplitRecipients splits raw input on newlines and commas, trims each entry
// and drops empty ones. Order and duplicates are preserved, so applying it to
// its own joined output gives the same list.
func SplitRecipients(raw string) []string {
	parts := recipientSeparator.Split(raw, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
