package logger

import (
	"log/slog"
	"regexp"
	"strings"
)

// redactedKeys are attribute keys whose values are recipient addresses.
var redactedKeys = map[string]struct{}{
	"recipient": {},
	"email":     {},
	"to":        {},
}

// errorKey values are free text that may embed addresses, e.g. a transport
// error naming the recipient.
const errorKey = "error"

var emailPattern = regexp.MustCompile(`[\p{L}\p{N}._%+\-]+@[\p{L}\p{N}.\-]+\.[\p{L}]{2,}`)

// RedactEmail masks an email address for logging.
// "john.doe@example.com" becomes "jo***@example.com"; local parts of two
// characters or fewer are fully masked.
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return "***@***"
	}
	if r := []rune(local); len(r) > 2 {
		return string(r[:2]) + "***@" + domain
	}
	return "***@" + domain
}

// RedactText masks every email address found in s.
func RedactText(s string) string {
	return emailPattern.ReplaceAllStringFunc(s, RedactEmail)
}

// RedactAttr is a slog ReplaceAttr func that masks recipient addresses,
// including addresses embedded in error messages.
func RedactAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == errorKey {
		switch a.Value.Kind() {
		case slog.KindString:
			return slog.String(a.Key, RedactText(a.Value.String()))
		case slog.KindAny:
			if err, ok := a.Value.Any().(error); ok {
				return slog.String(a.Key, RedactText(err.Error()))
			}
		}
		return a
	}
	if _, ok := redactedKeys[a.Key]; !ok {
		return a
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, RedactEmail(a.Value.String()))
	}
	return a
}
