// Package sanitizer cleans operator-supplied message bodies before they are
// placed into outgoing email.
package sanitizer

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy  *bluemonday.Policy
	messagePolicy *bluemonday.Policy
	initOnce      sync.Once
)

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		// Basic formatting only. Mail clients ignore most layout anyway.
		messagePolicy = bluemonday.NewPolicy()
		messagePolicy.AllowStandardURLs()
		messagePolicy.AllowElements(
			"p", "br", "hr",
			"strong", "b", "em", "i", "u",
			"ul", "ol", "li",
			"blockquote",
		)
		messagePolicy.AllowAttrs("href").OnElements("a")
		messagePolicy.RequireNoFollowOnLinks(true)
	})
}

// MessageHTML turns a message body into safe HTML.
// Line breaks become <br> so plain-text messages keep their shape.
func MessageHTML(s string) string {
	initPolicies()
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "<br>")
	return messagePolicy.Sanitize(s)
}

// StripHTML removes every tag and returns unescaped plain text.
func StripHTML(s string) string {
	initPolicies()
	return html.UnescapeString(strictPolicy.Sanitize(s))
}
