// Package sanitizer cleans HTML fragments before they are embedded in a digest email.
package sanitizer

import (
	"html"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy *bluemonday.Policy
	emailPolicy  *bluemonday.Policy
	initOnce     sync.Once
)

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		// Covers what goldmark emits for event descriptions and notes,
		// plus the class carried by rendered buttons.
		emailPolicy = bluemonday.NewPolicy()
		emailPolicy.AllowStandardURLs()
		emailPolicy.AllowElements(
			"p", "br", "hr",
			"strong", "b", "em", "i", "del",
			"ul", "ol", "li",
			"code", "pre", "blockquote",
			"h3", "h4",
		)
		emailPolicy.AllowAttrs("href").OnElements("a")
		emailPolicy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("a")
		emailPolicy.RequireNoFollowOnLinks(true)
	})
}

// EmailHTML keeps basic formatting and links, dropping scripts, event
// handlers, inline styles and javascript: URLs.
func EmailHTML(s string) string {
	initPolicies()
	return emailPolicy.Sanitize(s)
}

// StripHTML removes every tag and returns the unescaped text content,
// ready for a plain-text body.
func StripHTML(s string) string {
	initPolicies()
	return html.UnescapeString(strictPolicy.Sanitize(s))
}
