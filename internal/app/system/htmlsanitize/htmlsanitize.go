// Package htmlsanitize cleans creator-authored rich text (group guidelines)
// before it is stored and later rendered as HTML by clients.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = newPolicy()

// newPolicy allows the usual user-generated formatting plus tables;
// scripts, event handlers and javascript: links are removed.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption")
	p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("th", "td")
	return p
}

// Sanitize returns s reduced to the allowed markup, trimmed.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.TrimSpace(policy.Sanitize(s))
}
