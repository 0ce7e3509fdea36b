package feed

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Cleaner turns HTML fragments from feed entries into a single line of text.
type Cleaner struct {
	policy *bluemonday.Policy
}

func NewCleaner() *Cleaner {
	return &Cleaner{policy: bluemonday.StrictPolicy()}
}

func (c *Cleaner) Clean(s string) string {
	if s == "" {
		return ""
	}
	text := html.UnescapeString(c.policy.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}
