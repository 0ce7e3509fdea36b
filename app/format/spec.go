// Package format decides what identifies a feed item and how it is posted.
//
// A format string such as "fl+ftl" holds two lists of field letters separated
// by Separator: the left list is hashed into the item fingerprint, the right
// list is rendered into the post. Field letters are
//
//	f feedname  a author  d description  g guid  l link
//	p published  s summary  t title  y shortlink
package format

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Separator     = "+"
	DefaultFormat = "fl+ftl"
	// AllFields is every field letter in canonical order.
	AllFields = "fadglpsty"
)

var ErrInvalidFormat = errors.New("invalid format")

// Spec is a validated pair of field lists.
type Spec struct {
	Hashed string
	Output string
}

func (s Spec) String() string {
	return s.Hashed + Separator + s.Output
}

// HasOutput reports whether field is rendered into posts.
func (s Spec) HasOutput(field byte) bool {
	return strings.IndexByte(s.Output, field) >= 0
}

// Split cuts raw into the hashed list, the output list and whatever follows
// a second separator. A non-empty remainder makes the format invalid.
func Split(raw, sep string) (hashed, output, remainder string) {
	parts := strings.SplitN(raw, sep, 3)
	hashed = parts[0]
	if len(parts) > 1 {
		output = parts[1]
	}
	if len(parts) > 2 {
		remainder = parts[2]
	}
	return hashed, output, remainder
}

// IsValid checks a split format against the fields a feed exposes.
func IsValid(hashed, output, remainder, available string) bool {
	if remainder != "" {
		return false
	}
	if hashed == "" || output == "" {
		return false
	}
	if hashed == "f" || output == "f" {
		return false
	}
	for _, list := range []string{hashed, output} {
		for i := 0; i < len(list); i++ {
			if strings.IndexByte(available, list[i]) < 0 {
				return false
			}
			if strings.IndexByte(list[i+1:], list[i]) >= 0 {
				return false
			}
		}
	}
	return true
}

// Parse splits and validates raw against the available fields.
func Parse(raw, available string) (Spec, error) {
	hashed, output, remainder := Split(raw, Separator)
	if !IsValid(hashed, output, remainder, available) {
		return Spec{}, fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
	}
	return Spec{Hashed: hashed, Output: output}, nil
}

// AvailableFields lists the field letters item exposes, in canonical order.
// A nil item (a feed without entries) exposes only the feed name.
func AvailableFields(item Item) string {
	var b strings.Builder
	b.WriteByte('f')
	if has(item, AttrAuthor) {
		b.WriteByte('a')
	}
	if has(item, AttrDescription) {
		b.WriteByte('d')
	}
	if has(item, AttrGUID) {
		b.WriteByte('g')
	}
	if has(item, AttrLink) {
		b.WriteByte('l')
	}
	if has(item, AttrPublished) {
		if _, ok := item.PublishedAt(); ok {
			b.WriteByte('p')
		}
	}
	if has(item, AttrSummary) {
		b.WriteByte('s')
	}
	if has(item, AttrTitle) {
		b.WriteByte('t')
	}
	if has(item, AttrLink) {
		b.WriteByte('y')
	}
	return b.String()
}

// MinimalValid is the last-resort format: feed name and title, or feed name
// and description when the feed has no titles.
func MinimalValid(item Item) Spec {
	if strings.IndexByte(AvailableFields(item), 't') >= 0 {
		return Spec{Hashed: "ft", Output: "ft"}
	}
	return Spec{Hashed: "fd", Output: "fd"}
}

// Sanitize returns the first valid format among candidate, fallbacks,
// globalDefault and finally MinimalValid(item). Validity is judged against
// the fields item exposes.
func Sanitize(candidate string, fallbacks []string, globalDefault string, item Item) Spec {
	available := AvailableFields(item)

	if candidate != "" {
		if spec, err := Parse(candidate, available); err == nil {
			return spec
		}
	}
	for _, fallback := range fallbacks {
		if spec, err := Parse(fallback, available); err == nil {
			return spec
		}
	}
	if spec, err := Parse(globalDefault, available); err == nil {
		return spec
	}
	return MinimalValid(item)
}

// FilterCandidates keeps the raw formats that only use known field letters
// and are structurally valid. It is used for deployment-level defaults,
// which are not bound to any particular feed.
func FilterCandidates(raws []string) []string {
	var result []string
	for _, raw := range raws {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Trim(raw, AllFields+Separator) != "" {
			continue
		}
		if _, err := Parse(raw, AllFields); err != nil {
			continue
		}
		result = append(result, raw)
	}
	return result
}
