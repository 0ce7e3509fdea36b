package format

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Placeholder is substituted with a field value when rendering.
const Placeholder = "{}"

var (
	ErrInvalidTemplate = errors.New("template must contain exactly one placeholder")
	ErrUnknownField    = errors.New("unknown field")
)

var defaultTemplates = map[byte]string{
	'f': "[{}]",
	'a': "<{}>",
	'd': "{}",
	'g': "{}",
	'l': "→ {}",
	'p': "({})",
	's': "{}",
	't': "{}",
	'y': "→ {}",
}

// DefaultTemplate returns the builtin template for field.
func DefaultTemplate(field byte) string {
	return defaultTemplates[field]
}

// ValidTemplate reports whether tmpl has exactly one placeholder.
func ValidTemplate(tmpl string) bool {
	return strings.Count(tmpl, Placeholder) == 1
}

// Templates is the deployment-wide field template set. It is shared by every
// engine and safe for concurrent use.
type Templates struct {
	mu  sync.RWMutex
	set map[byte]string
}

func NewTemplates() *Templates {
	t := &Templates{}
	t.Reset()
	return t
}

// Reset restores the builtin defaults.
func (t *Templates) Reset() {
	set := make(map[byte]string, len(defaultTemplates))
	for field, tmpl := range defaultTemplates {
		set[field] = tmpl
	}

	t.mu.Lock()
	t.set = set
	t.mu.Unlock()
}

func (t *Templates) Set(field byte, tmpl string) error {
	if _, ok := defaultTemplates[field]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, string(field))
	}
	if !ValidTemplate(tmpl) {
		return fmt.Errorf("%w: %q", ErrInvalidTemplate, tmpl)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.set[field] = tmpl
	return nil
}

func (t *Templates) Get(field byte) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.set[field]
}

// Apply substitutes value into the template of field.
func (t *Templates) Apply(field byte, value string) string {
	tmpl := t.Get(field)
	if tmpl == "" {
		return value
	}
	return strings.Replace(tmpl, Placeholder, value, 1)
}

// Overrides returns the templates that differ from the builtin defaults,
// keyed by field letter.
func (t *Templates) Overrides() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]string)
	for field, tmpl := range t.set {
		if tmpl != defaultTemplates[field] {
			result[string(field)] = tmpl
		}
	}
	return result
}

// Encode lists every template as "letter|template" pairs in field order.
func (t *Templates) Encode() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	fields := make([]string, 0, len(t.set))
	for field := range t.set {
		fields = append(fields, string(field))
	}
	sort.Strings(fields)

	pairs := make([]string, 0, len(fields))
	for _, field := range fields {
		pairs = append(pairs, field+"|"+t.set[field[0]])
	}
	return pairs
}
