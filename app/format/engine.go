package format

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PublishedLayout is how the published time is rendered.
const PublishedLayout = "2006-01-02 15:04"

// Shortener turns a link into a short link.
type Shortener interface {
	Shorten(ctx context.Context, link string) (string, error)
}

// Cleaner turns markup into plain text.
type Cleaner interface {
	Clean(s string) string
}

// Engine computes fingerprints and posts for the items of one feed.
// It is not safe for concurrent use; callers hold the feed lock.
type Engine struct {
	spec      Spec
	templates *Templates
	shortener Shortener
	cleaner   Cleaner
}

type EngineOption func(*Engine)

// WithShortener enables the y field in posts.
func WithShortener(s Shortener) EngineOption {
	return func(e *Engine) { e.shortener = s }
}

// WithCleaner strips markup from descriptions and summaries in posts.
func WithCleaner(c Cleaner) EngineOption {
	return func(e *Engine) { e.cleaner = c }
}

func NewEngine(spec Spec, templates *Templates, opts ...EngineOption) *Engine {
	if templates == nil {
		templates = NewTemplates()
	}
	e := &Engine{spec: spec, templates: templates}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Spec() Spec {
	return e.spec
}

func (e *Engine) SetSpec(spec Spec) {
	e.spec = spec
}

func hashValue(field byte, feedName string, item Item) string {
	switch field {
	case 'f':
		return feedName
	case 'a':
		return value(item, AttrAuthor)
	case 'd':
		return value(item, AttrDescription)
	case 'g':
		return value(item, AttrGUID)
	case 'l', 'y':
		return value(item, AttrLink)
	case 'p':
		return value(item, AttrPublished)
	case 's':
		return value(item, AttrSummary)
	case 't':
		return value(item, AttrTitle)
	}
	return ""
}

// Fingerprint returns the md5 hex digest of the hashed fields of item
// concatenated in format order. The y field hashes the link.
func (e *Engine) Fingerprint(feedName string, item Item) string {
	var b strings.Builder
	for i := 0; i < len(e.spec.Hashed); i++ {
		b.WriteString(hashValue(e.spec.Hashed[i], feedName, item))
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Render builds the post for item from the output fields of the format.
func (e *Engine) Render(ctx context.Context, feedName string, item Item) string {
	fragments := make([]string, 0, len(e.spec.Output))
	for i := 0; i < len(e.spec.Output); i++ {
		field := e.spec.Output[i]
		fragments = append(fragments, e.templates.Apply(field, e.renderValue(ctx, field, feedName, item)))
	}
	return norm.NFC.String(strings.Join(fragments, " "))
}

func (e *Engine) renderValue(ctx context.Context, field byte, feedName string, item Item) string {
	switch field {
	case 'p':
		if item == nil {
			return ""
		}
		published, ok := item.PublishedAt()
		if !ok {
			return ""
		}
		return published.UTC().Format(PublishedLayout)
	case 'y':
		return e.shortLink(ctx, feedName, value(item, AttrLink))
	case 'd', 's':
		v := hashValue(field, feedName, item)
		if e.cleaner != nil {
			v = e.cleaner.Clean(v)
		}
		return v
	}
	return hashValue(field, feedName, item)
}

func (e *Engine) shortLink(ctx context.Context, feedName, link string) string {
	if link == "" || e.shortener == nil {
		return ""
	}
	short, err := e.shortener.Shorten(ctx, link)
	if err != nil {
		slog.Warn("Failed to shorten link", "feed", feedName, "link", link, "error", err)
		return ""
	}
	return short
}
