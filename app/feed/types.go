package feed

import (
	"time"

	"github.com/lysyi3m/rss-relay/app/format"
)

// Document is a fetched feed with its entries newest first.
type Document struct {
	Title string
	Link  string
	Items []Item
}

// First returns the newest entry, or nil for a feed without entries.
func (d *Document) First() *Item {
	if d == nil || len(d.Items) == 0 {
		return nil
	}
	return &d.Items[0]
}

// Item is a feed entry. Empty strings mean the attribute is absent.
type Item struct {
	Author          string
	Description     string
	GUID            string
	Link            string
	Published       string
	PublishedParsed *time.Time
	Summary         string
	Title           string
}

func (i *Item) Attr(name format.Attr) (string, bool) {
	var v string
	switch name {
	case format.AttrAuthor:
		v = i.Author
	case format.AttrDescription:
		v = i.Description
	case format.AttrGUID:
		v = i.GUID
	case format.AttrLink:
		v = i.Link
	case format.AttrPublished:
		v = i.Published
	case format.AttrSummary:
		v = i.Summary
	case format.AttrTitle:
		v = i.Title
	}
	return v, v != ""
}

func (i *Item) PublishedAt() (time.Time, bool) {
	if i.PublishedParsed == nil {
		return time.Time{}, false
	}
	return *i.PublishedParsed, true
}

// State is the persisted relay configuration.
type State struct {
	Feeds     []FeedState       `yaml:"feeds"`
	Formats   []string          `yaml:"formats,omitempty"`
	Templates map[string]string `yaml:"templates,omitempty"`
}

type FeedState struct {
	Channel string `yaml:"channel"`
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Format  string `yaml:"format,omitempty"`
}
