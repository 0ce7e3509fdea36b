package format

import "time"

// Attr names an optional attribute of a feed entry.
type Attr string

const (
	AttrAuthor      Attr = "author"
	AttrDescription Attr = "description"
	AttrGUID        Attr = "guid"
	AttrLink        Attr = "link"
	AttrPublished   Attr = "published"
	AttrSummary     Attr = "summary"
	AttrTitle       Attr = "title"
)

// Item is the read-only view of a feed entry. Every attribute may be absent;
// absence is reported by the boolean and is never an error.
type Item interface {
	Attr(name Attr) (string, bool)
	PublishedAt() (time.Time, bool)
}

func value(item Item, name Attr) string {
	if item == nil {
		return ""
	}
	v, ok := item.Attr(name)
	if !ok {
		return ""
	}
	return v
}

func has(item Item, name Attr) bool {
	if item == nil {
		return false
	}
	_, ok := item.Attr(name)
	return ok
}
