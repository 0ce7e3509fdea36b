package format

import "time"

type testItem struct {
	attrs     map[Attr]string
	published time.Time
}

func (i *testItem) Attr(name Attr) (string, bool) {
	v, ok := i.attrs[name]
	return v, ok
}

func (i *testItem) PublishedAt() (time.Time, bool) {
	return i.published, !i.published.IsZero()
}

func fullItem() *testItem {
	return &testItem{
		attrs: map[Attr]string{
			AttrAuthor:      "Jane",
			AttrDescription: "Description",
			AttrGUID:        "guid-1",
			AttrLink:        "https://example.com/1",
			AttrPublished:   "Mon, 03 Jul 2023 10:00:00 GMT",
			AttrSummary:     "Summary",
			AttrTitle:       "Title",
		},
		published: time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC),
	}
}
