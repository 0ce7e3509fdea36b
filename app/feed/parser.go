package feed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Document, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	doc := &Document{
		Title: feed.Title,
		Link:  feed.Link,
		Items: make([]Item, 0, len(feed.Items)),
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		doc.Items = append(doc.Items, p.normalizeItem(item))
	}

	return doc, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Item {
	normalized := Item{
		Description: item.Description,
		GUID:        item.GUID,
		Link:        item.Link,
		Published:   item.Published,
		Title:       item.Title,
		Summary:     item.Content,
	}

	if normalized.Summary == "" {
		normalized.Summary = item.Description
	}

	if item.PublishedParsed != nil {
		published := item.PublishedParsed.UTC()
		normalized.PublishedParsed = &published
	}

	normalized.Author = p.extractAuthor(item)

	return normalized
}

func (p *Parser) extractAuthor(item *gofeed.Item) string {
	if item.Author != nil {
		if author := p.formatAuthor(item.Author.Name, item.Author.Email); author != "" {
			return author
		}
	}

	for _, author := range item.Authors {
		if author == nil {
			continue
		}
		if formatted := p.formatAuthor(author.Name, author.Email); formatted != "" {
			return formatted
		}
	}

	return ""
}

func (p *Parser) formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name != "" {
		return name
	}
	return email
}
