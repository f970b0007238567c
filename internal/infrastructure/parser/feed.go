package parser

import (
	"bytes"

	"github.com/mmcdole/gofeed"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/scanner"
)

// FeedAdapter parses any RSS or Atom document, typically a blog feed.
type FeedAdapter struct{}

var _ scanner.Adapter = FeedAdapter{}

// Name identifies the adapter inside the registry.
func (FeedAdapter) Name() string {
	return "feed"
}

// Parse turns feed entries into items keyed by their link.
func (FeedAdapter) Parse(doc []byte, req scanner.Request) []domain.Item {
	feed, ok := parseFeed(doc)
	if !ok {
		return nil
	}

	items := make([]domain.Item, 0, len(feed.Items))
	seen := map[string]struct{}{}
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		link := resolveURL(req.Endpoint.URL, entry.Link)
		if link == "" {
			link = resolveURL(req.Endpoint.URL, entry.GUID)
		}
		title := cleanText(entry.Title)
		if link == "" || title == "" {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}

		summary := entry.Description
		if summary == "" {
			summary = entry.Content
		}

		item := domain.Item{
			ID:       link,
			Category: req.Category,
			Title:    title,
			Summary:  clip(cleanText(summary), 400),
			URL:      link,
			Source:   req.Source,
			Authors:  personNames(entry.Authors),
		}
		if entry.PublishedParsed != nil {
			item.PublishedAt = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			item.PublishedAt = entry.UpdatedParsed.UTC()
		}
		items = append(items, item)
	}
	return items
}

// ArxivFeedAdapter parses the arXiv Atom API (export.arxiv.org/api/query).
type ArxivFeedAdapter struct{}

var _ scanner.Adapter = ArxivFeedAdapter{}

// Name identifies the adapter inside the registry.
func (ArxivFeedAdapter) Name() string {
	return "arxiv-api"
}

// Parse maps Atom entries to papers keyed by their version-less arXiv id.
func (ArxivFeedAdapter) Parse(doc []byte, req scanner.Request) []domain.Item {
	feed, ok := parseFeed(doc)
	if !ok {
		return nil
	}

	items := make([]domain.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		id := arxivID(entry.GUID)
		if id == "" {
			id = arxivID(entry.Link)
		}
		title := cleanText(entry.Title)
		if id == "" || title == "" {
			continue
		}

		item := domain.Item{
			ID:       id,
			Category: req.Category,
			Title:    title,
			Summary:  cleanText(entry.Description),
			URL:      arxivBaseURL + "/abs/" + id,
			Source:   req.Source,
			Authors:  personNames(entry.Authors),
		}
		if entry.PublishedParsed != nil {
			item.PublishedAt = entry.PublishedParsed.UTC()
		}
		if req.Endpoint.Name != "" {
			item.Attributes = map[string]string{domain.AttrFeed: req.Endpoint.Name}
		}
		items = append(items, item)
	}
	return items
}

func parseFeed(doc []byte) (*gofeed.Feed, bool) {
	if len(bytes.TrimSpace(doc)) == 0 {
		return nil, false
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(doc))
	if err != nil || feed == nil {
		return nil, false
	}
	return feed, true
}

func personNames(people []*gofeed.Person) []string {
	var names []string
	for _, p := range people {
		if p == nil {
			continue
		}
		if name := cleanText(p.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
