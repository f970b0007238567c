package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/scanner"
)

const hackerNewsBaseURL = "https://news.ycombinator.com/"

// HackerNewsAdapter parses the Hacker News front page.
type HackerNewsAdapter struct{}

var _ scanner.Adapter = HackerNewsAdapter{}

// Name identifies the adapter inside the registry.
func (HackerNewsAdapter) Name() string {
	return "hackernews"
}

// Parse extracts story rows; the story URL is the identifier.
func (HackerNewsAdapter) Parse(doc []byte, req scanner.Request) []domain.Item {
	page, ok := newDocument(doc)
	if !ok {
		return nil
	}

	base := req.Endpoint.URL
	if base == "" {
		base = hackerNewsBaseURL
	}

	var items []domain.Item
	seen := map[string]struct{}{}
	page.Find("tr.athing").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("span.titleline > a").First()
		if link.Length() == 0 {
			link = row.Find("a.titlelink, a.storylink").First()
		}
		href, _ := link.Attr("href")
		storyURL := resolveURL(base, href)
		title := cleanText(link.Text())
		if storyURL == "" || title == "" {
			return
		}
		if _, dup := seen[storyURL]; dup {
			return
		}
		seen[storyURL] = struct{}{}

		attrs := map[string]string{}
		subtext := row.Next()
		if points := digits(subtext.Find("span.score").First().Text()); points != "" {
			attrs[domain.AttrPoints] = points
		}
		if id, ok := row.Attr("id"); ok && strings.TrimSpace(id) != "" {
			attrs[domain.AttrComments] = resolveURL(base, "item?id="+strings.TrimSpace(id))
		}

		items = append(items, domain.Item{
			ID:         storyURL,
			Category:   req.Category,
			Title:      title,
			URL:        storyURL,
			Source:     req.Source,
			Attributes: attrs,
		})
	})
	return items
}
