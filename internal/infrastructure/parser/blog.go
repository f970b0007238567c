package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/scanner"
)

const (
	defaultBlogSelector = "a[href]"
	minBlogTitleRunes   = 10
	maxBlogTitleRunes   = 80
)

// BlogAdapter scans a blog index page for post links.
type BlogAdapter struct{}

var _ scanner.Adapter = BlogAdapter{}

// Name identifies the adapter inside the registry.
func (BlogAdapter) Name() string {
	return "blog"
}

// Parse keeps anchors whose text looks like a post title. The selector
// option narrows the scan to the post list of a specific theme.
func (BlogAdapter) Parse(doc []byte, req scanner.Request) []domain.Item {
	page, ok := newDocument(doc)
	if !ok {
		return nil
	}

	var items []domain.Item
	seen := map[string]struct{}{}
	page.Find(req.Option("selector", defaultBlogSelector)).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link := resolveURL(req.Endpoint.URL, href)
		title := cleanText(a.Text())
		if link == "" || utf8.RuneCountInString(title) < minBlogTitleRunes || strings.HasPrefix(title, "http") {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}

		items = append(items, domain.Item{
			ID:       link,
			Category: req.Category,
			Title:    clip(title, maxBlogTitleRunes),
			URL:      link,
			Source:   req.Source,
		})
	})
	return items
}
