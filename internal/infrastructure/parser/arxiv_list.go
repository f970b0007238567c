package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/scanner"
)

const (
	arxivBaseURL = "https://arxiv.org"
)

var (
	dateExpr       = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)
	arxivVersionRe = regexp.MustCompile(`v\d+$`)
)

// ArxivListAdapter parses arXiv HTML listing pages (/list/<category>/recent).
type ArxivListAdapter struct{}

var _ scanner.Adapter = ArxivListAdapter{}

// Name identifies the adapter inside the registry.
func (ArxivListAdapter) Name() string {
	return "arxiv-list"
}

// Parse extracts every well-formed dt/dd entry of the listing.
func (ArxivListAdapter) Parse(doc []byte, req scanner.Request) []domain.Item {
	page, ok := newDocument(doc)
	if !ok {
		return nil
	}

	var items []domain.Item
	page.Find("dl > dt").Each(func(_ int, dt *goquery.Selection) {
		item, ok := parseListEntry(dt, dt.NextFiltered("dd"), req)
		if ok {
			items = append(items, item)
		}
	})
	return items
}

func parseListEntry(dt, dd *goquery.Selection, req scanner.Request) (domain.Item, bool) {
	link := dt.Find("a[href*=\"/abs/\"]").First()
	href, _ := link.Attr("href")

	id := arxivID(strings.TrimSpace(link.Text()))
	if id == "" {
		id = arxivID(href)
	}
	if id == "" {
		return domain.Item{}, false
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = cleanText(strings.TrimPrefix(title, "Title:"))
	if title == "" {
		return domain.Item{}, false
	}

	summary := dd.Find("p.mathjax").First().Text()
	summary = cleanText(strings.TrimPrefix(strings.TrimSpace(summary), "Abstract:"))

	var authors []string
	dd.Find(".list-authors a").Each(func(_ int, a *goquery.Selection) {
		if name := cleanText(a.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}
	var publishedAt time.Time
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			publishedAt = parsed
		}
	}

	item := domain.Item{
		ID:          id,
		Category:    req.Category,
		Title:       title,
		Summary:     summary,
		URL:         arxivBaseURL + "/abs/" + id,
		Source:      req.Source,
		Authors:     authors,
		PublishedAt: publishedAt,
	}
	if req.Endpoint.Name != "" {
		item.Attributes = map[string]string{domain.AttrFeed: req.Endpoint.Name}
	}
	return item, true
}

// arxivID normalizes "arXiv:2501.00001v2", "/abs/2501.00001" or a full abs URL to "2501.00001".
func arxivID(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, "/abs/"); i >= 0 {
		raw = raw[i+len("/abs/"):]
	}
	raw = strings.TrimPrefix(raw, "arXiv:")
	raw = strings.TrimSpace(raw)
	return arxivVersionRe.ReplaceAllString(raw, "")
}
