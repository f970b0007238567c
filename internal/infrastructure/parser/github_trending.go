package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/scanner"
)

const githubBaseURL = "https://github.com"

// GitHubTrendingAdapter parses github.com/trending listings.
type GitHubTrendingAdapter struct{}

var _ scanner.Adapter = GitHubTrendingAdapter{}

// Name identifies the adapter inside the registry.
func (GitHubTrendingAdapter) Name() string {
	return "github-trending"
}

// Parse extracts repositories; the canonical repository URL is the identifier.
func (GitHubTrendingAdapter) Parse(doc []byte, req scanner.Request) []domain.Item {
	page, ok := newDocument(doc)
	if !ok {
		return nil
	}

	var items []domain.Item
	page.Find("article.Box-row").Each(func(_ int, row *goquery.Selection) {
		href, _ := row.Find("h2 a, h1 a").First().Attr("href")
		path := strings.Trim(strings.TrimSpace(href), "/")
		if strings.Count(path, "/") != 1 {
			return
		}

		repoURL := githubBaseURL + "/" + path
		attrs := map[string]string{}
		if lang := cleanText(row.Find("[itemprop=programmingLanguage]").First().Text()); lang != "" {
			attrs[domain.AttrLanguage] = lang
		}
		if stars := digits(row.Find("a[href$=\"/stargazers\"]").First().Text()); stars != "" {
			attrs[domain.AttrStars] = stars
		}
		if today := digits(row.Find("span.float-sm-right").First().Text()); today != "" {
			attrs[domain.AttrStarsToday] = today
		}

		items = append(items, domain.Item{
			ID:         repoURL,
			Category:   req.Category,
			Title:      path,
			Summary:    cleanText(row.Find("p").First().Text()),
			URL:        repoURL,
			Source:     req.Source,
			Attributes: attrs,
		})
	})
	return items
}
