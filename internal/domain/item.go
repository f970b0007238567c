package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Category groups items by the kind of source that produced them.
type Category string

const (
	CategoryNews       Category = "hn"
	CategoryGitHub     Category = "github"
	CategoryConference Category = "conference"
	CategoryBlog       Category = "blog"
	CategoryArxiv      Category = "arxiv"
)

// DefaultCategoryOrder is the section layout of every digest.
var DefaultCategoryOrder = []Category{
	CategoryNews,
	CategoryGitHub,
	CategoryConference,
	CategoryBlog,
	CategoryArxiv,
}

var categoryLabels = map[Category]string{
	CategoryNews:       "Tech News",
	CategoryGitHub:     "GitHub Trending",
	CategoryConference: "Conferences",
	CategoryBlog:       "Blog Updates",
	CategoryArxiv:      "Papers",
}

// ParseCategory validates a category name coming from configuration.
func ParseCategory(value string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := categoryLabels[c]; !ok {
		return "", fmt.Errorf("unknown category %q", value)
	}
	return c, nil
}

// Label returns a human readable section title.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// TimeOrdered reports whether ties inside the category are broken by publish date.
func (c Category) TimeOrdered() bool {
	return c == CategoryArxiv || c == CategoryBlog
}

// Attribute keys used by adapters and the formatter.
const (
	AttrPoints     = "points"
	AttrStars      = "stars"
	AttrStarsToday = "stars_today"
	AttrLanguage   = "language"
	AttrFeed       = "feed"
	AttrComments   = "comments"
	AttrDetail     = "detail"
)

// Item is one piece of content discovered by a source adapter.
type Item struct {
	ID          string
	Category    Category
	Title       string
	Summary     string
	URL         string
	Source      string
	Authors     []string
	PublishedAt time.Time
	Score       int
	Attributes  map[string]string
}

// Attr returns a source-specific attribute or an empty string.
func (i Item) Attr(key string) string {
	if i.Attributes == nil {
		return ""
	}
	return i.Attributes[key]
}

// Text is the combined textual content used for relevance scoring.
func (i Item) Text() string {
	if i.Summary == "" {
		return i.Title
	}
	return i.Title + " " + i.Summary
}

// Link prefers the URL and falls back to the identifier.
func (i Item) Link() string {
	if i.URL != "" {
		return i.URL
	}
	return i.ID
}

// SortCategories orders categories by the given layout; unknown ones go last, alphabetically.
func SortCategories(categories []Category, order []Category) {
	rank := make(map[Category]int, len(order))
	for i, c := range order {
		rank[c] = i
	}
	sort.SliceStable(categories, func(a, b int) bool {
		ra, okA := rank[categories[a]]
		rb, okB := rank[categories[b]]
		switch {
		case okA && okB:
			return ra < rb
		case okA != okB:
			return okA
		default:
			return categories[a] < categories[b]
		}
	})
}
