// Package relevance scores candidate items by keyword matches.
package relevance

import (
	"strings"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/ports"
)

// Scorer counts distinct configured keywords found in an item's text.
type Scorer struct {
	keywords []string
	bySource map[string][]string
}

var _ ports.Scorer = (*Scorer)(nil)

// NewScorer builds a scorer over the global keyword list.
func NewScorer(keywords []string) *Scorer {
	return &Scorer{
		keywords: normalize(keywords),
		bySource: map[string][]string{},
	}
}

// WithSourceKeywords adds keywords that only apply to items of the named source.
func (s *Scorer) WithSourceKeywords(source string, keywords []string) *Scorer {
	extra := normalize(keywords)
	if len(extra) > 0 {
		s.bySource[source] = extra
	}
	return s
}

// Score returns the number of distinct keywords occurring in title and summary,
// compared case-insensitively.
func (s *Scorer) Score(item domain.Item) int {
	text := strings.ToLower(item.Text())
	if text == "" {
		return 0
	}

	matched := map[string]struct{}{}
	count := func(keywords []string) {
		for _, kw := range keywords {
			if _, ok := matched[kw]; ok {
				continue
			}
			if strings.Contains(text, kw) {
				matched[kw] = struct{}{}
			}
		}
	}
	count(s.keywords)
	count(s.bySource[item.Source])
	return len(matched)
}

// ScoreAll sets Score on every item in place.
func ScoreAll(scorer ports.Scorer, items []domain.Item) {
	for i := range items {
		items[i].Score = scorer.Score(items[i])
	}
}

func normalize(keywords []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
