package parser

import (
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/zeebo/blake3"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/scanner"
)

const (
	defaultConferenceTriggers = "accepted,deadline"
	maxSnippets               = 5
	maxSnippetRunes           = 300
)

// ConferenceAdapter watches a conference page for announcements.
// It yields at most one item per page; the identifier changes whenever the
// matching announcement text changes.
type ConferenceAdapter struct{}

var _ scanner.Adapter = ConferenceAdapter{}

// Name identifies the adapter inside the registry.
func (ConferenceAdapter) Name() string {
	return "conference"
}

// Parse collects announcement snippets mentioning one of the trigger words.
func (ConferenceAdapter) Parse(doc []byte, req scanner.Request) []domain.Item {
	page, ok := newDocument(doc)
	if !ok || req.Endpoint.URL == "" {
		return nil
	}

	triggers := splitList(req.Option("triggers", defaultConferenceTriggers))
	if len(triggers) == 0 {
		return nil
	}

	var snippets []string
	seen := map[string]struct{}{}
	page.Find("h1, h2, h3, h4, p, li, td").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := cleanText(s.Text())
		if text == "" || utf8.RuneCountInString(text) > maxSnippetRunes {
			return true
		}
		if _, dup := seen[text]; dup || !containsAny(strings.ToLower(text), triggers) {
			return true
		}
		seen[text] = struct{}{}
		snippets = append(snippets, text)
		return len(snippets) < maxSnippets
	})
	if len(snippets) == 0 {
		return nil
	}

	joined := strings.Join(snippets, "\n")
	sum := blake3.Sum256([]byte(joined))

	return []domain.Item{{
		ID:         req.Endpoint.URL + "#" + hex.EncodeToString(sum[:8]),
		Category:   req.Category,
		Title:      "Announcements updated",
		Summary:    strings.Join(snippets, " "),
		URL:        req.Endpoint.URL,
		Source:     req.Source,
		Attributes: map[string]string{domain.AttrDetail: snippets[0]},
	}}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
