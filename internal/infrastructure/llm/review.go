// Package llm implements reviewers backed by language models.
package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"ResearchDigest/internal/domain"
)

const (
	maxSummaryRunes = 400
	maxAuthors      = 3
)

const reviewInstructions = `For each item:
1. Relevance score (1-5) to multi-agent systems, LLM agents and collaborative AI.
2. Key insight: one sentence explaining the main contribution.
3. Should read? (yes/no/maybe)
4. Tags: choose from [multi-agent, planning, reasoning, LLM, swarm, coordination, theory, application, survey, tooling]

Return pure JSON:
{"reviews": [{"id": "xxx", "score": 5, "key_insight": "...", "should_read": "yes", "tags": ["multi-agent"]}],
 "summary": "Brief 2-3 sentence overview of today's items",
 "top_pick": "ID of the most important item"}`

type requestItem struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary,omitempty"`
	Authors   []string `json:"authors,omitempty"`
	Published string   `json:"published,omitempty"`
	URL       string   `json:"url,omitempty"`
	Category  string   `json:"category"`
}

// BuildPrompt renders the user prompt sent to a reviewer. Raw relevance scores are omitted.
func BuildPrompt(items []domain.Item) (string, error) {
	payload := make([]requestItem, 0, len(items))
	for _, item := range items {
		ri := requestItem{
			ID:       item.ID,
			Title:    item.Title,
			Summary:  truncateRunes(item.Summary, maxSummaryRunes),
			URL:      item.URL,
			Category: string(item.Category),
		}
		if len(item.Authors) > maxAuthors {
			ri.Authors = item.Authors[:maxAuthors]
		} else {
			ri.Authors = item.Authors
		}
		if !item.PublishedAt.IsZero() {
			ri.Published = item.PublishedAt.Format("2006-01-02")
		}
		payload = append(payload, ri)
	}

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal review items: %w", err)
	}
	return "Items:\n" + string(body) + "\n\n" + reviewInstructions, nil
}

type reviewReply struct {
	Reviews []struct {
		ID         string          `json:"id"`
		Score      json.RawMessage `json:"score"`
		KeyInsight string          `json:"key_insight"`
		ShouldRead string          `json:"should_read"`
		Tags       []string        `json:"tags"`
	} `json:"reviews"`
	Summary string `json:"summary"`
	TopPick string `json:"top_pick"`
}

// ParseReview extracts the JSON object spanning the first '{' to the last '}'
// of a reply. Reviews of identifiers outside items are dropped.
func ParseReview(reply string, items []domain.Item) (*domain.Review, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("reply contains no json object")
	}

	var parsed reviewReply
	if err := json.Unmarshal([]byte(reply[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("decode review: %w", err)
	}

	known := make(map[string]struct{}, len(items))
	for _, item := range items {
		known[item.ID] = struct{}{}
	}

	review := &domain.Review{
		Annotations: map[string]domain.Annotation{},
		Summary:     strings.TrimSpace(parsed.Summary),
	}
	for _, r := range parsed.Reviews {
		id := strings.TrimSpace(r.ID)
		if _, ok := known[id]; !ok {
			continue
		}
		score, ok := parseScore(r.Score)
		if ok {
			score = clampScore(score)
		}
		review.Annotations[id] = domain.Annotation{
			ID:             id,
			Score:          score,
			KeyInsight:     strings.TrimSpace(r.KeyInsight),
			Recommendation: domain.ParseRecommendation(r.ShouldRead),
			Tags:           cleanTags(r.Tags),
		}
	}
	if _, ok := known[strings.TrimSpace(parsed.TopPick)]; ok {
		review.TopPick = strings.TrimSpace(parsed.TopPick)
	}
	return review, nil
}

// parseScore accepts numbers and numeric strings. A missing, null or
// unparseable score reports false and stays 0 so it is never rendered.
func parseScore(raw json.RawMessage) (int, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err == nil {
		return int(math.Round(f)), true
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return int(math.Round(v)), true
		}
	}
	return 0, false
}

func clampScore(v int) int {
	switch {
	case v < 1:
		return 1
	case v > 5:
		return 5
	default:
		return v
	}
}

func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are an expert AI researcher reviewing new papers and projects."
	}
	return prompt
}
