package domain

import (
	"strings"
	"time"
)

// Section holds the ranked items of one category.
type Section struct {
	Category Category
	Items    []Item
	// Total counts relevant new items before the per-category cap.
	Total int
}

// Digest is the per-run briefing input; it is never persisted.
type Digest struct {
	GeneratedAt time.Time
	Sections    []Section
	Review      *Review
}

// ItemCount is the number of items shown across all sections.
func (d Digest) ItemCount() int {
	total := 0
	for _, s := range d.Sections {
		total += len(s.Items)
	}
	return total
}

// Recommendation is the reviewer's read verdict.
type Recommendation string

const (
	RecommendYes   Recommendation = "yes"
	RecommendNo    Recommendation = "no"
	RecommendMaybe Recommendation = "maybe"
)

// ParseRecommendation normalizes free-form reviewer output; anything unknown is "maybe".
func ParseRecommendation(value string) Recommendation {
	switch Recommendation(strings.ToLower(strings.TrimSpace(value))) {
	case RecommendYes:
		return RecommendYes
	case RecommendNo:
		return RecommendNo
	default:
		return RecommendMaybe
	}
}

// Annotation is the qualitative review of a single item.
type Annotation struct {
	ID             string
	Score          int
	KeyInsight     string
	Recommendation Recommendation
	Tags           []string
}

// Review is what an enrichment collaborator returns for a batch.
type Review struct {
	Annotations map[string]Annotation
	Summary     string
	TopPick     string
}

// Annotation looks up the review of an item by identifier.
func (r *Review) Annotation(id string) (Annotation, bool) {
	if r == nil || r.Annotations == nil {
		return Annotation{}, false
	}
	a, ok := r.Annotations[id]
	return a, ok
}
