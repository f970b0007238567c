package domain

import (
	"sort"
	"time"
)

// TrackingState records identifiers already delivered, per category.
// Sets only grow; the zero value is not usable, use NewTrackingState.
type TrackingState struct {
	LastRun *time.Time

	seen  map[Category]map[string]struct{}
	order map[Category][]string
	added map[Category][]string
}

// NewTrackingState returns an empty state.
func NewTrackingState() *TrackingState {
	return &TrackingState{
		seen:  map[Category]map[string]struct{}{},
		order: map[Category][]string{},
		added: map[Category][]string{},
	}
}

// IsTracked reports whether id was already delivered under category.
func (s *TrackingState) IsTracked(category Category, id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.seen[category][id]
	return ok
}

// MarkTracked inserts id and reports whether it was new. Inserting a known id is a no-op.
func (s *TrackingState) MarkTracked(category Category, id string) bool {
	if !s.restore(category, id) {
		return false
	}
	s.added[category] = append(s.added[category], id)
	return true
}

// Restore inserts an identifier read back from storage without counting it as added this run.
func (s *TrackingState) Restore(category Category, id string) {
	s.restore(category, id)
}

func (s *TrackingState) restore(category Category, id string) bool {
	set, ok := s.seen[category]
	if !ok {
		set = map[string]struct{}{}
		s.seen[category] = set
	}
	if _, exists := set[id]; exists {
		return false
	}
	set[id] = struct{}{}
	s.order[category] = append(s.order[category], id)
	return true
}

// Categories lists every category that holds at least one identifier, sorted by name.
func (s *TrackingState) Categories() []Category {
	categories := make([]Category, 0, len(s.order))
	for c, ids := range s.order {
		if len(ids) > 0 {
			categories = append(categories, c)
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	return categories
}

// Identifiers returns the tracked ids of a category in insertion order.
func (s *TrackingState) Identifiers(category Category) []string {
	ids := s.order[category]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Added returns ids marked since the state was loaded.
func (s *TrackingState) Added() map[Category][]string {
	out := make(map[Category][]string, len(s.added))
	for c, ids := range s.added {
		out[c] = append([]string(nil), ids...)
	}
	return out
}

// Len counts tracked identifiers across all categories.
func (s *TrackingState) Len() int {
	total := 0
	for _, ids := range s.order {
		total += len(ids)
	}
	return total
}
