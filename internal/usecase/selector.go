package usecase

import (
	"sort"

	"ResearchDigest/internal/domain"
)

// DefaultCap is the number of items kept per category when nothing else is configured.
const DefaultCap = 5

// SelectOptions controls ranking output.
type SelectOptions struct {
	Cap         int
	CategoryCap map[domain.Category]int
	Order       []domain.Category
}

func (o SelectOptions) capFor(c domain.Category) int {
	if n, ok := o.CategoryCap[c]; ok && n > 0 {
		return n
	}
	if o.Cap > 0 {
		return o.Cap
	}
	return DefaultCap
}

// Select filters, ranks and caps scored items per category.
// Items with a zero score or already tracked are dropped. The result only
// contains non-empty sections, laid out in the configured category order.
func Select(items []domain.Item, state *domain.TrackingState, opts SelectOptions) []domain.Section {
	order := opts.Order
	if len(order) == 0 {
		order = domain.DefaultCategoryOrder
	}

	grouped := map[domain.Category]map[string]domain.Item{}
	for _, item := range items {
		if item.Score <= 0 || item.ID == "" {
			continue
		}
		if state.IsTracked(item.Category, item.ID) {
			continue
		}
		bucket, ok := grouped[item.Category]
		if !ok {
			bucket = map[string]domain.Item{}
			grouped[item.Category] = bucket
		}
		// the same id can arrive from several endpoints (arXiv cross-lists)
		if prev, dup := bucket[item.ID]; dup && !outranks(item.Category, item, prev) {
			continue
		}
		bucket[item.ID] = item
	}

	categories := make([]domain.Category, 0, len(grouped))
	for c := range grouped {
		categories = append(categories, c)
	}
	domain.SortCategories(categories, order)

	sections := make([]domain.Section, 0, len(categories))
	for _, c := range categories {
		ranked := make([]domain.Item, 0, len(grouped[c]))
		for _, item := range grouped[c] {
			ranked = append(ranked, item)
		}
		sort.Slice(ranked, func(i, j int) bool {
			return outranks(c, ranked[i], ranked[j])
		})

		total := len(ranked)
		if limit := opts.capFor(c); len(ranked) > limit {
			ranked = ranked[:limit]
		}
		sections = append(sections, domain.Section{Category: c, Items: ranked, Total: total})
	}
	return sections
}

// outranks orders by score descending, then newest first for time-ordered
// categories, then identifier ascending.
func outranks(c domain.Category, a, b domain.Item) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if c.TimeOrdered() && !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.After(b.PublishedAt)
	}
	return a.ID < b.ID
}

// SelectedItems flattens sections in display order.
func SelectedItems(sections []domain.Section) []domain.Item {
	var out []domain.Item
	for _, s := range sections {
		out = append(out, s.Items...)
	}
	return out
}
