package ports

import (
	"context"

	"ResearchDigest/internal/domain"
)

// Fetcher downloads a raw document. Timeouts are enforced by the implementation.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ItemSource fetches and adapts every configured source for one run.
type ItemSource interface {
	Collect(ctx context.Context) domain.Collection
}

// TrackingStore persists identifiers already delivered.
type TrackingStore interface {
	// Load never fails: a missing or unreadable store yields an empty state.
	Load(ctx context.Context) *domain.TrackingState
	Persist(ctx context.Context, state *domain.TrackingState) error
}

// Scorer assigns a relevance score to a candidate item.
type Scorer interface {
	Score(item domain.Item) int
}

// Reviewer annotates a batch of items with qualitative reviews.
type Reviewer interface {
	Review(ctx context.Context, items []domain.Item) (*domain.Review, error)
}

// Notifier transmits the rendered digest to its recipient.
type Notifier interface {
	Deliver(ctx context.Context, text string) error
}

// RunRecorder exports the outcome of a run (metrics, audit).
type RunRecorder interface {
	Record(report domain.RunReport) error
}

// Formatter renders a digest into the text handed to notifiers.
type Formatter interface {
	Format(digest domain.Digest) string
}
