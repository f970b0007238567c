package domain

import "time"

// Outcome enumerates terminal run states.
type Outcome string

const (
	OutcomeSuccess              Outcome = "success"
	OutcomeDeliveredLocallyOnly Outcome = "delivered_locally_only"
	OutcomeNoOp                 Outcome = "noop"
	OutcomeDryRun               Outcome = "dry_run"
)

// SourceReport describes what one configured endpoint yielded.
type SourceReport struct {
	Source   string
	Endpoint string
	Category Category
	Items    int
	Err      error
}

// Collection is the raw output of all sources for one run.
type Collection struct {
	Items   []Item
	Reports []SourceReport
}

// RunReport summarizes a finished run.
type RunReport struct {
	RunID      string
	Outcome    Outcome
	StartedAt  time.Time
	FinishedAt time.Time
	Sources    []SourceReport
	Fetched    int
	Relevant   int
	Selected   int
	Enriched   bool
	Marked     int
	Digest     string
	DeliverErr error
	PersistErr error

	// SelectedByCategory counts displayed items per section.
	SelectedByCategory map[Category]int
}
