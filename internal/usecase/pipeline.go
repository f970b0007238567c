package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/ports"
	"ResearchDigest/internal/relevance"
)

const defaultReviewTimeout = 120 * time.Second

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source    ports.ItemSource
	Store     ports.TrackingStore
	Scorer    ports.Scorer
	Reviewer  ports.Reviewer
	Notifier  ports.Notifier
	Fallback  ports.Notifier
	Formatter ports.Formatter
	Recorder  ports.RunRecorder
	Logger    *slog.Logger
	Clock     func() time.Time

	Selection             SelectOptions
	MarkOnDeliveryFailure bool
	DryRun                bool
	ReviewTimeout         time.Duration
	ReviewMaxItems        int
}

// Pipeline implements one digest run: load, collect, score, select, review,
// format, deliver and persist.
type Pipeline struct {
	source    ports.ItemSource
	store     ports.TrackingStore
	scorer    ports.Scorer
	reviewer  ports.Reviewer
	notifier  ports.Notifier
	fallback  ports.Notifier
	formatter ports.Formatter
	recorder  ports.RunRecorder
	logger    *slog.Logger
	clock     func() time.Time

	selection      SelectOptions
	markOnFailure  bool
	dryRun         bool
	reviewTimeout  time.Duration
	reviewMaxItems int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	timeout := deps.ReviewTimeout
	if timeout <= 0 {
		timeout = defaultReviewTimeout
	}
	return &Pipeline{
		source:         deps.Source,
		store:          deps.Store,
		scorer:         deps.Scorer,
		reviewer:       deps.Reviewer,
		notifier:       deps.Notifier,
		fallback:       deps.Fallback,
		formatter:      deps.Formatter,
		recorder:       deps.Recorder,
		logger:         logger,
		clock:          clock,
		selection:      deps.Selection,
		markOnFailure:  deps.MarkOnDeliveryFailure,
		dryRun:         deps.DryRun,
		reviewTimeout:  timeout,
		reviewMaxItems: deps.ReviewMaxItems,
	}
}

// Run executes one run. Collaborator failures degrade the outcome instead of
// failing the run; an error is returned only for missing wiring or a
// cancelled context.
func (p *Pipeline) Run(ctx context.Context) (domain.RunReport, error) {
	report := domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: p.clock(),
	}
	log := p.logger.With("run_id", report.RunID)

	if p.source == nil || p.store == nil || p.scorer == nil || p.formatter == nil {
		return report, fmt.Errorf("pipeline is not fully wired")
	}

	state := p.store.Load(ctx)
	log.Debug("tracking state loaded", "tracked", state.Len())

	collection := p.source.Collect(ctx)
	report.Sources = collection.Reports
	report.Fetched = len(collection.Items)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run cancelled: %w", err)
	}
	log.Info("sources collected", "items", report.Fetched, "failed_sources", failedSources(collection.Reports))

	items := collection.Items
	relevance.ScoreAll(p.scorer, items)

	sections := Select(items, state, p.selection)
	for _, s := range sections {
		report.Relevant += s.Total
	}
	if len(sections) == 0 {
		log.Info("nothing new to report")
		report.Outcome = domain.OutcomeNoOp
		return p.finish(log, report), nil
	}

	selected := SelectedItems(sections)
	report.Selected = len(selected)
	report.SelectedByCategory = make(map[domain.Category]int, len(sections))
	for _, s := range sections {
		report.SelectedByCategory[s.Category] = len(s.Items)
	}
	log.Info("items selected", "relevant", report.Relevant, "selected", report.Selected, "categories", len(sections))

	digest := domain.Digest{
		GeneratedAt: report.StartedAt,
		Sections:    sections,
		Review:      p.review(ctx, log, selected),
	}
	report.Enriched = digest.Review != nil
	report.Digest = p.formatter.Format(digest)

	if p.dryRun {
		if err := p.printLocally(ctx, report.Digest); err != nil {
			log.Warn("print digest", "error", err)
		}
		report.Outcome = domain.OutcomeDryRun
		return p.finish(log, report), nil
	}

	report.DeliverErr = p.deliver(ctx, report.Digest)
	if report.DeliverErr != nil {
		log.Warn("delivery failed, printing digest locally", "error", report.DeliverErr)
		if err := p.printLocally(ctx, report.Digest); err != nil {
			log.Warn("print digest", "error", err)
		}
		report.Outcome = domain.OutcomeDeliveredLocallyOnly
	} else {
		log.Info("digest delivered")
		report.Outcome = domain.OutcomeSuccess
	}

	if report.DeliverErr != nil && !p.markOnFailure {
		log.Info("items left unmarked for the next run", "count", len(selected))
		return p.finish(log, report), nil
	}

	for _, item := range selected {
		if state.MarkTracked(item.Category, item.ID) {
			report.Marked++
		}
	}
	now := p.clock()
	state.LastRun = &now

	if err := p.store.Persist(ctx, state); err != nil {
		report.PersistErr = err
		log.Error("persist tracking state", "error", err)
	} else {
		log.Debug("tracking state persisted", "marked", report.Marked)
	}

	return p.finish(log, report), nil
}

// review enriches at most reviewMaxItems items; any failure yields nil.
func (p *Pipeline) review(ctx context.Context, log *slog.Logger, items []domain.Item) *domain.Review {
	if p.reviewer == nil {
		return nil
	}
	if p.reviewMaxItems > 0 && len(items) > p.reviewMaxItems {
		items = items[:p.reviewMaxItems]
	}

	rctx, cancel := context.WithTimeout(ctx, p.reviewTimeout)
	defer cancel()

	review, err := p.reviewer.Review(rctx, items)
	if err != nil {
		log.Warn("review failed, continuing without enrichment", "error", err)
		return nil
	}
	if review == nil {
		return nil
	}
	log.Info("items reviewed", "annotations", len(review.Annotations))
	return review
}

func (p *Pipeline) deliver(ctx context.Context, text string) error {
	if p.notifier == nil {
		return errors.New("no notifier configured")
	}
	return p.notifier.Deliver(ctx, text)
}

func (p *Pipeline) printLocally(ctx context.Context, text string) error {
	if p.fallback == nil {
		return errors.New("no local printer configured")
	}
	return p.fallback.Deliver(ctx, text)
}

func (p *Pipeline) finish(log *slog.Logger, report domain.RunReport) domain.RunReport {
	report.FinishedAt = p.clock()
	if p.recorder != nil {
		if err := p.recorder.Record(report); err != nil {
			log.Warn("record run metrics", "error", err)
		}
	}
	log.Info("run finished",
		"outcome", report.Outcome,
		"marked", report.Marked,
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)
	return report
}

func failedSources(reports []domain.SourceReport) int {
	n := 0
	for _, r := range reports {
		if r.Err != nil {
			n++
		}
	}
	return n
}
