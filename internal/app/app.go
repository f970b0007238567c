package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"ResearchDigest/internal/briefing"
	"ResearchDigest/internal/config"
	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/infrastructure/console"
	"ResearchDigest/internal/infrastructure/fetch"
	"ResearchDigest/internal/infrastructure/gateway"
	"ResearchDigest/internal/infrastructure/llm"
	"ResearchDigest/internal/infrastructure/metrics"
	"ResearchDigest/internal/infrastructure/parser"
	"ResearchDigest/internal/infrastructure/storage"
	"ResearchDigest/internal/infrastructure/telegram"
	"ResearchDigest/internal/logging"
	"ResearchDigest/internal/ports"
	"ResearchDigest/internal/relevance"
	"ResearchDigest/internal/scanner"
	"ResearchDigest/internal/usecase"
)

// Options adjust a single invocation.
type Options struct {
	DryRun bool
	// ReadOnly opens the tracking store for inspection: no schema is
	// created and a corrupt state file stays where it is.
	ReadOnly bool
	// Stdout receives printed digests; defaults to os.Stdout.
	Stdout io.Writer
	// Fetcher replaces the HTTP fetcher (tests).
	Fetcher ports.Fetcher
}

// Application wires configs to use cases.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    ports.TrackingStore
	pipeline *usecase.Pipeline
	closers  []func()
}

// New builds a runnable application instance.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	store, err := a.buildStore(ctx, opts.ReadOnly)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = fetch.NewHTTPFetcher(nil, fetch.Options{
			Timeout:           cfg.Fetch.Timeout,
			UserAgent:         cfg.Fetch.UserAgent,
			RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
			RespectRobots:     cfg.Fetch.RespectRobots,
			MaxBodyBytes:      cfg.Fetch.MaxBodyBytes,
		}, baseLogger.With("component", "fetch"))
	}

	source := parser.NewStrategySource(NewRegistry(), fetcher, cfg.Sources, cfg.Fetch.Concurrency, baseLogger.With("component", "source"))

	printer := console.NewPrinter(opts.Stdout)
	var recorder ports.RunRecorder
	if cfg.Metrics.TextfilePath != "" {
		recorder = metrics.NewTextfileRecorder(cfg.Metrics.TextfilePath)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:   source,
		Store:    store,
		Scorer:   NewScorer(cfg),
		Reviewer: newReviewer(cfg.Enrichment),
		Notifier: a.newNotifier(printer),
		Fallback: printer,
		Formatter: briefing.NewFormatter(briefing.Options{
			Title:      cfg.Digest.Title,
			SignOff:    cfg.Digest.SignOff,
			TitleWidth: cfg.Digest.TitleWidth,
			Location:   cfg.Digest.Location(),
		}),
		Recorder: recorder,
		Logger:   baseLogger.With("component", "pipeline"),
		Selection: usecase.SelectOptions{
			Cap:         cfg.Selection.Cap,
			CategoryCap: cfg.CategoryCaps(),
			Order:       cfg.SelectionOrder(),
		},
		MarkOnDeliveryFailure: cfg.Tracking.MarkOnFailure(),
		DryRun:                opts.DryRun,
		ReviewTimeout:         cfg.Enrichment.Timeout,
		ReviewMaxItems:        cfg.Enrichment.MaxItems,
	})
	return a, nil
}

// NewRegistry registers every built-in source adapter.
func NewRegistry() *scanner.Registry {
	registry := scanner.NewRegistry()
	registry.Register(parser.HackerNewsAdapter{})
	registry.Register(parser.GitHubTrendingAdapter{})
	registry.Register(parser.ConferenceAdapter{})
	registry.Register(parser.BlogAdapter{})
	registry.Register(parser.FeedAdapter{})
	registry.Register(parser.ArxivFeedAdapter{})
	registry.Register(parser.ArxivListAdapter{})
	return registry
}

// NewScorer combines global keywords with per-source extras.
func NewScorer(cfg config.Config) *relevance.Scorer {
	scorer := relevance.NewScorer(cfg.Keywords)
	for _, src := range cfg.Sources {
		scorer.WithSourceKeywords(src.Name, src.Keywords)
	}
	return scorer
}

func (a *Application) buildStore(ctx context.Context, readOnly bool) (ports.TrackingStore, error) {
	logger := a.logger.With("component", "storage")
	switch a.cfg.Tracking.Backend {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, a.cfg.Tracking.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect tracking database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		store := storage.NewPostgresStore(pool, logger)
		if readOnly {
			return store, nil
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		if readOnly {
			return storage.NewReadOnlyFileStore(a.cfg.Tracking.Path, logger), nil
		}
		return storage.NewFileStore(a.cfg.Tracking.Path, logger), nil
	}
}

func newReviewer(cfg config.EnrichmentConfig) ports.Reviewer {
	switch cfg.Provider {
	case config.ProviderChat:
		return llm.NewChatReviewer(cfg)
	case config.ProviderCommand:
		return llm.NewCommandReviewer(cfg)
	default:
		return nil
	}
}

func (a *Application) newNotifier(printer *console.Printer) ports.Notifier {
	delivery := a.cfg.Delivery
	switch delivery.Provider {
	case config.ProviderTelegram:
		return telegram.NewNotifier(delivery)
	case config.ProviderConsole:
		return printer
	default:
		n := gateway.NewNotifier(delivery, a.logger.With("component", "gateway"))
		a.logger.Debug("gateway resolved", "endpoint", n.Endpoint())
		return n
	}
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) (domain.RunReport, error) {
	return a.pipeline.Run(ctx)
}

// State loads the tracking store. Only an application built with
// Options.ReadOnly guarantees the store is left untouched.
func (a *Application) State(ctx context.Context) *domain.TrackingState {
	return a.store.Load(ctx)
}

// Close releases database connections.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
