package parser

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ResearchDigest/internal/config"
	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/ports"
	"ResearchDigest/internal/scanner"
)

// StrategySource implements ItemSource via registered adapters.
type StrategySource struct {
	registry    *scanner.Registry
	fetcher     ports.Fetcher
	sources     []config.SourceConfig
	concurrency int
	logger      *slog.Logger
}

var _ ports.ItemSource = (*StrategySource)(nil)

// NewStrategySource wires the adapter registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, fetcher ports.Fetcher, sources []config.SourceConfig, concurrency int, log *slog.Logger) *StrategySource {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &StrategySource{
		registry:    reg,
		fetcher:     fetcher,
		sources:     sources,
		concurrency: concurrency,
		logger:      log,
	}
}

type job struct {
	source   config.SourceConfig
	category domain.Category
	endpoint scanner.Endpoint
}

type jobResult struct {
	items  []domain.Item
	report domain.SourceReport
}

// Collect fetches every enabled endpoint. A failing endpoint contributes no
// items and an error report; it never aborts the others.
func (s *StrategySource) Collect(ctx context.Context) domain.Collection {
	jobs := s.jobs()
	s.logger.Debug("collect", "endpoints", len(jobs), "concurrency", s.concurrency)

	results := make([]jobResult, len(jobs))
	if s.concurrency == 1 {
		for i, j := range jobs {
			results[i] = s.run(ctx, j)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for i, j := range jobs {
			g.Go(func() error {
				results[i] = s.run(gctx, j)
				return nil
			})
		}
		_ = g.Wait()
	}

	var out domain.Collection
	for _, r := range results {
		out.Items = append(out.Items, r.items...)
		out.Reports = append(out.Reports, r.report)
	}
	s.logger.Debug("collect done", "items", len(out.Items))
	return out
}

func (s *StrategySource) jobs() []job {
	var jobs []job
	for _, src := range s.sources {
		if src.Disabled {
			s.logger.Debug("skip disabled source", "source", src.Name)
			continue
		}
		category, err := domain.ParseCategory(src.Category)
		if err != nil {
			category = domain.Category(src.Category)
		}
		for _, ep := range src.Endpoints {
			jobs = append(jobs, job{
				source:   src,
				category: category,
				endpoint: scanner.Endpoint{Name: ep.Name, URL: ep.URL},
			})
		}
	}
	return jobs
}

func (s *StrategySource) run(ctx context.Context, j job) jobResult {
	report := domain.SourceReport{
		Source:   j.source.Name,
		Endpoint: j.endpoint.URL,
		Category: j.category,
	}

	items, err := s.collectEndpoint(ctx, j)
	if err != nil {
		s.logger.Warn("source failed", "source", j.source.Name, "endpoint", j.endpoint.URL, "error", err)
		report.Err = err
		return jobResult{report: report}
	}

	report.Items = len(items)
	s.logger.Debug("source produced items", "source", j.source.Name, "endpoint", j.endpoint.URL, "count", len(items))
	return jobResult{items: items, report: report}
}

func (s *StrategySource) collectEndpoint(ctx context.Context, j job) ([]domain.Item, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("adapter registry is not configured")
	}
	adapter, err := s.registry.Resolve(j.source.Adapter)
	if err != nil {
		return nil, err
	}

	doc, err := s.fetcher.Fetch(ctx, j.endpoint.URL)
	if err != nil {
		return nil, err
	}

	req := scanner.Request{
		Source:   j.source.Name,
		Category: j.category,
		Endpoint: j.endpoint,
		Options:  j.source.Options,
	}
	items := adapter.Parse(doc, req)
	for i := range items {
		items[i].Category = j.category
		if items[i].Source == "" {
			items[i].Source = j.source.Name
		}
	}
	return items, nil
}
