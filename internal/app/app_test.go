package app

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchDigest/internal/config"
	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/logging"
)

const newsPage = `
<table>
  <tr class="athing submission" id="1">
    <td class="title"><span class="titleline"><a href="https://example.org/agents">Shipping LLM agents to production</a></span></td>
  </tr>
  <tr><td></td><td class="subtext"><span class="score" id="score_1">321 points</span></td></tr>
  <tr class="athing submission" id="2">
    <td class="title"><span class="titleline"><a href="https://example.org/bread">Baking sourdough at home</a></span></td>
  </tr>
</table>`

type mapFetcher map[string]string

func (m mapFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	if doc, ok := m[url]; ok {
		return []byte(doc), nil
	}
	return nil, errors.New("unreachable")
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.LoadFrom("")
	cfg.Keywords = []string{"agent"}
	cfg.Sources = []config.SourceConfig{
		{
			Name:      "Hacker News",
			Adapter:   "hackernews",
			Category:  "hn",
			Endpoints: []config.EndpointConfig{{URL: "https://news.ycombinator.com/"}},
		},
		{
			Name:      "Broken Blog",
			Adapter:   "blog",
			Category:  "blog",
			Endpoints: []config.EndpointConfig{{URL: "https://down.example.org/"}},
		},
	}
	cfg.Tracking.Backend = config.BackendFile
	cfg.Tracking.Path = filepath.Join(t.TempDir(), "state.json")
	cfg.Enrichment.Provider = ""
	cfg.Delivery.Provider = config.ProviderConsole
	cfg.Metrics.TextfilePath = ""
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config, dryRun bool, out *bytes.Buffer) *Application {
	t.Helper()
	application, err := New(context.Background(), cfg, logging.NewWithWriter(&bytes.Buffer{}, "debug"), Options{
		DryRun:  dryRun,
		Stdout:  out,
		Fetcher: mapFetcher{"https://news.ycombinator.com/": newsPage},
	})
	require.NoError(t, err)
	t.Cleanup(application.Close)
	return application
}

func TestApplicationRunAndState(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	application := newTestApp(t, cfg, false, &out)
	report, err := application.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSuccess, report.Outcome)
	assert.Equal(t, 1, report.Selected)
	assert.Contains(t, out.String(), "Shipping LLM agents to production")
	assert.NotContains(t, out.String(), "sourdough")
	require.Len(t, report.Sources, 2)
	assert.Error(t, report.Sources[1].Err)

	state := newTestApp(t, cfg, false, &bytes.Buffer{}).State(context.Background())
	assert.Equal(t, []string{"https://example.org/agents"}, state.Identifiers(domain.CategoryNews))
	require.NotNil(t, state.LastRun)

	again, err := newTestApp(t, cfg, false, &out).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNoOp, again.Outcome)
}

func TestApplicationDryRun(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	report, err := newTestApp(t, cfg, true, &out).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeDryRun, report.Outcome)
	assert.Contains(t, out.String(), "Shipping LLM agents to production")

	state := newTestApp(t, cfg, false, &bytes.Buffer{}).State(context.Background())
	assert.Zero(t, state.Len())
}

func TestNewRegistryHasEveryAdapter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"arxiv-api", "arxiv-list", "blog", "conference", "feed", "github-trending", "hackernews",
	}, NewRegistry().Names())
}

func TestNewScorerUsesSourceKeywords(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Keywords: []string{"agent"},
		Sources:  []config.SourceConfig{{Name: "NeurIPS", Keywords: []string{"deadline"}}},
	}
	scorer := NewScorer(cfg)

	assert.Equal(t, 2, scorer.Score(domain.Item{Source: "NeurIPS", Title: "Agent track deadline"}))
	assert.Equal(t, 1, scorer.Score(domain.Item{Source: "Other", Title: "Agent track deadline"}))
}
