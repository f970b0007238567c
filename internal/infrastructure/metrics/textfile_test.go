package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchDigest/internal/domain"
)

func TestTextfileRecorderWritesRun(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "researchdigest.prom")
	started := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	report := domain.RunReport{
		Outcome:    domain.OutcomeDeliveredLocallyOnly,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Sources: []domain.SourceReport{
			{Source: "Hacker News", Endpoint: "https://news.ycombinator.com/", Category: domain.CategoryNews, Items: 30},
			{Source: "Lil'Log", Endpoint: "https://lilianweng.github.io/", Category: domain.CategoryBlog, Err: errors.New("timeout")},
		},
		Fetched:            30,
		Relevant:           4,
		Selected:           3,
		Marked:             3,
		SelectedByCategory: map[domain.Category]int{domain.CategoryNews: 3},
	}

	require.NoError(t, NewTextfileRecorder(path).Record(report))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)

	assert.Contains(t, text, `researchdigest_source_items{category="hn",endpoint="https://news.ycombinator.com/",source="Hacker News"} 30`)
	assert.Contains(t, text, `researchdigest_source_up{category="blog",endpoint="https://lilianweng.github.io/",source="Lil'Log"} 0`)
	assert.Contains(t, text, `researchdigest_selected_items{category="hn"} 3`)
	assert.Contains(t, text, `researchdigest_run_outcome{outcome="delivered_locally_only"} 1`)
	assert.Contains(t, text, `researchdigest_run_outcome{outcome="success"} 0`)
	assert.Contains(t, text, `researchdigest_run_items{stage="relevant"} 4`)
	assert.Contains(t, text, "researchdigest_delivery_success 0")
	assert.Contains(t, text, "researchdigest_persist_success 1")
	assert.Contains(t, text, "researchdigest_last_run_duration_seconds 90")
}

func TestTextfileRecorderUnwritablePath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing", "dir", "x.prom")
	require.Error(t, NewTextfileRecorder(path).Record(domain.RunReport{Outcome: domain.OutcomeNoOp}))
}
