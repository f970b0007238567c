// Package metrics exports run outcomes in the Prometheus textfile format.
package metrics

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/ports"
)

const namespace = "researchdigest"

// TextfileRecorder rewrites a node_exporter textfile after every run.
type TextfileRecorder struct {
	path string
}

var _ ports.RunRecorder = (*TextfileRecorder)(nil)

// NewTextfileRecorder writes metrics to path.
func NewTextfileRecorder(path string) *TextfileRecorder {
	return &TextfileRecorder{path: path}
}

type runMetrics struct {
	sourceItems   *prometheus.GaugeVec
	sourceUp      *prometheus.GaugeVec
	selectedItems *prometheus.GaugeVec
	outcome       *prometheus.GaugeVec
	items         *prometheus.GaugeVec
	delivered     prometheus.Gauge
	persisted     prometheus.Gauge
	lastRun       prometheus.Gauge
	duration      prometheus.Gauge
}

func newRunMetrics(reg prometheus.Registerer) *runMetrics {
	factory := promauto.With(reg)
	return &runMetrics{
		sourceItems: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_items",
			Help:      "Items produced by a source endpoint in the last run",
		}, []string{"source", "endpoint", "category"}),
		sourceUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_up",
			Help:      "Whether the source endpoint was fetched and adapted (1) or failed (0)",
		}, []string{"source", "endpoint", "category"}),
		selectedItems: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "selected_items",
			Help:      "Items shown in the digest per category",
		}, []string{"category"}),
		outcome: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_outcome",
			Help:      "Outcome of the last run (1 for the outcome that occurred)",
		}, []string{"outcome"}),
		items: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_items",
			Help:      "Item counts of the last run by stage",
		}, []string{"stage"}),
		delivered: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "delivery_success",
			Help:      "Whether the last digest reached the notifier (1) or not (0)",
		}),
		persisted: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "persist_success",
			Help:      "Whether tracking state was saved (1) or not (0)",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
	}
}

var allOutcomes = []domain.Outcome{
	domain.OutcomeSuccess,
	domain.OutcomeDeliveredLocallyOnly,
	domain.OutcomeNoOp,
	domain.OutcomeDryRun,
}

// Record snapshots the report into a fresh registry and writes it atomically.
func (r *TextfileRecorder) Record(report domain.RunReport) error {
	reg := prometheus.NewRegistry()
	m := newRunMetrics(reg)

	for _, s := range report.Sources {
		labels := []string{s.Source, s.Endpoint, string(s.Category)}
		m.sourceItems.WithLabelValues(labels...).Set(float64(s.Items))
		up := 1.0
		if s.Err != nil {
			up = 0
		}
		m.sourceUp.WithLabelValues(labels...).Set(up)
	}

	categories := make([]string, 0, len(report.SelectedByCategory))
	for c := range report.SelectedByCategory {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)
	for _, c := range categories {
		m.selectedItems.WithLabelValues(c).Set(float64(report.SelectedByCategory[domain.Category(c)]))
	}

	for _, o := range allOutcomes {
		v := 0.0
		if o == report.Outcome {
			v = 1
		}
		m.outcome.WithLabelValues(string(o)).Set(v)
	}

	m.items.WithLabelValues("fetched").Set(float64(report.Fetched))
	m.items.WithLabelValues("relevant").Set(float64(report.Relevant))
	m.items.WithLabelValues("selected").Set(float64(report.Selected))
	m.items.WithLabelValues("marked").Set(float64(report.Marked))

	m.delivered.Set(boolGauge(report.Outcome == domain.OutcomeSuccess))
	m.persisted.Set(boolGauge(report.PersistErr == nil && report.Marked > 0))
	if !report.FinishedAt.IsZero() {
		m.lastRun.Set(float64(report.FinishedAt.Unix()))
		m.duration.Set(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}

	if err := prometheus.WriteToTextfile(r.path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
