package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// terrain-analysis workflow.
type Metrics struct {
	WorkflowRunning prometheus.Gauge
	RunsCompleted   *prometheus.CounterVec // labels: state={DONE,HALTED}
	StageDuration   *prometheus.HistogramVec

	TilesFetched    prometheus.Counter
	TileCacheLookup *prometheus.CounterVec // labels: result={hit,miss}

	StreamReaches    prometheus.Counter
	PourPoints       *prometheus.CounterVec // labels: type={JUNCTION,TERMINUS}
	CatchmentsOutput prometheus.Counter
	PointsSkipped    prometheus.Counter

	StageWarnings *prometheus.CounterVec // labels: stage
}

// NewMetrics creates and registers all workflow metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.WorkflowRunning,
		m.RunsCompleted,
		m.StageDuration,
		m.TilesFetched,
		m.TileCacheLookup,
		m.StreamReaches,
		m.PourPoints,
		m.CatchmentsOutput,
		m.PointsSkipped,
		m.StageWarnings,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		WorkflowRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "terrain",
			Name:      "workflow_running",
			Help:      "1 while a workflow run is in progress.",
		}),
		RunsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "runs_completed_total",
			Help:      "Workflow runs by terminal state.",
		}, []string{"state"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "terrain",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each workflow stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
		TilesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "tiles_fetched_total",
			Help:      "Elevation tiles downloaded from the tile service.",
		}),
		TileCacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "tile_cache_lookups_total",
			Help:      "Region-keyed tile cache lookups by result.",
		}, []string{"result"}),
		StreamReaches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "stream_reaches_total",
			Help:      "Stream reaches extracted above the accumulation threshold.",
		}),
		PourPoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "pour_points_total",
			Help:      "Pour points identified, by classification.",
		}, []string{"type"}),
		CatchmentsOutput: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "catchments_output_total",
			Help:      "Sub-catchment polygons written to the output layer.",
		}),
		PointsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "pour_points_skipped_total",
			Help:      "Pour points skipped because their upstream trace was empty.",
		}),
		StageWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "stage_warnings_total",
			Help:      "Warning-level conditions by stage.",
		}, []string{"stage"}),
	}
}
