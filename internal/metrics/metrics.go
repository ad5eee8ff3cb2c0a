// Package metrics exposes run statistics in the Prometheus text format, for
// a node_exporter textfile collector or a one-shot dump.
package metrics

import (
	"fmt"
	"time"

	"github.com/Veraticus/packflow/internal/engine"
	"github.com/Veraticus/packflow/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "packflow"

// Recorder collects the metrics of a single run on a private registry.
type Recorder struct {
	registry      *prometheus.Registry
	streamRows    *prometheus.GaugeVec
	outputRows    *prometheus.GaugeVec
	defects       *prometheus.CounterVec
	stageDuration *prometheus.GaugeVec
	sinkFailures  *prometheus.CounterVec
	kilograms     *prometheus.GaugeVec
	lastRun       *prometheus.GaugeVec
}

// NewRecorder registers every packflow metric on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		streamRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_rows",
			Help:      "Rows read per input stream after normalization.",
		}, []string{"stream"}),
		outputRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "output_rows",
			Help:      "Rows per output table.",
		}, []string{"table"}),
		defects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "defects_total",
			Help:      "Data-quality defects by stream and kind.",
		}, []string{"stream", "kind"}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each run stage.",
		}, []string{"stage"}),
		sinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_failures_total",
			Help:      "Failed table deliveries by sink.",
		}, []string{"sink"}),
		kilograms: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mass_balance_kilograms",
			Help:      "Mass-balance totals over the reporting window.",
		}, []string{"measure"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished, by status.",
		}, []string{"status"}),
	}
	r.registry.MustRegister(
		r.streamRows,
		r.outputRows,
		r.defects,
		r.stageDuration,
		r.sinkFailures,
		r.kilograms,
		r.lastRun,
	)
	return r
}

// Registry returns the registry holding the run metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveResult records row counts, defects and mass-balance totals.
func (r *Recorder) ObserveResult(res *engine.Result) {
	for kind, n := range res.StreamRows {
		r.streamRows.WithLabelValues(string(kind)).Set(float64(n))
	}
	for _, t := range res.Tables {
		r.outputRows.WithLabelValues(t.Name).Set(float64(t.Len()))
	}
	for _, d := range res.Defects.Entries {
		r.defects.WithLabelValues(string(d.Stream), string(d.Kind)).Inc()
	}

	if len(res.MassBalance) == 0 {
		return
	}
	totals := res.Totals()
	r.kilograms.WithLabelValues("processed").Set(totals.KgProcessed)
	r.kilograms.WithLabelValues("discard").Set(totals.KgDiscard)
	r.kilograms.WithLabelValues("exportable").Set(totals.KgExportable)
	r.kilograms.WithLabelValues("overweight").Set(totals.KgOverweight)
	r.kilograms.WithLabelValues("shrinkage").Set(totals.KgShrinkage)
}

// ObserveStage records how long stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// SinkFailed counts a failed delivery to sink.
func (r *Recorder) SinkFailed(sink string) {
	r.sinkFailures.WithLabelValues(sink).Inc()
}

// RunFinished stamps the completion time of the run.
func (r *Recorder) RunFinished(status model.RunStatus, at time.Time) {
	r.lastRun.WithLabelValues(string(status)).Set(float64(at.Unix()))
}

// WriteTextfile writes the registry atomically to path in the text format
// read by the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
