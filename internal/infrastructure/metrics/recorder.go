package metrics

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"AckeeVeille/internal/domain"
	"AckeeVeille/internal/logging"
	"AckeeVeille/internal/ports"
)

// Recorder keeps run metrics in a private registry and mirrors them to a
// node-exporter textfile after every run when a path is configured.
type Recorder struct {
	registry *prometheus.Registry
	textfile string
	logger   *slog.Logger

	AdapterItems     *prometheus.GaugeVec
	AdapterFailures  *prometheus.CounterVec
	RunDuration      prometheus.Gauge
	RunItems         prometheus.Gauge
	RunSuccess       prometheus.Gauge
	RunLastTimestamp prometheus.Gauge
}

var _ ports.RunRecorder = (*Recorder)(nil)

// NewRecorder registers the run metrics; an empty textfile disables export.
func NewRecorder(textfile string, logger *slog.Logger) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		textfile: textfile,
		logger:   logging.OrDiscard(logger),
		AdapterItems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "veille_adapter_items",
			Help: "Items collected by each source adapter during the last run.",
		}, []string{"adapter"}),
		AdapterFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "veille_adapter_failures_total",
			Help: "Runs in which a source adapter reported a failure.",
		}, []string{"adapter"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "veille_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		RunItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "veille_run_items_total",
			Help: "Items in the raw corpus of the last run.",
		}),
		RunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "veille_run_success",
			Help: "1 when the last run produced its report, 0 otherwise.",
		}),
		RunLastTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "veille_run_last_timestamp_seconds",
			Help: "Unix time at which the last run finished.",
		}),
	}

	r.registry.MustRegister(
		r.AdapterItems,
		r.AdapterFailures,
		r.RunDuration,
		r.RunItems,
		r.RunSuccess,
		r.RunLastTimestamp,
	)
	return r
}

// Registry exposes the gatherer holding every run metric.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRun updates every metric from the summary and writes the textfile.
func (r *Recorder) ObserveRun(summary domain.RunSummary) {
	for _, report := range summary.Adapters {
		r.AdapterItems.WithLabelValues(report.Adapter).Set(float64(report.Items))
		if report.Failed() {
			r.AdapterFailures.WithLabelValues(report.Adapter).Inc()
		}
	}

	r.RunDuration.Set(summary.Duration().Seconds())
	r.RunItems.Set(float64(summary.TotalItems))
	if summary.Run.State == domain.StateDone {
		r.RunSuccess.Set(1)
	} else {
		r.RunSuccess.Set(0)
	}
	if !summary.FinishedAt.IsZero() {
		r.RunLastTimestamp.Set(float64(summary.FinishedAt.Unix()))
	}

	if r.textfile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(r.textfile, r.registry); err != nil {
		r.logger.Warn("write metrics textfile failed", "path", r.textfile, "error", err)
	}
}
