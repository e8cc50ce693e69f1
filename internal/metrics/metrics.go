// File: internal/metrics/metrics.go
// ============================================
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signal_bot"

// Recorder owns its registry so a batch run can dump exactly what it observed
type Recorder struct {
	registry *prometheus.Registry

	signals             *prometheus.CounterVec
	skipped             *prometheus.CounterVec
	notificationsFailed prometheus.Counter
	openPositions       prometheus.Gauge
	runDuration         prometheus.Summary
	lastRunTimestamp    prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Signals emitted, by action.",
		}, []string{"action"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "symbols_skipped_total",
			Help:      "Symbols skipped during a run, by reason.",
		}, []string{"reason"}),
		notificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Notifications that could not be delivered.",
		}),
		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_positions",
			Help:      "Paper positions open after the last run.",
		}),
		runDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace:  namespace,
			Name:       "run_duration_seconds",
			Help:       "Wall time of a full evaluation cycle.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	r.registry.MustRegister(
		r.signals,
		r.skipped,
		r.notificationsFailed,
		r.openPositions,
		r.runDuration,
		r.lastRunTimestamp,
	)
	return r
}

func (r *Recorder) ObserveSignal(action string) {
	r.signals.WithLabelValues(action).Inc()
}

func (r *Recorder) SymbolSkipped(reason string) {
	r.skipped.WithLabelValues(reason).Inc()
}

func (r *Recorder) NotificationFailed() {
	r.notificationsFailed.Inc()
}

func (r *Recorder) SetOpenPositions(n int) {
	r.openPositions.Set(float64(n))
}

func (r *Recorder) ObserveRun(d time.Duration, finished time.Time) {
	r.runDuration.Observe(d.Seconds())
	r.lastRunTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile dumps the registry in the node-exporter textfile format
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
