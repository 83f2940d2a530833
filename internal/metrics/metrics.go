// Package metrics holds the Prometheus instruments of the sniper pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "solana_sniper"

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	// Discovery
	ScansTotal       *prometheus.CounterVec
	Discovered       *prometheus.CounterVec
	ScanDuration     prometheus.Histogram
	EligibleTotal    prometheus.Counter
	RejectedTotal    *prometheus.CounterVec
	CriterionFailure *prometheus.CounterVec

	// Execution
	Acquisitions     *prometheus.CounterVec
	EndpointAttempts *prometheus.CounterVec
	EndpointLatency  *prometheus.HistogramVec

	// Positions
	OpenPositions prometheus.Gauge
	Exits         *prometheus.CounterVec
	ExitFailures  prometheus.Counter
	Sweeps        prometheus.Counter
	PriceMisses   prometheus.Counter

	// Pipeline
	PipelineErrors  *prometheus.CounterVec
	LastScan        prometheus.Gauge
	LastSweep       prometheus.Gauge
	DroppedNotifies prometheus.Counter
}

// New registers every instrument on a private registry, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ScansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "polls_total",
			Help:      "Discovery polls by result",
		}, []string{"result"}),
		Discovered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "instruments_discovered_total",
			Help:      "New instruments emitted by the scanner",
		}, []string{"source"}),
		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "poll_duration_seconds",
			Help:      "Discovery poll duration",
			Buckets:   prometheus.DefBuckets,
		}),
		EligibleTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scorer",
			Name:      "eligible_total",
			Help:      "Instruments passing the whole checklist",
		}),
		RejectedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scorer",
			Name:      "rejected_total",
			Help:      "Instruments rejected, by reason",
		}, []string{"reason"}),
		CriterionFailure: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scorer",
			Name:      "criterion_failures_total",
			Help:      "Failed checklist criteria",
		}, []string{"criterion"}),

		Acquisitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "acquisitions_total",
			Help:      "Acquisition attempts by result",
		}, []string{"result"}),
		EndpointAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "endpoint_attempts_total",
			Help:      "Quote endpoint attempts by operation and result",
		}, []string{"op", "result"}),
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "endpoint_latency_seconds",
			Help:      "Quote endpoint latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"op"}),

		OpenPositions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "open",
			Help:      "Open positions",
		}),
		Exits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "exits_total",
			Help:      "Confirmed exits by trigger",
		}, []string{"trigger"}),
		ExitFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "exit_failures_total",
			Help:      "Failed liquidation attempts",
		}),
		Sweeps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "sweeps_total",
			Help:      "Completed monitor sweeps",
		}),
		PriceMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "price_unavailable_total",
			Help:      "Positions skipped in a sweep for lack of a price",
		}),

		PipelineErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "errors_total",
			Help:      "Errors reported by the loops",
		}, []string{"loop"}),
		LastScan: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "last_scan_timestamp",
			Help:      "Unix time of the last completed scan",
		}),
		LastSweep: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "last_sweep_timestamp",
			Help:      "Unix time of the last completed sweep",
		}),
		DroppedNotifies: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Notifications dropped on a full queue",
		}),
	}
}

// Handler serves the private registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordScan(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(result).Inc()
	m.ScanDuration.Observe(took.Seconds())
	m.LastScan.SetToCurrentTime()
}

func (m *Metrics) RecordDiscovered(source string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Discovered.WithLabelValues(source).Add(float64(n))
}

// RecordVerdict counts an eligibility verdict and every failing criterion.
func (m *Metrics) RecordVerdict(eligible bool, failed []string) {
	if m == nil {
		return
	}
	if eligible {
		m.EligibleTotal.Inc()
		return
	}
	m.RejectedTotal.WithLabelValues("checklist").Inc()
	for _, name := range failed {
		m.CriterionFailure.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) RecordSkip(reason string) {
	if m == nil {
		return
	}
	m.RejectedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordAcquisition(result string) {
	if m == nil {
		return
	}
	m.Acquisitions.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordEndpoint(op, result string, took time.Duration) {
	if m == nil {
		return
	}
	m.EndpointAttempts.WithLabelValues(op, result).Inc()
	m.EndpointLatency.WithLabelValues(op).Observe(took.Seconds())
}

func (m *Metrics) SetOpenPositions(n int) {
	if m == nil {
		return
	}
	m.OpenPositions.Set(float64(n))
}

func (m *Metrics) RecordExit(trigger string) {
	if m == nil {
		return
	}
	m.Exits.WithLabelValues(trigger).Inc()
}

func (m *Metrics) RecordExitFailure() {
	if m == nil {
		return
	}
	m.ExitFailures.Inc()
}

func (m *Metrics) RecordSweep() {
	if m == nil {
		return
	}
	m.Sweeps.Inc()
	m.LastSweep.SetToCurrentTime()
}

func (m *Metrics) RecordPriceMiss() {
	if m == nil {
		return
	}
	m.PriceMisses.Inc()
}

func (m *Metrics) RecordPipelineError(loop string) {
	if m == nil {
		return
	}
	m.PipelineErrors.WithLabelValues(loop).Inc()
}

func (m *Metrics) RecordDroppedNotification() {
	if m == nil {
		return
	}
	m.DroppedNotifies.Inc()
}
