package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a registry with the Go runtime and
// process collectors registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// ScanMetrics counts bus scans and their outcome.
type ScanMetrics struct {
	Scans    *prometheus.CounterVec // labels: outcome=found|none|many|error
	Rejected *prometheus.CounterVec // labels: reason=busy|rate
	Duration prometheus.Histogram
	Frames   *prometheus.CounterVec // labels: dir=tx|rx
}

func NewScanMetrics(reg prometheus.Registerer) *ScanMetrics {
	m := &ScanMetrics{
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fastscan_scans_total",
			Help: "Bus scans by outcome.",
		}, []string{"outcome"}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fastscan_rejected_total",
			Help: "Scan requests that were not started.",
		}, []string{"reason"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fastscan_scan_duration_seconds",
			Help:    "Duration of bus scans.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fastscan_frames_total",
			Help: "Frames sent and received during scans.",
		}, []string{"dir"}),
	}
	reg.MustRegister(m.Scans, m.Rejected, m.Duration, m.Frames)
	return m
}

// Observe records a completed scan.
func (m *ScanMetrics) Observe(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Scans.WithLabelValues(outcome).Inc()
	m.Duration.Observe(d.Seconds())
}

func (m *ScanMetrics) Reject(reason string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(reason).Inc()
}

func (m *ScanMetrics) Frame(dir string) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues(dir).Inc()
}
