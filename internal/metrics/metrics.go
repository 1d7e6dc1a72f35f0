// Package metrics wires the engine's prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set groups every collector the engine touches. One Set per process,
// registered on a private registry.
type Set struct {
	UpdatesTotal      *prometheus.CounterVec
	SequenceGapsTotal *prometheus.CounterVec
	CrossedBooksTotal *prometheus.CounterVec
	EstimatesTotal    *prometheus.CounterVec
	StageLatencyMs    *prometheus.HistogramVec
	EstimateLatencyMs prometheus.Histogram
	BookStalenessMs   *prometheus.GaugeVec
	Volatility        *prometheus.GaugeVec
}

func New(reg *prometheus.Registry) *Set {
	s := &Set{
		UpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "book_updates_total", Help: "Feed updates by symbol and apply result",
		}, []string{"symbol", "result"}),
		SequenceGapsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "book_sequence_gaps_total", Help: "Sequence gaps forcing a resync",
		}, []string{"symbol"}),
		CrossedBooksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "book_crossed_total", Help: "Updates rejected for crossing the book",
		}, []string{"symbol"}),
		EstimatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cost_estimates_total", Help: "Estimate queries by symbol and book state",
		}, []string{"symbol", "state"}),
		StageLatencyMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "estimate_stage_latency_ms", Help: "Per-stage latency of the estimate pipeline",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"stage"}),
		EstimateLatencyMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "estimate_latency_ms", Help: "End-to-end estimate latency",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		BookStalenessMs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "book_staleness_ms", Help: "Milliseconds since the last accepted update",
		}, []string{"symbol"}),
		Volatility: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "realized_volatility", Help: "Rolling realized volatility of mid-price log-returns",
		}, []string{"symbol"}),
	}
	for _, c := range []prometheus.Collector{
		s.UpdatesTotal, s.SequenceGapsTotal, s.CrossedBooksTotal, s.EstimatesTotal,
		s.StageLatencyMs, s.EstimateLatencyMs, s.BookStalenessMs, s.Volatility,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		_ = reg.Register(c)
	}
	return s
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
