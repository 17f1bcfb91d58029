package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	Registry *prometheus.Registry

	WebhookEvents    *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	SummaryLatency   prometheus.Histogram
	SummaryErrors    prometheus.Counter
	BotsStarted      *prometheus.CounterVec
	TranscriptsSaved *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry, along with the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		// outcome: saved, not_ready, failed, rejected
		WebhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meetnote_webhook_events_total",
			Help: "Webhook deliveries by outcome",
		}, []string{"outcome"}),

		// status: hit, miss, expired, corrupt
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meetnote_summary_cache_lookups_total",
			Help: "Summary cache lookups by status",
		}, []string{"status"}),

		SummaryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "meetnote_summary_duration_seconds",
			Help:    "Time spent generating uncached summaries",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		SummaryErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "meetnote_summary_errors_total",
			Help: "Summaries that failed after retries",
		}),

		BotsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meetnote_bots_started_total",
			Help: "Bot creation requests by result",
		}, []string{"result"}),

		// source: direct, polled
		TranscriptsSaved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meetnote_transcripts_saved_total",
			Help: "Transcripts written by how their URL was found",
		}, []string{"source"}),
	}
}
