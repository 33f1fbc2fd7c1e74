package priorart

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK      = "ok"
	outcomeFailed  = "failed"
	outcomeStatus  = "bad_status"
	outcomeEmpty   = "empty"
	outcomeParsed  = "parsed"
	outcomeDropped = "dropped"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	queries  *prometheus.CounterVec
	pages    *prometheus.CounterVec
	hits     *prometheus.CounterVec
	duration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "priorart_queries_total",
			Help: "Provider queries executed, by outcome.",
		}, []string{"outcome"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "priorart_pages_total",
			Help: "Provider page requests, by outcome.",
		}, []string{"outcome"}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "priorart_hits_total",
			Help: "Provider hits seen, by parse outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "priorart_search_duration_seconds",
			Help:    "Wall-clock duration of prior-art search sessions.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.queries, m.pages, m.hits, m.duration)
	}
	return m
}

func (m *Metrics) query(outcome string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) page(outcome string) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues(outcome).Inc()
}

func (m *Metrics) hit(outcome string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeSearch(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}
