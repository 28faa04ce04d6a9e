// Package metrics exports search counters for prometheus.
package metrics

import (
	"net/http"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "maxclique"

// Metrics holds the counters of one process.
type Metrics struct {
	Registry      *prometheus.Registry
	Searches      prometheus.Counter
	Roots         prometheus.Counter
	Expansions    prometheus.Counter
	MemoHits      prometheus.Counter
	MemoMisses    prometheus.Counter
	SearchSeconds prometheus.Histogram
}

// Default is the process-wide instance the search routines report to.
var Default = New()

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Searches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Completed max clique searches.",
		}),
		Roots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roots_total",
			Help:      "Root vertices fully expanded.",
		}),
		Expansions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expansions_total",
			Help:      "Kernel expansions not served by the memo table.",
		}),
		MemoHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memo_hits_total",
			Help:      "Search states served by the memo table.",
		}),
		MemoMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memo_misses_total",
			Help:      "Search states the memo table had to compute.",
		}),
		SearchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_seconds",
			Help:      "Wall time per search.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	m.Registry.MustRegister(m.Searches, m.Roots, m.Expansions, m.MemoHits, m.MemoMisses, m.SearchSeconds)
	return m
}

// Observe adds the work of one finished search.
func (m *Metrics) Observe(stats goclique.SearchStats) {
	m.Searches.Inc()
	m.Roots.Add(float64(stats.Roots))
	m.Expansions.Add(float64(stats.Expansions))
	m.MemoHits.Add(float64(stats.MemoHits))
	m.MemoMisses.Add(float64(stats.MemoMisses))
	m.SearchSeconds.Observe(stats.Elapsed.Seconds())
}

// Handler serves this instance's registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
