package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics holds Prometheus metrics for live data store queries.
type StoreMetrics struct {
	Queries       *prometheus.CounterVec
	QueryDuration prometheus.Histogram
}

// NewStoreMetrics creates and registers store metrics on the given registry.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "queries_total",
			Help:      "Total number of store queries, by restraint and simulation.",
		}, []string{"restrained", "simulate"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "query_duration_seconds",
			Help:      "Time spent assembling a store snapshot.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5},
		}),
	}

	reg.MustRegister(m.Queries, m.QueryDuration)
	return m
}

func (m *StoreMetrics) ObserveQuery(restrained, simulate bool, d time.Duration) {
	m.Queries.WithLabelValues(strconv.FormatBool(restrained), strconv.FormatBool(simulate)).Inc()
	m.QueryDuration.Observe(d.Seconds())
}
