package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "hashnav"
	metricsSubsystem = "router"
)

// Load outcomes recorded on page_loads_total.
const (
	outcomeCreated = "created"
	outcomeReused  = "reused"
	outcomeFailed  = "failed"
)

// metrics holds the Prometheus collectors of one Router.
type metrics struct {
	navigations      *prometheus.CounterVec
	pageLoads        *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	providerFailures *prometheus.CounterVec
	historyDepth     prometheus.Gauge
}

// newMetrics registers the router collectors with reg. A nil reg uses a
// private registry so several routers can coexist.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &metrics{
		navigations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "navigations_total",
			Help:      "Total number of navigations by kind",
		}, []string{"kind"}),

		pageLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "page_loads_total",
			Help:      "Total number of page loads by route and outcome",
		}, []string{"route", "outcome"}),

		providerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "provider_duration_seconds",
			Help:      "Data provider duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger"}),

		providerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "provider_failures_total",
			Help:      "Total number of failed data provider calls by route",
		}, []string{"route"}),

		historyDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "history_depth",
			Help:      "Number of hashes in the navigation history",
		}),
	}
}
