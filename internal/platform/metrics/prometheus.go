package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager holds the service's Prometheus collectors on a private registry.
// A nil *Manager is valid and records nothing.
type Manager struct {
	Registry           *prometheus.Registry
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
	CartMutationsTotal *prometheus.CounterVec
	PrunedItemsTotal   prometheus.Counter
	CartMergesTotal    prometheus.Counter
	EventPublishErrors prometheus.Counter
}

func NewManager(namespace string) *Manager {
	registry := prometheus.NewRegistry()

	httpRequestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	httpRequestLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Latency of HTTP requests by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	cartMutationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Total number of committed cart mutations by operation.",
	}, []string{"operation"})

	prunedItemsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_pruned_items_total",
		Help:      "Line items dropped because their product no longer resolves.",
	})

	cartMergesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_merges_total",
		Help:      "Guest carts merged into user carts.",
	})

	eventPublishErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_event_publish_errors_total",
		Help:      "Cart events that could not be published.",
	})

	registry.MustRegister(
		httpRequestsTotal,
		httpRequestLatency,
		cartMutationsTotal,
		prunedItemsTotal,
		cartMergesTotal,
		eventPublishErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Manager{
		Registry:           registry,
		HTTPRequestsTotal:  httpRequestsTotal,
		HTTPRequestLatency: httpRequestLatency,
		CartMutationsTotal: cartMutationsTotal,
		PrunedItemsTotal:   prunedItemsTotal,
		CartMergesTotal:    cartMergesTotal,
		EventPublishErrors: eventPublishErrors,
	}
}

func (m *Manager) ObserveHTTPRequest(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPRequestLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Manager) ObserveMutation(operation string) {
	if m == nil {
		return
	}
	m.CartMutationsTotal.WithLabelValues(operation).Inc()
}

func (m *Manager) ObservePruned(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.PrunedItemsTotal.Add(float64(count))
}

func (m *Manager) ObserveMerge() {
	if m == nil {
		return
	}
	m.CartMergesTotal.Inc()
}

func (m *Manager) ObserveEventPublishError() {
	if m == nil {
		return
	}
	m.EventPublishErrors.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
