package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the settlement flow.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	settlementTotal *prometheus.CounterVec
	gatewayDuration prometheus.Histogram
	reconcileTotal  prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	settlementTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlements_total",
		Help: "Settlement attempts by outcome",
	}, []string{"result"})

	gatewayDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_gateway_charge_duration_seconds",
		Help:    "Latency of payment gateway charge calls",
		Buckets: prometheus.DefBuckets,
	})

	reconcileTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_reconciliations_total",
		Help: "Finalizations replayed by the reconciler",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, settlementTotal, gatewayDuration, reconcileTotal, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		settlementTotal: settlementTotal,
		gatewayDuration: gatewayDuration,
		reconcileTotal:  reconcileTotal,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one handled HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// ObserveSettlement records a settlement attempt outcome.
func (s *MetricsService) ObserveSettlement(result string) {
	s.settlementTotal.With(prometheus.Labels{"result": result}).Inc()
}

// ObserveGatewayCharge records the latency of a charge call.
func (s *MetricsService) ObserveGatewayCharge(duration time.Duration) {
	s.gatewayDuration.Observe(duration.Seconds())
}

// ObserveReconciliation records one replayed finalization.
func (s *MetricsService) ObserveReconciliation() {
	s.reconcileTotal.Inc()
}
