// Package metrics exports analysis and HTTP statistics to Prometheus. The
// collectors are fed by event bus subscribers.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/querycost/internal/eventbus"
	events "github.com/hanpama/querycost/internal/events"
)

type Metrics struct {
	registry *prometheus.Registry

	complexity *prometheus.HistogramVec
	nodes      prometheus.Histogram
	operations *prometheus.CounterVec
	analysis   prometheus.Histogram
	http       *prometheus.HistogramVec
	grpc       *prometheus.CounterVec
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		complexity: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "querycost_operation_complexity",
			Help:    "Complexity score of analyzed operations",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10), // 1 to ~262k
		}, []string{"operation"}),
		nodes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "querycost_operation_nodes",
			Help:    "Selection nodes visited per analyzed operation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "querycost_operations_total",
			Help: "Analyzed operations by outcome",
		}, []string{"outcome"}),
		analysis: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "querycost_analysis_duration_seconds",
			Help:    "Time spent parsing, validating and scoring a document",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
		}),
		http: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "querycost_http_request_duration_seconds",
			Help:    "HTTP request duration by route, status and whether it was forwarded",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status", "forwarded"}),
		grpc: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "querycost_grpc_requests_total",
			Help: "Handled gRPC calls by method and code",
		}, []string{"method", "code"}),
	}
}

// Register subscribes the collectors to the global event bus.
func (m *Metrics) Register() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.AnalysisFinish) { m.observeAnalysis(e) }),
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			m.http.WithLabelValues(e.Route, strconv.Itoa(e.Status), strconv.FormatBool(e.Forwarded)).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.GRPCServerFinish) {
			m.grpc.WithLabelValues(e.Method, e.Code.String()).Inc()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (m *Metrics) observeAnalysis(e events.AnalysisFinish) {
	m.analysis.Observe(e.Duration.Seconds())
	if len(e.Operations) == 0 && len(e.Errors) > 0 {
		m.operations.WithLabelValues("invalid").Inc()
		return
	}
	for _, op := range e.Operations {
		typ := op.Type
		if typ == "" {
			typ = "query"
		}
		m.complexity.WithLabelValues(typ).Observe(op.Complexity)
		m.nodes.Observe(float64(op.Nodes))
		m.operations.WithLabelValues(op.Outcome).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
