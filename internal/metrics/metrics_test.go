package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	eventbus "github.com/hanpama/querycost/internal/eventbus"
	events "github.com/hanpama/querycost/internal/events"
)

func setup(t *testing.T) *Metrics {
	t.Helper()
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })
	m := New()
	t.Cleanup(m.Register())
	return m
}

func TestAnalysisMetrics(t *testing.T) {
	m := setup(t)
	ctx := context.Background()

	eventbus.Publish(ctx, events.AnalysisFinish{
		Operations: []events.Operation{
			{Type: "query", Complexity: 12, Nodes: 4, Outcome: "accepted"},
			{Type: "mutation", Complexity: 900, Nodes: 30, Outcome: "complexity_exceeded"},
		},
		Duration: time.Millisecond,
	})
	eventbus.Publish(ctx, events.AnalysisFinish{Errors: []error{io.EOF}})

	require.Equal(t, float64(1), testutil.ToFloat64(m.operations.WithLabelValues("accepted")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.operations.WithLabelValues("complexity_exceeded")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.operations.WithLabelValues("invalid")))
	require.Equal(t, 2, testutil.CollectAndCount(m.complexity))
}

func TestTransportMetrics(t *testing.T) {
	m := setup(t)
	ctx := context.Background()

	req := &http.Request{URL: &url.URL{Path: "/graphql"}}
	eventbus.Publish(ctx, events.HTTPFinish{Request: req, Route: "/graphql", Status: 200, Forwarded: true, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.HTTPFinish{Request: req, Route: "/graphql", Status: 200, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.GRPCServerFinish{Method: "/querycost.v1.ComplexityService/Analyze", Code: codes.OK})

	require.Equal(t, 2, testutil.CollectAndCount(m.http))
	require.Equal(t, float64(1), testutil.ToFloat64(m.grpc.WithLabelValues("/querycost.v1.ComplexityService/Analyze", "OK")))
}

func TestHandler(t *testing.T) {
	m := setup(t)
	eventbus.Publish(context.Background(), events.AnalysisFinish{
		Operations: []events.Operation{{Complexity: 3, Nodes: 2, Outcome: "accepted"}},
	})

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `querycost_operations_total{outcome="accepted"} 1`)
	require.Contains(t, rr.Body.String(), "go_goroutines")
}
