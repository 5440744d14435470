package grpctp

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	analyzer "github.com/hanpama/querycost/internal/analyzer"
	complexity "github.com/hanpama/querycost/internal/complexity"
	grpcrt "github.com/hanpama/querycost/internal/grpcrt"
	protoreg "github.com/hanpama/querycost/internal/protoreg"
)

func TestClientAnalyze(t *testing.T) {
	reg, err := protoreg.Build()
	require.NoError(t, err)

	want := protoreg.Report{
		Accepted:          true,
		Complexity:        4,
		MaximumComplexity: 100,
		Operations: []protoreg.OperationReport{
			{Name: "Q", Operation: "query", Complexity: 4, Nodes: 3, Outcome: complexity.OutcomeAccepted},
		},
	}
	mt := grpcrt.NewMockTransport(reg.EncodeReport(want))
	c := NewClient(mt, reg)

	got, err := c.Analyze(context.Background(), analyzer.Request{Query: "query Q { a }", OperationName: "Q"})
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	calls := mt.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "/querycost.v1.ComplexityService/Analyze", calls[0].FullMethod)
	sent, err := reg.DecodeRequest(calls[0].Request.ProtoReflect())
	require.NoError(t, err)
	require.Equal(t, analyzer.Request{Query: "query Q { a }", OperationName: "Q"}, sent)
}

func TestClientAnalyzeError(t *testing.T) {
	reg, err := protoreg.Build()
	require.NoError(t, err)

	boom := errors.New("boom")
	mt := grpcrt.NewMockTransportWithErrors([]protoreflect.Message{nil}, []error{boom})
	_, err = NewClient(mt, reg).Analyze(context.Background(), analyzer.Request{Query: "{ a }"})
	require.ErrorIs(t, err, boom)
}

func TestTransportErrors(t *testing.T) {
	reg, err := protoreg.Build()
	require.NoError(t, err)
	msg, err := reg.EncodeRequest(analyzer.Request{Query: "{ a }"})
	require.NoError(t, err)

	t.Run("no endpoint", func(t *testing.T) {
		_, err := New().Call(context.Background(), reg.Analyze(), msg)
		require.ErrorIs(t, err, ErrNoEndpoint)
	})

	t.Run("closed", func(t *testing.T) {
		tp := New(WithEndpoint("localhost:1"))
		require.NoError(t, tp.Close())
		require.NoError(t, tp.Close())
		_, err := tp.Call(context.Background(), reg.Analyze(), msg)
		require.ErrorIs(t, err, ErrClosed)
	})
}
