package protoreg_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	analyzer "github.com/hanpama/querycost/internal/analyzer"
	complexity "github.com/hanpama/querycost/internal/complexity"
	language "github.com/hanpama/querycost/internal/language"
	"github.com/hanpama/querycost/internal/protoreg"
)

func buildTestRegistry(t *testing.T) *protoreg.Registry {
	t.Helper()
	reg, err := protoreg.Build()
	require.NoError(t, err)
	return reg
}

func TestBuild(t *testing.T) {
	reg := buildTestRegistry(t)

	require.Equal(t, protoreg.FilePath, reg.File().Path())
	require.Equal(t, protoreflect.FullName("querycost.v1.ComplexityService"), reg.Service().FullName())
	require.Equal(t, "/querycost.v1.ComplexityService/Analyze", protoreg.FullMethod(reg.Analyze()))
	require.Equal(t, protoreflect.FullName("querycost.v1.AnalyzeRequest"), reg.Analyze().Input().FullName())
	require.Equal(t, protoreflect.FullName("querycost.v1.AnalyzeResponse"), reg.Analyze().Output().FullName())

	tests := []struct {
		message string
		field   protoreflect.Name
		kind    protoreflect.Kind
		list    bool
	}{
		{"AnalyzeRequest", "query", protoreflect.StringKind, false},
		{"AnalyzeRequest", "operation_name", protoreflect.StringKind, false},
		{"AnalyzeRequest", "variables", protoreflect.StringKind, false},
		{"AnalyzeResponse", "accepted", protoreflect.BoolKind, false},
		{"AnalyzeResponse", "maximum_complexity", protoreflect.DoubleKind, false},
		{"AnalyzeResponse", "operations", protoreflect.MessageKind, true},
		{"AnalyzeResponse", "errors", protoreflect.MessageKind, true},
		{"OperationStats", "outcome", protoreflect.EnumKind, false},
		{"OperationStats", "nodes", protoreflect.Int32Kind, false},
		{"Error", "locations", protoreflect.MessageKind, true},
	}
	for _, tt := range tests {
		t.Run(tt.message+"."+string(tt.field), func(t *testing.T) {
			md := reg.File().Messages().ByName(protoreflect.Name(tt.message))
			require.NotNil(t, md)
			fd := md.Fields().ByName(tt.field)
			require.NotNil(t, fd)
			require.Equal(t, tt.kind, fd.Kind())
			require.Equal(t, tt.list, fd.IsList())
		})
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	a := buildTestRegistry(t)
	b := buildTestRegistry(t)

	var pa, pb bytes.Buffer
	require.NoError(t, protoreg.Print(a, &pa))
	require.NoError(t, protoreg.Print(b, &pb))
	if diff := cmp.Diff(pa.String(), pb.String()); diff != "" {
		t.Errorf("printed proto mismatch (-want +got):\n%s", diff)
	}

	for _, o := range []complexity.Outcome{
		complexity.OutcomeAccepted,
		complexity.OutcomeComplexityExceeded,
		complexity.OutcomeNodeLimitExceeded,
		complexity.OutcomeInvalidVariables,
	} {
		n := a.OutcomeNumber(o)
		require.NotZero(t, n, o)
		require.Equal(t, n, b.OutcomeNumber(o))
		require.Equal(t, o, a.Outcome(n))
	}
	require.Zero(t, a.OutcomeNumber("unknown"))
}

func TestPrintAndRender(t *testing.T) {
	reg := buildTestRegistry(t)

	var buf bytes.Buffer
	require.NoError(t, protoreg.Print(reg, &buf))
	out := buf.String()
	require.Contains(t, out, "package querycost.v1;")
	require.Contains(t, out, "service ComplexityService")
	require.Contains(t, out, "rpc Analyze")
	require.Contains(t, out, "OUTCOME_COMPLEXITY_EXCEEDED")

	dir := t.TempDir()
	require.NoError(t, protoreg.Render(reg, dir))
	written, err := os.ReadFile(filepath.Join(dir, protoreg.FilePath))
	require.NoError(t, err)
	require.Equal(t, out, string(written))
}

func TestRequestRoundTrip(t *testing.T) {
	reg := buildTestRegistry(t)

	req := analyzer.Request{
		Query:         "query Q($n: Int) { items(first: $n) { id } }",
		OperationName: "Q",
		Variables:     map[string]any{"n": float64(3)},
	}
	msg, err := reg.EncodeRequest(req)
	require.NoError(t, err)

	// Through the wire format, as the gRPC codec would.
	b, err := proto.Marshal(msg)
	require.NoError(t, err)
	in := dynamicpb.NewMessage(reg.Analyze().Input())
	require.NoError(t, proto.Unmarshal(b, in))

	got, err := reg.DecodeRequest(in)
	require.NoError(t, err)
	if diff := cmp.Diff(req, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}

	t.Run("invalid variables", func(t *testing.T) {
		bad := dynamicpb.NewMessage(reg.Analyze().Input())
		bad.Set(bad.Descriptor().Fields().ByName("variables"), protoreflect.ValueOfString("[1,2]"))
		_, err := reg.DecodeRequest(bad)
		require.Error(t, err)
	})
}

func TestReportRoundTrip(t *testing.T) {
	reg := buildTestRegistry(t)

	res := &analyzer.Result{
		Operations: []complexity.OperationStats{
			{Name: "A", Operation: "query", Complexity: 3, Nodes: 2, Outcome: complexity.OutcomeAccepted},
			{Name: "B", Operation: "query", Complexity: 41, Nodes: 2, Outcome: complexity.OutcomeComplexityExceeded},
		},
		Errors: language.ErrorList{{
			Message:    "The query exceeds the maximum complexity of 20. Actual complexity is 41",
			Rule:       complexity.RuleName,
			Locations:  []gqlerror.Location{{Line: 1, Column: 30}},
			Extensions: map[string]any{"code": complexity.CodeComplexityExceeded},
		}},
	}
	want := protoreg.NewReport(res, 20)
	require.False(t, want.Accepted)
	require.Equal(t, float64(41), want.Complexity)
	require.Equal(t, complexity.CodeComplexityExceeded, want.Errors[0].Code)

	b, err := proto.Marshal(reg.EncodeReport(want))
	require.NoError(t, err)
	out := dynamicpb.NewMessage(reg.Analyze().Output())
	require.NoError(t, proto.Unmarshal(b, out))

	if diff := cmp.Diff(want, reg.DecodeReport(out)); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}
