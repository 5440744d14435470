package protoreg

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jhump/protoreflect/v2/protobuilder"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func fieldBuilders(names ...string) []*protobuilder.FieldBuilder {
	out := make([]*protobuilder.FieldBuilder, len(names))
	for i, n := range names {
		out[i] = protobuilder.NewField(protoreflect.Name(n), protobuilder.FieldTypeScalar(protoreflect.StringKind))
	}
	return out
}

func TestAllocateFieldNumbers(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  []protoreflect.FieldNumber
	}{
		{
			name:  "hash of the name",
			names: []string{"id", "name"},
			want:  []protoreflect.FieldNumber{23236, 29928},
		},
		{
			name:  "reserved range is skipped",
			names: []string{"f53"},
			want:  []protoreflect.FieldNumber{20000},
		},
		{
			name:  "collision moves the later name up",
			names: []string{"f680", "f423"},
			want:  []protoreflect.FieldNumber{27838, 27837},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := fieldBuilders(tt.names...)
			require.NoError(t, allocateFieldNumbers(fields))
			got := make([]protoreflect.FieldNumber, len(fields))
			for i, fb := range fields {
				got[i] = fb.Number()
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("numbers mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAllocateEnumValueNumbers(t *testing.T) {
	values := []*protobuilder.EnumValueBuilder{
		protobuilder.NewEnumValue("OUTCOME_B"),
		protobuilder.NewEnumValue("OUTCOME_A"),
	}
	require.NoError(t, allocateEnumValueNumbers(values))
	for _, v := range values {
		require.NotZero(t, v.Number())
		require.False(t, v.Number() >= reservedFirst && v.Number() <= reservedLast)
	}
	require.NotEqual(t, values[0].Number(), values[1].Number())
}
