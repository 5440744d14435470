package protoreg

import (
	"testing"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"github.com/stretchr/testify/require"
)

func TestComment(t *testing.T) {
	require.Equal(t, protobuilder.Comments{}, comment(""))
	require.Equal(t, protobuilder.Comments{}, comment("\n"))
	require.Equal(t, " one\n", comment("one\n").LeadingComment)
	require.Equal(t, " one\n\n two\n", comment("one\n\ntwo").LeadingComment)
}
