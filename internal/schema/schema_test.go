package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	language "github.com/hanpama/querycost/internal/language"
)

func mustLoadTestdata(t *testing.T) *language.Schema {
	t.Helper()
	s, err := LoadFiles(context.Background(), "", "testdata")
	require.NoError(t, err, "failed to load testdata schema")
	return s
}

func mustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)
	return string(content)
}

func TestDiscoverFiles(t *testing.T) {
	files, err := DiscoverFiles(context.Background(), "testdata")
	require.NoError(t, err)

	want := []string{
		filepath.Join("testdata", "base.graphql"),
		filepath.Join("testdata", "nested", "reviews.graphql"),
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Fatalf("discovered files mismatch (-want +got):\n%s", diff)
	}

	t.Run("single file path", func(t *testing.T) {
		p := filepath.Join("testdata", "base.graphql")
		files, err := DiscoverFiles(context.Background(), p)
		require.NoError(t, err)
		require.Equal(t, []string{p}, files)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := DiscoverFiles(context.Background(), filepath.Join("testdata", "absent"))
		require.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	t.Run("files are merged with extensions", func(t *testing.T) {
		s := mustLoadTestdata(t)
		require.NotNil(t, s.Query.Fields.ForName("search"))
		require.NotNil(t, s.Types["Review"])
		require.Nil(t, s.Types["Ignored"])
		require.NotNil(t, s.Directives[DefaultCostDirective])
	})

	t.Run("custom cost directive name", func(t *testing.T) {
		s, err := LoadString("cost", `type Query { a: Int @cost(value: 3) }`)
		require.NoError(t, err)
		require.NotNil(t, s.Directives["cost"])
		require.Nil(t, s.Directives[DefaultCostDirective])
	})

	t.Run("declared directive is not redeclared", func(t *testing.T) {
		s, err := LoadString("", `
directive @complexity(value: Int!) on FIELD_DEFINITION
type Query { a: Int @complexity(value: 3) }
`)
		require.NoError(t, err)
		require.Len(t, s.Directives[DefaultCostDirective].Arguments, 1)
	})

	t.Run("invalid SDL", func(t *testing.T) {
		_, err := LoadString("", `type Query { a: Missing }`)
		require.Error(t, err)
	})

	t.Run("no sources", func(t *testing.T) {
		_, err := Load("")
		require.Error(t, err)
	})

	t.Run("directory without schema files", func(t *testing.T) {
		_, err := LoadFiles(context.Background(), "", t.TempDir())
		require.Error(t, err)
	})
}

func TestFieldDefinition(t *testing.T) {
	s := mustLoadTestdata(t)
	product := s.Types["Product"]
	hit := s.Types["SearchHit"]

	tests := []struct {
		name   string
		parent *language.Definition
		field  string
		want   string // type of the resolved field, "" for none
	}{
		{"object field", product, "name", "String!"},
		{"typename on object", product, "__typename", "String!"},
		{"typename on union", hit, "__typename", "String!"},
		{"schema on query root", s.Query, "__schema", "__Schema!"},
		{"type on query root", s.Query, "__type", "__Type"},
		{"schema below root", product, "__schema", ""},
		{"unknown field", product, "nope", ""},
		{"scalar parent", s.Types["Money"], "__typename", ""},
		{"nil parent", nil, "id", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := FieldDefinition(s, tt.parent, tt.field)
			if tt.want == "" {
				require.Nil(t, def)
				return
			}
			require.NotNil(t, def)
			require.Equal(t, tt.want, def.Type.String())
		})
	}
}

func TestRootTypeAndPossibleTypes(t *testing.T) {
	s := mustLoadTestdata(t)

	require.Equal(t, "Query", RootType(s, "").Name)
	require.Equal(t, "Query", RootType(s, language.Query).Name)
	require.Nil(t, RootType(s, language.Mutation))
	require.Nil(t, RootType(nil, language.Query))

	require.ElementsMatch(t, []string{"Product", "Review"}, PossibleTypeNames(s, s.Types["SearchHit"]))
	require.ElementsMatch(t, []string{"Product", "Review"}, PossibleTypeNames(s, s.Types["Node"]))
	require.Equal(t, []string{"Product"}, PossibleTypeNames(s, s.Types["Product"]))
	require.True(t, IsAbstract(s.Types["Node"]))
	require.False(t, IsAbstract(s.Types["Product"]))
}

func TestSchemaRenderSnapshot(t *testing.T) {
	s := mustLoadTestdata(t)
	actual := Render(s)

	snapshotPath := filepath.Join("testdata", "schema_rendered.graphql.snap")

	// If snapshot doesn't exist, create it
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		err := os.WriteFile(snapshotPath, []byte(actual), 0644)
		require.NoError(t, err, "failed to write snapshot file")
		t.Logf("Created snapshot file: %s", snapshotPath)
		return
	}

	expected := mustReadFile(t, snapshotPath)
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Errorf("Rendered schema snapshot mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: rendered SDL loads back into an equivalent schema
func TestRenderRoundTrip(t *testing.T) {
	s := mustLoadTestdata(t)
	rendered := Render(s)

	reloaded, err := LoadString("", rendered)
	require.NoError(t, err, "rendered SDL must load:\n%s", rendered)
	if diff := cmp.Diff(rendered, Render(reloaded)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	products := reloaded.Query.Fields.ForName("products")
	require.NotNil(t, products)
	d := products.Directives.ForName(DefaultCostDirective)
	require.NotNil(t, d)
	require.Equal(t, "1", d.Arguments.ForName("value").Value.String())
	require.Equal(t, "10", products.Arguments.ForName("first").DefaultValue.String())
}

func TestCostDirectiveSDL(t *testing.T) {
	sdl := CostDirectiveSDL("")
	require.Contains(t, sdl, "directive @complexity(value: Int!, multipliers: [String!]) on FIELD_DEFINITION")
	require.Contains(t, CostDirectiveSDL("weight"), "directive @weight(")
}
