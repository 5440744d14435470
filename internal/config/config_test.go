package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	complexity "github.com/hanpama/querycost/internal/complexity"
	schema "github.com/hanpama/querycost/internal/schema"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "querycost.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_File(t *testing.T) {
	conf, err := Load(filepath.Join("testdata", "querycost.yaml"))
	require.NoError(t, err)

	require.Equal(t, []string{"./schema"}, conf.Schema.Paths)
	require.Equal(t, "cost", conf.Schema.CostDirective)
	require.Equal(t, LimitsConfig{MaximumComplexity: 500, MaximumNodes: 2000}, conf.Limits)

	wantServer := ServerConfig{
		Addr:         ":9090",
		GRPCAddr:     ":9091",
		Timeout:      5 * time.Second,
		Pretty:       true,
		MaxBodyBytes: 1 << 20,
		CORSOrigins:  []string{"https://example.com"},
		Upstream:     "http://localhost:4000/graphql",
		Watch:        true,
	}
	if diff := cmp.Diff(wantServer, conf.Server); diff != "" {
		t.Fatalf("server config mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, conf.Estimators, 3)
	require.Equal(t, complexity.FieldCost{Value: 2, Multipliers: []string{"page.size"}}, conf.Estimators[0].Costs["User.friends"])
	require.Equal(t, LogConfig{Level: "debug", Format: "json"}, conf.Log)
	require.Equal(t, "querycost", conf.OTel.Service)
}

func TestLoad_EnvOverlay(t *testing.T) {
	t.Setenv("QUERYCOST_LIMITS_MAXIMUM_COMPLEXITY", "42")
	t.Setenv("QUERYCOST_SERVER_ADDR", ":7000")
	t.Setenv("QUERYCOST_SERVER_CORS_ORIGINS", "https://a.test,https://b.test")
	t.Setenv("QUERYCOST_OTEL_ENDPOINT", "collector:4317")
	t.Setenv("QUERYCOST_SCHEMA_PATHS", "one.graphql,two")

	conf, err := Load(filepath.Join("testdata", "querycost.yaml"))
	require.NoError(t, err)
	require.Equal(t, float64(42), conf.Limits.MaximumComplexity)
	require.Equal(t, ":7000", conf.Server.Addr)
	require.Equal(t, []string{"https://a.test", "https://b.test"}, conf.Server.CORSOrigins)
	require.Equal(t, "collector:4317", conf.OTel.Endpoint)
	require.Equal(t, []string{"one.graphql", "two"}, conf.Schema.Paths)
}

func TestLoad_Overrides(t *testing.T) {
	conf, err := Load("", func(c *Config) { c.Schema.Paths = []string{"schema.graphql"} })
	require.NoError(t, err)
	require.Equal(t, Default().Limits, conf.Limits)
	require.Equal(t, []string{"schema.graphql"}, conf.Schema.Paths)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join("testdata", "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "schema: [\n"))
		require.ErrorContains(t, err, "couldn't unmarshal config")
	})

	t.Run("every problem is reported", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
limits:
  maximumComplexity: -1
estimators:
  - kind: guess
  - kind: fieldCost
server:
  upstream: "not a url"
log:
  level: loud
`))
		require.Error(t, err)
		msg := err.Error()
		for _, want := range []string{
			"Config.Schema.Paths",
			"Config.Limits.MaximumComplexity",
			"Config.Estimators[0].Kind",
			"estimators[1]: fieldCost estimator needs costs",
			"Config.Server.Upstream",
			"Config.Log.Level",
		} {
			require.True(t, strings.Contains(msg, want), "expected %q in:\n%s", want, msg)
		}
	})
}

func TestBuild(t *testing.T) {
	conf, err := Load(filepath.Join("testdata", "querycost.yaml"))
	require.NoError(t, err)

	rule, err := conf.Rule()
	require.NoError(t, err)
	require.Len(t, rule.Estimators, 3)
	require.Equal(t, float64(500), rule.MaximumComplexity)

	s, err := schema.LoadString(conf.Schema.CostDirective, `
type Query {
  search(first: Int): [User]
  me: User @cost(value: 7)
}
type User {
  id: ID
  friends(page: Page): [User]
}
input Page { size: Int }
`)
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  float64
	}{
		{"field cost table", `{ search(first: 3) { id } }`, 10 + 3*1},
		{"dotted multiplier", `{ search(first: 1) { friends(page: {size: 4}) { id } } }`, 10 + 1*(2+4*1)},
		{"directive fallback", `{ me { id } }`, 7 + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := complexity.Calculate(complexity.Options{
				Query:      tt.query,
				Schema:     s,
				Estimators: rule.Estimators,
			})
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown kind", func(t *testing.T) {
		_, err := Build([]EstimatorConfig{{Kind: "weird"}}, "")
		require.Error(t, err)
	})
}
