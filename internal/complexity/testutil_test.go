package complexity

import (
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/hanpama/querycost/internal/language"
	schema "github.com/hanpama/querycost/internal/schema"
)

const testSDL = `
type Query {
  user(id: ID): User
  users(limit: Int): [User] @complexity(value: 2, multipliers: ["limit"])
  feed(limit: Int): [Post] @complexity(value: 1, multipliers: "limit")
  search(filter: SearchFilter): [SearchResult] @complexity(value: 1, multipliers: ["filter.first", "filter.ids"])
  node: Node
}

type Mutation {
  rename(id: ID!, name: String!): User
}

interface Node {
  id: ID!
}

type User implements Node {
  id: ID!
  name: String
  role: Role
  posts(limit: Int): [Post]
}

type Post implements Node {
  id: ID!
  title: String
  author: User
}

union SearchResult = User | Post

enum Role { ADMIN MEMBER }

input SearchFilter {
  first: Int
  ids: [ID!]
  role: Role = MEMBER
}
`

func mustLoadSchema(t *testing.T, sdl string) *language.Schema {
	t.Helper()
	s, err := schema.LoadString("", sdl)
	require.NoError(t, err)
	return s
}

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

// score runs the calculator over the first operation without validation.
func score(t *testing.T, s *language.Schema, query string, vars map[string]any, estimators ...Estimator) (float64, int) {
	t.Helper()
	doc := mustParseQuery(t, query)
	require.NotEmpty(t, doc.Operations)
	op := doc.Operations[0]
	calc := newCalculator(s, doc.Fragments, vars, estimators)
	got := calc.selectionSet(op.SelectionSet, schema.RootType(s, op.Operation))
	return got, calc.nodes
}

func decline(EstimatorArgs) (float64, bool) { return 0, false }
