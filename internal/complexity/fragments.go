package complexity

import (
	language "github.com/hanpama/querycost/internal/language"
)

// fragmentResolver looks fragments up by name and tracks which of them are
// being expanded on the current path.
type fragmentResolver struct {
	table     language.FragmentDefinitionList
	expanding map[string]struct{}
}

func newFragmentResolver(table language.FragmentDefinitionList) *fragmentResolver {
	return &fragmentResolver{table: table, expanding: make(map[string]struct{})}
}

func (r *fragmentResolver) lookup(name string) *language.FragmentDefinition {
	return r.table.ForName(name)
}

// enter marks name as being expanded. It returns false when name is already
// on the path; otherwise the caller must call the returned leave.
func (r *fragmentResolver) enter(name string) (leave func(), ok bool) {
	if _, active := r.expanding[name]; active {
		return nil, false
	}
	r.expanding[name] = struct{}{}
	return func() { delete(r.expanding, name) }, true
}
