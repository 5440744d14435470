package complexity

import (
	language "github.com/hanpama/querycost/internal/language"
	schema "github.com/hanpama/querycost/internal/schema"
)

// calculator holds the running state of one operation's traversal.
type calculator struct {
	schema     *language.Schema
	variables  map[string]any
	estimators []Estimator
	fragments  *fragmentResolver

	// nodes counts every selection visited, excluded ones included.
	nodes int
}

func newCalculator(s *language.Schema, fragments language.FragmentDefinitionList, variables map[string]any, estimators []Estimator) *calculator {
	if variables == nil {
		variables = map[string]any{}
	}
	return &calculator{
		schema:     s,
		variables:  variables,
		estimators: estimators,
		fragments:  newFragmentResolver(fragments),
	}
}

// selectionSet returns the complexity of selections resolved against parent.
// parent may be nil when the enclosing type is unknown.
func (c *calculator) selectionSet(selections language.SelectionSet, parent *language.Definition) float64 {
	var total float64
	for _, selection := range selections {
		c.nodes++

		switch sel := selection.(type) {
		case *language.Field:
			if c.isExcluded(sel.Directives) {
				continue
			}
			total = saturatingAdd(total, c.field(sel, parent))

		case *language.InlineFragment:
			if c.isExcluded(sel.Directives) {
				continue
			}
			typ := parent
			if sel.TypeCondition != "" {
				typ = schema.TypeByName(c.schema, sel.TypeCondition)
			}
			total = saturatingAdd(total, c.selectionSet(sel.SelectionSet, typ))

		case *language.FragmentSpread:
			if c.isExcluded(sel.Directives) {
				continue
			}
			total = saturatingAdd(total, c.fragmentSpread(sel))
		}
	}
	return total
}

func (c *calculator) field(node *language.Field, parent *language.Definition) float64 {
	def := schema.FieldDefinition(c.schema, parent, node.Name)
	if def == nil {
		return 1
	}

	args, err := schema.CoerceArgumentValues(c.schema, def.Arguments, node.Arguments, c.variables)
	if err != nil {
		args = map[string]any{}
	}

	var child float64
	if len(node.SelectionSet) > 0 {
		child = c.selectionSet(node.SelectionSet, schema.NamedType(c.schema, def.Type))
	}

	return estimate(c.estimators, EstimatorArgs{
		Schema:          c.schema,
		Type:            parent,
		Field:           def,
		Node:            node,
		Args:            args,
		ChildComplexity: child,
	})
}

func (c *calculator) fragmentSpread(spread *language.FragmentSpread) float64 {
	frag := c.fragments.lookup(spread.Name)
	if frag == nil {
		return 0
	}
	leave, ok := c.fragments.enter(spread.Name)
	if !ok {
		return 0
	}
	defer leave()
	return c.selectionSet(frag.SelectionSet, schema.TypeByName(c.schema, frag.TypeCondition))
}
