package complexity

import (
	"github.com/vektah/gqlparser/v2/ast"

	language "github.com/hanpama/querycost/internal/language"
	schema "github.com/hanpama/querycost/internal/schema"
)

// conditionArgs is used when the schema carries no skip/include definition.
var conditionArgs = language.ArgumentDefinitionList{
	{Name: "if", Type: ast.NonNullNamedType("Boolean", nil)},
}

// isExcluded reports whether @skip or @include removes the node.
func (c *calculator) isExcluded(directives language.DirectiveList) bool {
	if len(directives) == 0 {
		return false
	}
	if skip := directives.ForName("skip"); skip != nil {
		if v, ok := c.condition(skip); ok && v {
			return true
		}
	}
	if include := directives.ForName("include"); include != nil {
		if v, ok := c.condition(include); ok && !v {
			return true
		}
	}
	return false
}

// condition coerces the "if" argument. ok is false when it cannot be
// coerced, in which case the directive is ignored.
func (c *calculator) condition(d *language.Directive) (value bool, ok bool) {
	defs := conditionArgs
	if c.schema != nil {
		if def := c.schema.Directives[d.Name]; def != nil && len(def.Arguments) > 0 {
			defs = def.Arguments
		}
	}
	args, err := schema.CoerceArgumentValues(c.schema, defs, d.Arguments, c.variables)
	if err != nil {
		return false, false
	}
	value, ok = args["if"].(bool)
	return value, ok
}
