package schema

import "fmt"

// DefaultCostDirective is the directive name read by the directive estimator
// unless configured otherwise.
const DefaultCostDirective = "complexity"

// CostDirectiveSDL declares the cost annotation:
//
//	directive @complexity(value: Int!, multipliers: [String!]) on FIELD_DEFINITION
func CostDirectiveSDL(name string) string {
	if name == "" {
		name = DefaultCostDirective
	}
	return fmt.Sprintf(`"""
Declares the cost of resolving a field. The cost is value plus the product of
the named multiplier arguments times the cost of the field's selections.
"""
directive @%s(value: Int!, multipliers: [String!]) on FIELD_DEFINITION
`, name)
}
