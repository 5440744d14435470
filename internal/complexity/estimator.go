package complexity

import (
	"math"
	"strings"

	language "github.com/hanpama/querycost/internal/language"
	schema "github.com/hanpama/querycost/internal/schema"
)

// EstimatorArgs is the per-field input to an estimator.
type EstimatorArgs struct {
	// Schema the operation is scored against.
	Schema *language.Schema
	// Type is the composite type the field was selected on.
	Type *language.Definition
	// Field is the resolved field definition.
	Field *language.FieldDefinition
	// Node is the field as written in the query.
	Node *language.Field
	// Args holds the coerced argument values. It is empty when coercion failed.
	Args map[string]any
	// ChildComplexity is the cost of the field's own selections.
	ChildComplexity float64
}

// Estimator returns the cost of a single field. Returning ok == false passes
// the decision to the next estimator in the chain.
type Estimator func(args EstimatorArgs) (cost float64, ok bool)

// estimate runs the chain and falls back to 1 + childComplexity.
func estimate(estimators []Estimator, args EstimatorArgs) float64 {
	for _, e := range estimators {
		if e == nil {
			continue
		}
		cost, ok := e(args)
		if !ok || math.IsNaN(cost) || math.IsInf(cost, 0) {
			continue
		}
		return math.Max(cost, 0)
	}
	return saturatingAdd(1, args.ChildComplexity)
}

// Fixed assigns cost to every field on top of its child complexity. It never
// declines, so it belongs at the end of a chain; it does not account for list
// sizes.
func Fixed(cost float64) Estimator {
	return func(args EstimatorArgs) (float64, bool) {
		return saturatingAdd(cost, args.ChildComplexity), true
	}
}

// Directive reads the cost annotation declared by schema.CostDirectiveSDL
// from the field definition:
//
//	posts(limit: Int): [Post] @complexity(value: 1, multipliers: ["limit"])
//
// Fields without the directive are declined.
func Directive(name string) Estimator {
	if name == "" {
		name = schema.DefaultCostDirective
	}
	return func(args EstimatorArgs) (float64, bool) {
		if args.Field == nil {
			return 0, false
		}
		d := args.Field.Directives.ForName(name)
		if d == nil {
			return 0, false
		}
		cost, ok := directiveCost(d)
		if !ok {
			return 0, false
		}
		return cost.estimate(args), true
	}
}

func directiveCost(d *language.Directive) (FieldCost, bool) {
	var fc FieldCost
	valueArg := d.Arguments.ForName("value")
	if valueArg == nil || valueArg.Value == nil {
		return fc, false
	}
	v, err := valueArg.Value.Value(nil)
	if err != nil {
		return fc, false
	}
	n, ok := toFloat(v)
	if !ok {
		return fc, false
	}
	fc.Value = n
	if m := d.Arguments.ForName("multipliers"); m != nil && m.Value != nil {
		switch m.Value.Kind {
		case language.StringValue, language.BlockValue:
			// A single value coerces to a one-element list.
			fc.Multipliers = append(fc.Multipliers, m.Value.Raw)
		case language.ListValue:
			for _, child := range m.Value.Children {
				if child.Value != nil {
					fc.Multipliers = append(fc.Multipliers, child.Value.Raw)
				}
			}
		}
	}
	return fc, true
}

// FieldCost is cost metadata attached to a single field.
type FieldCost struct {
	// Value is the base cost of the field.
	Value float64 `yaml:"value" json:"value"`
	// Multipliers name the arguments whose values scale the child complexity.
	// Dotted paths reach into input objects ("page.first").
	Multipliers []string `yaml:"multipliers,omitempty" json:"multipliers,omitempty"`
}

func (fc FieldCost) estimate(args EstimatorArgs) float64 {
	return saturatingAdd(fc.Value, saturatingMul(multiplier(args.Args, fc.Multipliers), args.ChildComplexity))
}

// FieldCosts looks fields up by "Type.field" in costs, where Type is the
// composite type the field was selected on. Fields without an entry are
// declined.
func FieldCosts(costs map[string]FieldCost) Estimator {
	return func(args EstimatorArgs) (float64, bool) {
		if args.Type == nil || args.Field == nil {
			return 0, false
		}
		fc, ok := costs[args.Type.Name+"."+args.Field.Name]
		if !ok {
			return 0, false
		}
		return fc.estimate(args), true
	}
}

// multiplier is the product of the named argument values. Lists count their
// length; missing and non-numeric values count as 1.
func multiplier(args map[string]any, names []string) float64 {
	product := 1.0
	for _, name := range names {
		v, ok := lookupPath(args, name)
		if !ok {
			continue
		}
		switch tv := v.(type) {
		case []any:
			product = saturatingMul(product, float64(len(tv)))
		default:
			if n, ok := toFloat(tv); ok {
				product = saturatingMul(product, n)
			}
		}
	}
	return product
}

func lookupPath(args map[string]any, path string) (any, bool) {
	var cur any = args
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// saturatingAdd and saturatingMul clamp at math.MaxFloat64 so an oversized
// multiplier cannot overflow into +Inf and be mistaken for "no opinion".
func saturatingAdd(a, b float64) float64 {
	s := a + b
	if math.IsInf(s, 1) {
		return math.MaxFloat64
	}
	return s
}

func saturatingMul(a, b float64) float64 {
	p := a * b
	if math.IsInf(p, 1) {
		return math.MaxFloat64
	}
	if math.IsNaN(p) {
		return 0
	}
	return p
}
