package complexity

import (
	"math"

	"github.com/vektah/gqlparser/v2/validator"
	"github.com/vektah/gqlparser/v2/validator/rules"

	language "github.com/hanpama/querycost/internal/language"
)

// Options configures Calculate.
type Options struct {
	// Query is parsed when Document is nil.
	Query    string
	Document *language.QueryDocument

	Schema        *language.Schema
	Estimators    []Estimator
	Variables     map[string]any
	MaximumNodes  int
	OperationName string
}

// Calculate validates the query with the default rules and returns its
// complexity. When the document holds several operations, the score of the
// last accepted one is returned; set OperationName to pick one. Any
// validation error, including a node limit violation, yields a
// *ValidationFailure.
func Calculate(opts Options) (float64, error) {
	if opts.Schema == nil {
		return 0, ErrNoSchema
	}
	doc := opts.Document
	if doc == nil {
		if opts.Query == "" {
			return 0, ErrNoQuery
		}
		parsed, err := language.ParseQuery(opts.Query)
		if err != nil {
			return 0, &ValidationFailure{Errors: language.ErrorList{language.AsError(err)}}
		}
		doc = parsed
	}

	var score float64
	rule, err := NewRule(Config{
		Estimators:        opts.Estimators,
		MaximumComplexity: math.MaxFloat64,
		MaximumNodes:      opts.MaximumNodes,
		Schema:            opts.Schema,
		Variables:         opts.Variables,
		OperationName:     opts.OperationName,
		OnComplete:        func(c float64) { score = c },
	})
	if err != nil {
		return 0, err
	}

	if errs := Validate(opts.Schema, doc, rule); len(errs) > 0 {
		return 0, &ValidationFailure{Errors: errs}
	}
	return score, nil
}

// Validate runs the default gqlparser rules plus extra over doc.
func Validate(s *language.Schema, doc *language.QueryDocument, extra ...validator.Rule) language.ErrorList {
	ruleSet := rules.NewDefaultRules()
	for _, r := range extra {
		ruleSet.AddRule(r.Name, r.RuleFunc)
	}
	return validator.ValidateWithRules(s, doc, ruleSet)
}
