package complexity

import (
	"fmt"
	"math"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/vektah/gqlparser/v2/validator"
	"github.com/vektah/gqlparser/v2/validator/core"

	language "github.com/hanpama/querycost/internal/language"
	schema "github.com/hanpama/querycost/internal/schema"
)

// RuleName identifies errors reported by the complexity rule.
const RuleName = "QueryComplexity"

// DefaultMaximumNodes bounds the selections visited per operation when
// Config.MaximumNodes is zero.
const DefaultMaximumNodes = 10000

// Config configures NewRule.
type Config struct {
	// Estimators are tried in order for every field. Required.
	Estimators []Estimator
	// MaximumComplexity is the highest accepted score. Required.
	MaximumComplexity float64
	// MaximumNodes bounds the selections visited per operation.
	// Defaults to DefaultMaximumNodes.
	MaximumNodes int

	// Schema overrides the schema the validator runs with.
	Schema *language.Schema
	// Variables are the raw request variables.
	Variables map[string]any
	// OperationName restricts scoring to one operation of the document.
	OperationName string

	// OnComplete receives the score of every accepted operation.
	OnComplete func(complexity float64)
	// OnOperation receives the statistics of every scored operation,
	// accepted or not.
	OnOperation func(OperationStats)
	// CreateError builds the error reported when the complexity limit is
	// exceeded. Position and code are filled in when left empty.
	CreateError func(maximum, actual float64) *language.Error
}

// Outcome classifies a scored operation.
type Outcome string

const (
	OutcomeAccepted           Outcome = "accepted"
	OutcomeComplexityExceeded Outcome = "complexity_exceeded"
	OutcomeNodeLimitExceeded  Outcome = "node_limit_exceeded"
	OutcomeInvalidVariables   Outcome = "invalid_variables"
)

// OperationStats describes one scored operation.
type OperationStats struct {
	Name              string
	Operation         language.Operation
	Complexity        float64
	Nodes             int
	MaximumComplexity float64
	MaximumNodes      int
	Outcome           Outcome
}

func (c *Config) validate() error {
	var result *multierror.Error
	if len(c.Estimators) == 0 {
		result = multierror.Append(result, ErrNoEstimators)
	}
	if math.IsNaN(c.MaximumComplexity) || math.IsInf(c.MaximumComplexity, 0) || c.MaximumComplexity <= 0 {
		result = multierror.Append(result, ErrInvalidMaximumComplexity)
	}
	if c.MaximumNodes < 0 {
		result = multierror.Append(result, ErrInvalidMaximumNodes)
	}
	return result.ErrorOrNil()
}

// NewRule returns a validator rule scoring each operation of a document.
// Every validation run gets its own state, so the rule may be reused across
// documents. Configuration problems are reported here, before any query.
func NewRule(cfg Config) (validator.Rule, error) {
	if err := cfg.validate(); err != nil {
		return validator.Rule{}, err
	}
	if cfg.MaximumNodes == 0 {
		cfg.MaximumNodes = DefaultMaximumNodes
	}
	estimators := append([]Estimator(nil), cfg.Estimators...)

	return validator.Rule{
		Name: RuleName,
		RuleFunc: func(observers *validator.Events, addError validator.AddErrFunc) {
			// reported closes the document: after the first error no other
			// operation reports or completes.
			reported := false

			observers.OnOperation(func(walker *validator.Walker, op *language.OperationDefinition) {
				if reported {
					return
				}
				if cfg.OperationName != "" && op.Name != cfg.OperationName {
					return
				}

				s := cfg.Schema
				if s == nil {
					s = walker.Schema
				}
				stats := OperationStats{
					Name:              op.Name,
					Operation:         op.Operation,
					MaximumComplexity: cfg.MaximumComplexity,
					MaximumNodes:      cfg.MaximumNodes,
				}

				variables, err := schema.CoerceVariableValues(s, op, cfg.Variables)
				if err != nil {
					reported = true
					stats.Outcome = OutcomeInvalidVariables
					addError(
						validator.Message("%s", err.Error()),
						core.At(op.Position),
						withExtensions(map[string]any{"code": CodeInvalidVariables}),
					)
					cfg.notify(stats)
					return
				}

				if root := schema.RootType(s, op.Operation); root != nil {
					var fragments language.FragmentDefinitionList
					if walker.Document != nil {
						fragments = walker.Document.Fragments
					}
					calc := newCalculator(s, fragments, variables, estimators)
					stats.Complexity = calc.selectionSet(op.SelectionSet, root)
					stats.Nodes = calc.nodes
				}

				switch {
				case stats.Nodes > cfg.MaximumNodes:
					reported = true
					stats.Outcome = OutcomeNodeLimitExceeded
					addError(
						validator.Message("Query exceeds the maximum allowed number of nodes. Maximum: %d, actual: %d", cfg.MaximumNodes, stats.Nodes),
						core.At(op.Position),
						withExtensions(map[string]any{
							"code":         CodeNodeLimitExceeded,
							"nodes":        stats.Nodes,
							"maximumNodes": cfg.MaximumNodes,
						}),
					)
				case stats.Complexity > cfg.MaximumComplexity:
					reported = true
					stats.Outcome = OutcomeComplexityExceeded
					addError(cfg.complexityError(op, stats.Complexity))
				default:
					stats.Outcome = OutcomeAccepted
				}

				cfg.notify(stats)
				if stats.Outcome == OutcomeAccepted && cfg.OnComplete != nil {
					cfg.OnComplete(stats.Complexity)
				}
			})
		},
	}, nil
}

func (c *Config) notify(stats OperationStats) {
	if c.OnOperation != nil {
		c.OnOperation(stats)
	}
}

func (c *Config) complexityError(op *language.OperationDefinition, actual float64) validator.ErrorOption {
	ext := map[string]any{
		"code":              CodeComplexityExceeded,
		"complexity":        actual,
		"maximumComplexity": c.MaximumComplexity,
	}
	if c.CreateError == nil {
		return func(err *language.Error) {
			err.Message = fmt.Sprintf("The query exceeds the maximum complexity of %s. Actual complexity is %s",
				formatScore(c.MaximumComplexity), formatScore(actual))
			core.At(op.Position)(err)
			withExtensions(ext)(err)
		}
	}
	custom := c.CreateError(c.MaximumComplexity, actual)
	return func(err *language.Error) {
		rule := err.Rule
		if custom != nil {
			*err = *custom
		}
		err.Rule = rule
		if err.Message == "" {
			err.Message = "Query is too complex"
		}
		if len(err.Locations) == 0 {
			core.At(op.Position)(err)
		}
		if Code(err) == "" {
			withExtensions(ext)(err)
		}
	}
}

// withExtensions merges ext into the error's extensions.
func withExtensions(ext map[string]any) validator.ErrorOption {
	return func(err *language.Error) {
		if err.Extensions == nil {
			err.Extensions = make(map[string]any, len(ext))
		}
		for k, v := range ext {
			err.Extensions[k] = v
		}
	}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
