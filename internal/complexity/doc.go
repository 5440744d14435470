// Package complexity estimates the cost of a GraphQL operation before it runs.
//
// # Overview
//
// The calculator walks an operation's selection set depth-first against the
// schema and assigns every field a cost through an ordered chain of
// estimators. A field's estimator sees the cost of the field's own
// selections ("child complexity"), so list-multiplying fields can scale what
// they contain.
//
// # Traversal
//
// For every selection, in document order:
//  1. The node counter is incremented.
//  2. @skip and @include are evaluated against the coerced variables. An
//     excluded selection contributes nothing further.
//  3. Fields resolve their definition on the current composite type, coerce
//     their arguments and recurse into their selections under the field's
//     named return type. Fields that cannot be resolved cost 1.
//     Inline fragments recurse under their type condition or the current
//     type. Fragment spreads recurse under the fragment's type condition
//     unless the fragment is already being expanded further up the path.
//
// Fragments on the active expansion path are tracked as a stack, not as a
// global "seen" set: the same fragment used in two sibling branches is costed
// in both, while a self-referential chain stops at the first repetition.
//
// # Estimators
//
// Estimators are tried in order and the first finite result is the field's
// cost, with negative results clamped to 0. If every estimator declines the
// cost is 1 + childComplexity. Fixed, Directive and FieldCosts cover the common cases.
//
// # Validation
//
// NewRule packages the calculator as a gqlparser validator.Rule that scores
// each operation once, after the validator has walked it, and reports
// QUERY_NODE_LIMIT_EXCEEDED or QUERY_COMPLEXITY_EXCEEDED errors. Calculate is
// the standalone entry point: it parses, runs the default validation rules
// together with the complexity rule and returns the score.
package complexity
