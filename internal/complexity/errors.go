package complexity

import (
	"errors"
	"strings"

	language "github.com/hanpama/querycost/internal/language"
)

// Error codes set in the "code" extension of reported errors.
const (
	CodeComplexityExceeded = "QUERY_COMPLEXITY_EXCEEDED"
	CodeNodeLimitExceeded  = "QUERY_NODE_LIMIT_EXCEEDED"
	CodeInvalidVariables   = "BAD_USER_INPUT"
)

var (
	ErrNoEstimators             = errors.New("complexity: at least one estimator is required")
	ErrInvalidMaximumComplexity = errors.New("complexity: maximum complexity must be a finite number greater than zero")
	ErrInvalidMaximumNodes      = errors.New("complexity: maximum nodes must be greater than zero")
	ErrNoSchema                 = errors.New("complexity: schema is required")
	ErrNoQuery                  = errors.New("complexity: query text or document is required")
)

// ValidationFailure is returned by Calculate when the document fails any
// validation rule, the complexity rule included.
type ValidationFailure struct {
	Errors language.ErrorList
}

func (f *ValidationFailure) Error() string {
	msgs := make([]string, 0, len(f.Errors))
	for _, e := range f.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "\n")
}

func (f *ValidationFailure) Unwrap() []error {
	errs := make([]error, len(f.Errors))
	for i, e := range f.Errors {
		errs[i] = e
	}
	return errs
}

// Code returns the "code" extension of err, or "".
func Code(err *language.Error) string {
	if err == nil || err.Extensions == nil {
		return ""
	}
	code, _ := err.Extensions["code"].(string)
	return code
}
