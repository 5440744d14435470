// Package analyzer scores GraphQL requests against the current schema. It is
// shared by the HTTP server, the gRPC service and the command line.
package analyzer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	complexity "github.com/hanpama/querycost/internal/complexity"
	eventbus "github.com/hanpama/querycost/internal/eventbus"
	events "github.com/hanpama/querycost/internal/events"
	language "github.com/hanpama/querycost/internal/language"
	logging "github.com/hanpama/querycost/internal/logging"
	reqid "github.com/hanpama/querycost/internal/reqid"
)

// Request is one GraphQL request to analyze.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Result is the outcome of analyzing a request. Errors holds every
// validation error, complexity and node limit violations included.
type Result struct {
	Operations []complexity.OperationStats
	Errors     language.ErrorList
	Duration   time.Duration
}

// Accepted reports whether the request passed every rule.
func (r *Result) Accepted() bool { return len(r.Errors) == 0 }

// Complexity returns the highest score among the analyzed operations.
func (r *Result) Complexity() float64 {
	var highest float64
	for _, op := range r.Operations {
		if op.Complexity > highest {
			highest = op.Complexity
		}
	}
	return highest
}

// Nodes returns the largest node count among the analyzed operations.
func (r *Result) Nodes() int {
	var highest int
	for _, op := range r.Operations {
		if op.Nodes > highest {
			highest = op.Nodes
		}
	}
	return highest
}

var ErrNoSchema = errors.New("analyzer: no schema loaded")

// Service analyzes requests. The schema may be swapped at any time.
type Service struct {
	schema atomic.Pointer[language.Schema]
	rule   complexity.Config
	log    *logrus.Entry
}

type Option func(*Service)

// WithLogger sets the logger rejections are reported to.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Service) { s.log = log.WithField("prefix", "analyzer") }
}

// New creates a service scoring with rule. The rule's callbacks are
// replaced per request.
func New(s *language.Schema, rule complexity.Config, opts ...Option) (*Service, error) {
	if _, err := complexity.NewRule(rule); err != nil {
		return nil, err
	}
	svc := &Service{rule: rule, log: logging.Discard().WithField("prefix", "analyzer")}
	for _, o := range opts {
		o(svc)
	}
	svc.schema.Store(s)
	return svc, nil
}

// Schema returns the schema requests are currently analyzed against.
func (s *Service) Schema() *language.Schema { return s.schema.Load() }

// SetSchema replaces the schema. Requests already running keep the old one.
func (s *Service) SetSchema(schema *language.Schema) {
	s.schema.Store(schema)
	s.log.Info("schema replaced")
}

// MaximumComplexity returns the configured complexity ceiling.
func (s *Service) MaximumComplexity() float64 { return s.rule.MaximumComplexity }

// Analyze parses, validates and scores req. Syntax and validation problems
// are part of the result; the error return is reserved for requests that
// could not be analyzed at all.
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sch := s.schema.Load()
	if sch == nil {
		return nil, ErrNoSchema
	}
	if req.Query == "" {
		return nil, complexity.ErrNoQuery
	}

	start := time.Now()
	eventbus.Publish(ctx, events.AnalysisStart{Query: req.Query, OperationName: req.OperationName})

	res := &Result{}
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		res.Errors = language.ErrorList{language.AsError(err)}
	} else {
		cfg := s.rule
		cfg.Schema = sch
		cfg.Variables = req.Variables
		cfg.OperationName = req.OperationName
		cfg.OnComplete = nil
		cfg.OnOperation = func(st complexity.OperationStats) {
			res.Operations = append(res.Operations, st)
		}
		rule, err := complexity.NewRule(cfg)
		if err != nil {
			return nil, err
		}
		res.Errors = complexity.Validate(sch, doc, rule)
	}
	res.Duration = time.Since(start)

	s.publishFinish(ctx, req, res)
	if !res.Accepted() {
		entry := s.log.WithField("errors", len(res.Errors))
		if rid, ok := reqid.FromContext(ctx); ok {
			entry = entry.WithField("request_id", rid)
		}
		for _, e := range res.Errors {
			if code := complexity.Code(e); code != "" {
				entry = entry.WithField("code", code)
				break
			}
		}
		entry.WithField("complexity", res.Complexity()).Info("query rejected")
	}
	return res, nil
}

func (s *Service) publishFinish(ctx context.Context, req Request, res *Result) {
	ops := make([]events.Operation, len(res.Operations))
	for i, st := range res.Operations {
		ops[i] = events.Operation{
			Name:       st.Name,
			Type:       string(st.Operation),
			Complexity: st.Complexity,
			Nodes:      st.Nodes,
			Outcome:    string(st.Outcome),
		}
	}
	errs := make([]error, len(res.Errors))
	for i, e := range res.Errors {
		errs[i] = e
	}
	eventbus.Publish(ctx, events.AnalysisFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		Operations:    ops,
		Errors:        errs,
		Duration:      res.Duration,
	})
}
