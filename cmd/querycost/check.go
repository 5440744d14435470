package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	analyzer "github.com/hanpama/querycost/internal/analyzer"
	grpctp "github.com/hanpama/querycost/internal/grpctp"
	logging "github.com/hanpama/querycost/internal/logging"
	protoreg "github.com/hanpama/querycost/internal/protoreg"
	schema "github.com/hanpama/querycost/internal/schema"
)

type checkOptions struct {
	remote        string
	timeout       time.Duration
	operationName string
	variables     string
	json          bool
}

// checkResult is the report of one query file.
type checkResult struct {
	File string `json:"file"`
	protoreg.Report
}

func newCheckCommand(root *rootOptions) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Score query documents",
		Long: `Score each query document against the schema. With no files, or "-",
the document is read from stdin. The command fails when any query is rejected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, root, opts, args)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.remote, "remote", "", "Score with a querycost gRPC server at this address instead of locally")
	flags.DurationVar(&opts.timeout, "timeout", 3*time.Second, "Timeout of remote calls")
	flags.StringVar(&opts.operationName, "operation-name", "", "Only score this operation")
	flags.StringVar(&opts.variables, "variables", "", "Variables as a JSON object")
	flags.BoolVar(&opts.json, "json", false, "Print the reports as JSON")
	return cmd
}

type scoreFunc func(ctx context.Context, req analyzer.Request) (protoreg.Report, error)

func runCheck(cmd *cobra.Command, root *rootOptions, opts *checkOptions, files []string) error {
	ctx := cmd.Context()
	var vars map[string]any
	if opts.variables != "" {
		if err := json.Unmarshal([]byte(opts.variables), &vars); err != nil {
			return fmt.Errorf("--variables must be a JSON object: %w", err)
		}
	}

	score, closeFn, err := newScorer(ctx, root, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	if len(files) == 0 {
		files = []string{"-"}
	}
	results := make([]checkResult, 0, len(files))
	rejected := false
	for _, f := range files {
		query, err := readQuery(cmd.InOrStdin(), f)
		if err != nil {
			return err
		}
		rep, err := score(ctx, analyzer.Request{Query: query, OperationName: opts.operationName, Variables: vars})
		if err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
		rejected = rejected || !rep.Accepted
		results = append(results, checkResult{File: f, Report: rep})
	}

	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			printReport(out, r)
		}
	}
	if rejected {
		return errRejected
	}
	return nil
}

// newScorer returns a local analyzer over the configured schema, or a
// gRPC client when --remote is set.
func newScorer(ctx context.Context, root *rootOptions, opts *checkOptions) (scoreFunc, func(), error) {
	if opts.remote != "" {
		reg, err := protoreg.Build()
		if err != nil {
			return nil, nil, err
		}
		tp := grpctp.New(grpctp.WithEndpoint(opts.remote), grpctp.WithRPCTimeout(opts.timeout))
		client := grpctp.NewClient(tp, reg)
		return client.Analyze, func() { _ = tp.Close() }, nil
	}

	conf, err := root.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log := logging.New(io.Discard, conf.Log.Level, conf.Log.Format)
	sch, err := schema.LoadFiles(ctx, conf.Schema.CostDirective, conf.Schema.Paths...)
	if err != nil {
		return nil, nil, err
	}
	rule, err := conf.Rule()
	if err != nil {
		return nil, nil, err
	}
	svc, err := analyzer.New(sch, rule, analyzer.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	score := func(ctx context.Context, req analyzer.Request) (protoreg.Report, error) {
		res, err := svc.Analyze(ctx, req)
		if err != nil {
			return protoreg.Report{}, err
		}
		return protoreg.NewReport(res, svc.MaximumComplexity()), nil
	}
	return score, func() {}, nil
}

func readQuery(stdin io.Reader, name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func printReport(w io.Writer, r checkResult) {
	verdict := "accepted"
	if !r.Accepted {
		verdict = "rejected"
	}
	fmt.Fprintf(w, "%s: %s (complexity %g, maximum %g)\n", r.File, verdict, r.Complexity, r.MaximumComplexity)
	for _, op := range r.Operations {
		name := op.Name
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Fprintf(w, "  %s %s: complexity %g, %d nodes, %s\n", op.Operation, name, op.Complexity, op.Nodes, op.Outcome)
	}
	for _, e := range r.Errors {
		loc := ""
		if len(e.Locations) > 0 {
			loc = fmt.Sprintf("%d:%d: ", e.Locations[0].Line, e.Locations[0].Column)
		}
		if e.Code != "" {
			fmt.Fprintf(w, "  error: %s%s [%s]\n", loc, e.Message, e.Code)
		} else {
			fmt.Fprintf(w, "  error: %s%s\n", loc, e.Message)
		}
	}
}
