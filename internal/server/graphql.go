package server

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	analyzer "github.com/hanpama/querycost/internal/analyzer"
	language "github.com/hanpama/querycost/internal/language"
)

// serveGraphQL analyzes a single or batched GraphQL request. Accepted
// requests are proxied; a batch is proxied only when every entry passes.
func (h *Handler) serveGraphQL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, batch, body, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		writeJSON(w, requestErrorStatus(berr), errorResponse(berr), h.opt.Pretty)
		return
	}
	isBatch := batch != nil
	if !isBatch {
		batch = []analyzer.Request{req}
	}

	results := make([]*analyzer.Result, len(batch))
	accepted := true
	var highest float64
	for i := range batch {
		res, err := h.analyzer.Analyze(ctx, batch[i])
		if err != nil {
			h.log.WithError(err).Warn("analysis failed")
			writeJSON(w, http.StatusServiceUnavailable, errorResponse(errorf("%s", err.Error())), h.opt.Pretty)
			return
		}
		results[i] = res
		accepted = accepted && res.Accepted()
		highest = max(highest, res.Complexity())
	}

	if accepted && h.proxy != nil {
		r.Header.Set(ComplexityHeader, formatFloat(highest))
		if body != nil {
			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
		}
		if rec, ok := w.(*statusRecorder); ok {
			rec.forwarded = true
		}
		h.proxy.ServeHTTP(w, r)
		return
	}

	if accepted {
		w.Header().Set(ComplexityHeader, formatFloat(highest))
	}
	out := make([]gqlResponse, len(results))
	for i, res := range results {
		out[i] = h.analysisResponse(res)
	}
	if !isBatch {
		writeJSON(w, http.StatusOK, out[0], h.opt.Pretty)
		return
	}
	writeJSON(w, http.StatusOK, out, h.opt.Pretty)
}

// analysisResponse answers a request that is not forwarded: rejected ones
// carry their errors, accepted ones their score.
func (h *Handler) analysisResponse(res *analyzer.Result) gqlResponse {
	if !res.Accepted() {
		return gqlResponse{Errors: toGQLErrors(res.Errors)}
	}
	return gqlResponse{Extensions: map[string]any{"complexity": h.complexityReport(res)}}
}

func (h *Handler) complexityReport(res *analyzer.Result) complexityReport {
	report := complexityReport{
		Accepted:          res.Accepted(),
		Complexity:        res.Complexity(),
		MaximumComplexity: h.analyzer.MaximumComplexity(),
		Operations:        make([]operationReport, len(res.Operations)),
	}
	for i, st := range res.Operations {
		report.Operations[i] = operationReport{
			Name:       st.Name,
			Operation:  string(st.Operation),
			Complexity: st.Complexity,
			Nodes:      st.Nodes,
			Outcome:    string(st.Outcome),
		}
	}
	return report
}

// serveComplexity reports the analysis of one request without forwarding it.
func (h *Handler) serveComplexity(w http.ResponseWriter, r *http.Request) {
	req, batch, _, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr == nil && batch != nil {
		berr = errorf("batching is not supported on this endpoint")
	}
	if berr != nil {
		writeJSON(w, requestErrorStatus(berr), errorResponse(berr), h.opt.Pretty)
		return
	}
	res, err := h.analyzer.Analyze(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse(errorf("%s", err.Error())), h.opt.Pretty)
		return
	}
	report := h.complexityReport(res)
	report.Errors = toGQLErrors(res.Errors)
	writeJSON(w, http.StatusOK, report, h.opt.Pretty)
}

type complexityReport struct {
	Accepted          bool              `json:"accepted"`
	Complexity        float64           `json:"complexity"`
	MaximumComplexity float64           `json:"maximumComplexity"`
	Operations        []operationReport `json:"operations"`
	Errors            []gqlError        `json:"errors,omitempty"`
}

type operationReport struct {
	Name       string  `json:"name,omitempty"`
	Operation  string  `json:"operation"`
	Complexity float64 `json:"complexity"`
	Nodes      int     `json:"nodes"`
	Outcome    string  `json:"outcome"`
}

func newProxy(upstream *url.URL, log *logrus.Entry) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.Out.URL.Path = upstream.Path
			pr.Out.URL.RawPath = upstream.RawPath
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.WithError(err).Warn("upstream request failed")
			writeJSON(w, http.StatusBadGateway, errorResponse(errorf("upstream unavailable")), false)
		},
	}
}

func requestErrorStatus(err *language.Error) int {
	if err.Message == errBodyTooLargeMessage {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
