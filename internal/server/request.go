package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	analyzer "github.com/hanpama/querycost/internal/analyzer"
	language "github.com/hanpama/querycost/internal/language"
)

const errBodyTooLargeMessage = "body too large"

// parseRequest reads a GraphQL request from the query string (GET) or a JSON
// body (POST). A JSON array is a batch. The raw body is returned so it can be
// forwarded unchanged.
func parseRequest(r *http.Request, maxBody int64) (analyzer.Request, []analyzer.Request, []byte, *language.Error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return analyzer.Request{}, nil, nil, errorf("missing 'query'")
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return analyzer.Request{}, nil, nil, errorf("invalid 'variables' JSON")
			}
		}
		op := r.URL.Query().Get("operationName")
		return analyzer.Request{Query: q, Variables: vars, OperationName: op}, nil, nil, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return analyzer.Request{}, nil, nil, errorf("unsupported Content-Type")
	}

	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return analyzer.Request{}, nil, nil, errorf("failed to read body")
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return analyzer.Request{}, nil, nil, errorf(errBodyTooLargeMessage)
	}

	if len(body) > 0 && body[0] == '[' {
		var arr []analyzer.Request
		if err := json.Unmarshal(body, &arr); err != nil {
			return analyzer.Request{}, nil, nil, errorf("invalid JSON")
		}
		if len(arr) == 0 {
			return analyzer.Request{}, nil, nil, errorf("empty batch")
		}
		for i := range arr {
			if arr[i].Query == "" {
				return analyzer.Request{}, nil, nil, errorf("missing 'query' in batch entry %d", i)
			}
		}
		return analyzer.Request{}, arr, body, nil
	}

	var req analyzer.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return analyzer.Request{}, nil, nil, errorf("invalid JSON")
	}
	if req.Query == "" {
		return analyzer.Request{}, nil, nil, errorf("missing 'query'")
	}
	return req, nil, body, nil
}

// ------------------ Response formatting ------------------

type gqlLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type gqlError struct {
	Message    string         `json:"message"`
	Locations  []gqlLocation  `json:"locations,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type gqlResponse struct {
	Errors     []gqlError     `json:"errors,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func errorf(format string, args ...any) *language.Error {
	return &language.Error{Message: fmt.Sprintf(format, args...)}
}

func errorResponse(err *language.Error) gqlResponse {
	return gqlResponse{Errors: toGQLErrors(language.ErrorList{err})}
}

func toGQLErrors(errs language.ErrorList) []gqlError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]gqlError, len(errs))
	for i, e := range errs {
		se := gqlError{Message: e.Message, Extensions: e.Extensions}
		for _, loc := range e.Locations {
			se.Locations = append(se.Locations, gqlLocation{Line: loc.Line, Column: loc.Column})
		}
		out[i] = se
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}
