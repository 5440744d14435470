package server

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	analyzer "github.com/hanpama/querycost/internal/analyzer"
	eventbus "github.com/hanpama/querycost/internal/eventbus"
	events "github.com/hanpama/querycost/internal/events"
	logging "github.com/hanpama/querycost/internal/logging"
	reqid "github.com/hanpama/querycost/internal/reqid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-Id"

// ComplexityHeader reports the score of an accepted request to the upstream
// and back to the client.
const ComplexityHeader = "X-Query-Complexity"

// Handler serves the complexity gateway: GraphQL requests are analyzed and,
// when accepted, forwarded to the upstream.
type Handler struct {
	analyzer *analyzer.Service
	opt      Options
	proxy    *httputil.ReverseProxy
	log      *logrus.Entry
	root     http.Handler
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// Upstream receives accepted GraphQL requests. When nil, /graphql answers
	// with the analysis in the response extensions.
	Upstream *url.URL

	// Metrics is mounted on /metrics when set.
	Metrics http.Handler

	Logger *logrus.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option   { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                   { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option      { return func(o *Options) { o.MaxBodyBytes = n } }
func WithUpstream(u *url.URL) Option       { return func(o *Options) { o.Upstream = u } }
func WithMetrics(h http.Handler) Option    { return func(o *Options) { o.Metrics = h } }
func WithLogger(log *logrus.Logger) Option { return func(o *Options) { o.Logger = log } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates the HTTP handler around a.
func New(a *analyzer.Service, opts ...Option) (*Handler, error) {
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	if op.Logger == nil {
		op.Logger = logging.Discard()
	}
	h := &Handler{
		analyzer: a,
		opt:      op,
		log:      op.Logger.WithField("prefix", "server"),
	}
	if op.Upstream != nil {
		h.proxy = newProxy(op.Upstream, h.log)
	}

	r := mux.NewRouter()
	r.Use(h.instrument)
	r.HandleFunc("/graphql", h.serveGraphQL).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/complexity", h.serveComplexity).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.serveHealth).Methods(http.MethodGet)
	if op.Metrics != nil {
		r.Handle("/metrics", op.Metrics).Methods(http.MethodGet)
	}
	r.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)

	h.root = r
	if len(op.CORS.AllowedOrigins) > 0 {
		h.root = cors.New(cors.Options{
			AllowedOrigins: op.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"*"},
			ExposedHeaders: []string{RequestIDHeader, ComplexityHeader},
		}).Handler(r)
	}
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

// statusRecorder remembers the status written by the wrapped handler and
// whether the request went to the upstream.
type statusRecorder struct {
	http.ResponseWriter
	status    int
	forwarded bool
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument assigns the request ID, applies the default timeout and
// publishes HTTP events around every routed request.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
			defer cancel()
		}
		ctx, rid := reqid.WithID(ctx, r.Header.Get(RequestIDHeader))
		w.Header().Set(RequestIDHeader, rid)
		r = r.WithContext(ctx)

		var route string
		if cur := mux.CurrentRoute(r); cur != nil {
			route, _ = cur.GetPathTemplate()
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		eventbus.Publish(ctx, events.HTTPStart{Request: r})
		defer func() {
			d := time.Since(start)
			eventbus.Publish(ctx, events.HTTPFinish{
				Request:   r,
				Route:     route,
				Status:    rec.status,
				Forwarded: rec.forwarded,
				Duration:  d,
			})
			h.log.WithFields(logrus.Fields{
				"request_id": rid,
				"method":     r.Method,
				"route":      route,
				"status":     rec.status,
				"forwarded":  rec.forwarded,
				"duration":   d,
			}).Debug("request handled")
		}()

		next.ServeHTTP(rec, r)
	})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse(errorf("method not allowed")), h.opt.Pretty)
}

func (h *Handler) serveHealth(w http.ResponseWriter, r *http.Request) {
	if h.analyzer.Schema() == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no schema"}, h.opt.Pretty)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.opt.Pretty)
}
