package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/querycost/internal/eventbus"
	events "github.com/hanpama/querycost/internal/events"
	reqid "github.com/hanpama/querycost/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(ctx context.Context, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Register(otel.Tracer("querycost"))

	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Register turns bus events into spans created by tracer. Spans of one
// request are correlated through its request ID.
func Register(tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register()
}

type subscriber struct {
	tracer        trace.Tracer
	httpSpans     sync.Map // rid -> trace.Span
	analysisSpans sync.Map // rid -> trace.Span
	grpcSpans     sync.Map // rid -> trace.Span
}

func (s *subscriber) parent(ctx context.Context, rid string, maps ...*sync.Map) context.Context {
	for _, m := range maps {
		if v, ok := m.Load(rid); ok {
			return trace.ContextWithSpan(ctx, v.(trace.Span))
		}
	}
	return ctx
}

func (s *subscriber) register() func() {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "http.request", trace.WithSpanKind(trace.SpanKindServer))
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
			)
			s.httpSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.httpSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			if e.Status >= 500 {
				span.SetStatus(codes.Error, "")
			}
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCServerStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "grpc.server", trace.WithSpanKind(trace.SpanKindServer))
			span.SetAttributes(
				semconv.RPCSystemGRPC,
				attribute.String("rpc.method", e.Method),
				attribute.String("net.peer.name", e.Peer),
			)
			s.grpcSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCServerFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.grpcSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.String("grpc.code", e.Code.String()))
			if e.Err != nil {
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Err.Error())
			}
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.AnalysisStart) {
			rid, _ := reqid.FromContext(ctx)
			parent := s.parent(ctx, rid, &s.httpSpans, &s.grpcSpans)
			_, span := s.tracer.Start(parent, "graphql.analyze")
			span.SetAttributes(attribute.String("graphql.operation.name", e.OperationName))
			s.analysisSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.AnalysisFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.analysisSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			var highest float64
			var nodes int
			for _, op := range e.Operations {
				highest = max(highest, op.Complexity)
				nodes = max(nodes, op.Nodes)
				span.AddEvent("operation", trace.WithAttributes(
					attribute.String("graphql.operation.name", op.Name),
					attribute.String("graphql.operation.type", op.Type),
					attribute.Float64("graphql.complexity", op.Complexity),
					attribute.Int("graphql.nodes", op.Nodes),
					attribute.String("graphql.outcome", op.Outcome),
				))
			}
			span.SetAttributes(
				attribute.Float64("graphql.complexity", highest),
				attribute.Int("graphql.nodes", nodes),
				attribute.Int("graphql.error_count", len(e.Errors)),
			)
			if len(e.Errors) > 0 {
				span.SetStatus(codes.Error, e.Errors[0].Error())
			}
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientStart) {
			rid, _ := reqid.FromContext(ctx)
			parent := s.parent(ctx, rid, &s.analysisSpans, &s.httpSpans)
			_, span := s.tracer.Start(parent, "grpc.client", trace.WithSpanKind(trace.SpanKindClient))
			span.SetAttributes(
				semconv.RPCServiceKey.String(e.Service),
				semconv.RPCMethodKey.String(e.Method),
				attribute.String("net.peer.name", e.Target),
			)
			s.grpcSpans.Store("client:"+rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.grpcSpans.LoadAndDelete("client:" + rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.String("grpc.code", e.Code.String()))
			if e.Err != nil {
				span.RecordError(e.Err)
			}
			span.End()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
