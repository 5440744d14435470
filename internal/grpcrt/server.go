// Package grpcrt serves the complexity API over gRPC. Messages are built from
// runtime descriptors, so there is no generated code.
package grpcrt

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/dynamicpb"

	analyzer "github.com/hanpama/querycost/internal/analyzer"
	complexity "github.com/hanpama/querycost/internal/complexity"
	eventbus "github.com/hanpama/querycost/internal/eventbus"
	events "github.com/hanpama/querycost/internal/events"
	logging "github.com/hanpama/querycost/internal/logging"
	protoreg "github.com/hanpama/querycost/internal/protoreg"
	reqid "github.com/hanpama/querycost/internal/reqid"
)

// RequestIDKey is the metadata key carrying the request ID in both
// directions.
const RequestIDKey = "x-request-id"

// Server implements ComplexityService on top of an analyzer.
type Server struct {
	reg      *protoreg.Registry
	analyzer *analyzer.Service
	health   *health.Server
	log      *logrus.Entry
}

type Option func(*Server)

func WithLogger(log *logrus.Logger) Option {
	return func(s *Server) { s.log = log.WithField("prefix", "grpc") }
}

func NewServer(reg *protoreg.Registry, a *analyzer.Service, opts ...Option) *Server {
	s := &Server{
		reg:      reg,
		analyzer: a,
		health:   health.NewServer(),
		log:      logging.Discard().WithField("prefix", "grpc"),
	}
	for _, o := range opts {
		o(s)
	}
	s.UpdateHealth()
	return s
}

// NewGRPCServer creates a grpc.Server with the complexity and health
// services registered and request instrumentation installed.
func (s *Server) NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.intercept))
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	return gs
}

// Register adds the complexity and health services to gs.
func (s *Server) Register(gs grpc.ServiceRegistrar) {
	gs.RegisterService(s.ServiceDesc(), s)
	healthpb.RegisterHealthServer(gs, s.health)
}

// UpdateHealth reports SERVING while a schema is loaded.
func (s *Server) UpdateHealth() {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if s.analyzer.Schema() != nil {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(string(s.reg.Service().FullName()), st)
}

// Shutdown marks every service as not serving.
func (s *Server) Shutdown() { s.health.Shutdown() }

// ServiceDesc describes ComplexityService for grpc.Server.RegisterService.
func (s *Server) ServiceDesc() *grpc.ServiceDesc {
	md := s.reg.Analyze()
	fullMethod := protoreg.FullMethod(md)
	return &grpc.ServiceDesc{
		ServiceName: string(s.reg.Service().FullName()),
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: string(md.Name()),
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := dynamicpb.NewMessage(md.Input())
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(*Server).Analyze(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
				return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
					return srv.(*Server).Analyze(ctx, req.(*dynamicpb.Message))
				})
			},
		}},
		Metadata: protoreg.FilePath,
	}
}

// Analyze handles ComplexityService.Analyze.
func (s *Server) Analyze(ctx context.Context, in *dynamicpb.Message) (*dynamicpb.Message, error) {
	req, err := s.reg.DecodeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, statusError(err)
	}
	return s.reg.EncodeReport(protoreg.NewReport(res, s.analyzer.MaximumComplexity())), nil
}

func statusError(err error) error {
	switch {
	case errors.Is(err, analyzer.ErrNoSchema):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, complexity.ErrNoQuery):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, err.Error())
}

// intercept assigns the request ID and publishes server events.
func (s *Server) intercept(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	var incoming string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(RequestIDKey); len(v) > 0 {
			incoming = v[0]
		}
	}
	ctx, rid := reqid.WithID(ctx, incoming)
	_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, rid))

	var addr string
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr = p.Addr.String()
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GRPCServerStart{Method: info.FullMethod, Peer: addr})
	resp, err := handler(ctx, req)
	d := time.Since(start)
	code := status.Code(err)
	eventbus.Publish(ctx, events.GRPCServerFinish{
		Method:   info.FullMethod,
		Peer:     addr,
		Code:     code,
		Err:      err,
		Duration: d,
	})

	entry := s.log.WithFields(logrus.Fields{
		"request_id": rid,
		"method":     info.FullMethod,
		"code":       code.String(),
		"duration":   d,
	})
	if err != nil && code != codes.InvalidArgument {
		entry.WithError(err).Warn("call failed")
	} else {
		entry.Debug("call handled")
	}
	return resp, err
}
