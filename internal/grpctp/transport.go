package grpctp

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	eventbus "github.com/hanpama/querycost/internal/eventbus"
	events "github.com/hanpama/querycost/internal/events"
	grpcrt "github.com/hanpama/querycost/internal/grpcrt"
	protoreg "github.com/hanpama/querycost/internal/protoreg"
	reqid "github.com/hanpama/querycost/internal/reqid"
)

// Transport calls a remote querycost server over one lazily dialed
// connection. The request ID in the context travels as metadata.
type Transport struct {
	opts Options

	mu     sync.Mutex
	conn   *grpc.ClientConn
	closed bool
}

func New(opts ...Option) *Transport {
	o := Options{RPCTimeout: 3 * time.Second}
	for _, f := range opts {
		f(&o)
	}
	if len(o.DialOptions) == 0 {
		o.DialOptions = []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig}),
		}
	}
	return &Transport{opts: o}
}

var _ grpcrt.Transport = (*Transport)(nil)

func (t *Transport) Call(ctx context.Context, method protoreflect.MethodDescriptor, request protoreflect.Message) (protoreflect.Message, error) {
	cc, err := t.dial()
	if err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok && t.opts.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.RPCTimeout)
		defer cancel()
	}
	if rid, ok := reqid.FromContext(ctx); ok {
		ctx = metadata.AppendToOutgoingContext(ctx, grpcrt.RequestIDKey, rid)
	}

	service := string(method.Parent().FullName())
	start := time.Now()
	eventbus.Publish(ctx, events.GRPCClientStart{Service: service, Method: string(method.Name()), Target: t.opts.Endpoint})

	resp := dynamicpb.NewMessage(method.Output())
	err = cc.Invoke(ctx, protoreg.FullMethod(method), request.Interface(), resp)
	eventbus.Publish(ctx, events.GRPCClientFinish{
		Service:  service,
		Method:   string(method.Name()),
		Target:   t.opts.Endpoint,
		Code:     status.Code(err),
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) dial() (*grpc.ClientConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.closed:
		return nil, ErrClosed
	case t.conn != nil:
		return t.conn, nil
	case t.opts.Endpoint == "":
		return nil, ErrNoEndpoint
	}
	cc, err := grpc.NewClient(t.opts.Endpoint, t.opts.DialOptions...)
	if err != nil {
		return nil, err
	}
	t.conn = cc
	return cc, nil
}

// Close releases the connection. Calls after Close fail with ErrClosed.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
