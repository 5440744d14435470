package grpctp

import (
	"time"

	"google.golang.org/grpc"
)

// Options configures the transport.
//
// RPCTimeout applies only when the caller's context has no deadline. Without
// DialOptions the connection is insecure with default backoff.
type Options struct {
	Endpoint    string
	RPCTimeout  time.Duration
	DialOptions []grpc.DialOption
}

type Option func(*Options)

func WithEndpoint(addr string) Option       { return func(o *Options) { o.Endpoint = addr } }
func WithRPCTimeout(d time.Duration) Option { return func(o *Options) { o.RPCTimeout = d } }
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *Options) { o.DialOptions = opts }
}
