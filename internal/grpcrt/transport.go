package grpcrt

import (
	"context"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// Transport performs unary calls against the complexity API.
// Implementations MUST be safe for concurrent use.
//
// Provided implementations:
// - internal/grpctp.Transport: single-connection client with default deadlines
// - MockTransport: canned responses for tests
type Transport interface {
	// Call executes a single gRPC method call.
	Call(ctx context.Context, method protoreflect.MethodDescriptor, request protoreflect.Message) (protoreflect.Message, error)
}
