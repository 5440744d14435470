package grpctp

import "errors"

var (
	// ErrNoEndpoint is returned when the transport has no address to dial.
	ErrNoEndpoint = errors.New("grpctp: no endpoint configured")
	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("grpctp: closed")
)
