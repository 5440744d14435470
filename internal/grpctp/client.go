package grpctp

import (
	"context"

	analyzer "github.com/hanpama/querycost/internal/analyzer"
	grpcrt "github.com/hanpama/querycost/internal/grpcrt"
	protoreg "github.com/hanpama/querycost/internal/protoreg"
)

// Client calls ComplexityService through a Transport.
type Client struct {
	transport grpcrt.Transport
	reg       *protoreg.Registry
}

func NewClient(t grpcrt.Transport, reg *protoreg.Registry) *Client {
	return &Client{transport: t, reg: reg}
}

// Analyze scores req on the remote service.
func (c *Client) Analyze(ctx context.Context, req analyzer.Request) (protoreg.Report, error) {
	msg, err := c.reg.EncodeRequest(req)
	if err != nil {
		return protoreg.Report{}, err
	}
	resp, err := c.transport.Call(ctx, c.reg.Analyze(), msg)
	if err != nil {
		return protoreg.Report{}, err
	}
	return c.reg.DecodeReport(resp), nil
}
