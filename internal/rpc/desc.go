// Package rpc exposes scoring and catalog diagnostics over gRPC. Messages are
// google.protobuf.Struct values shaped like the HTTP API's JSON bodies, so
// the service needs no generated code and clients can use any gRPC tooling
// that speaks well-known types.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "mysteryshop.v1.ScoringService"

	previewScoreMethod = "/" + ServiceName + "/PreviewScore"
	diagnosticsMethod  = "/" + ServiceName + "/Diagnostics"
)

// ScoringServer is the server API for ScoringService.
type ScoringServer interface {
	// PreviewScore scores {"scores":[{"question_id","score"}]} against the
	// active catalog without persisting anything.
	PreviewScore(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	// Diagnostics compares two catalog sources: {"a","b","target"}.
	Diagnostics(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc is the grpc.ServiceDesc for ScoringService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScoringServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PreviewScore", Handler: previewScoreHandler},
		{MethodName: "Diagnostics", Handler: diagnosticsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mysteryshop/v1/scoring.proto",
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv ScoringServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func previewScoreHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScoringServer).PreviewScore(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: previewScoreMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScoringServer).PreviewScore(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func diagnosticsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScoringServer).Diagnostics(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: diagnosticsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScoringServer).Diagnostics(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ─── CLIENT ───────────────────────────────────────────────────────────────────

// Client is a ScoringService client.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) PreviewScore(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, previewScoreMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Diagnostics(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, diagnosticsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
