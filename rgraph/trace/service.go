// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package trace

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// serviceName and exportMethod name the rpc this package implements
// as if compiled from a rhigraph/trace/trace.proto service
// definition:
//
//	service GraphTrace {
//	  rpc Export(google.protobuf.Struct) returns (google.protobuf.Empty);
//	}
//
// No .proto is compiled here - the build carries no protoc step -
// so the service descriptor and stub below
// are hand-written against the same grpc.ServiceDesc/grpc.MethodDesc
// shapes protoc-gen-go-grpc emits, and the wire messages are the
// protobuf module's own google.protobuf.Struct/Empty well-known
// types rather than a hand-rolled generated message.
const (
	serviceName  = "rhigraph.trace.v1.GraphTrace"
	exportMethod = "/rhigraph.trace.v1.GraphTrace/Export"
)

// GraphTraceServer is implemented by a frame-trace sink.
type GraphTraceServer interface {
	Export(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

func graphTraceExportHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GraphTraceServer).Export(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: exportMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GraphTraceServer).Export(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the grpc.ServiceDesc a GraphTraceServer registers
// under, matching what protoc-gen-go-grpc would have produced for the
// rpc above.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*GraphTraceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Export", Handler: graphTraceExportHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rgraph/trace/service.go",
}

// RegisterGraphTraceServer registers srv on s.
func RegisterGraphTraceServer(s *grpc.Server, srv GraphTraceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// GraphTraceClient is the client-side stub for GraphTraceServer.
type GraphTraceClient interface {
	Export(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type graphTraceClient struct {
	cc grpc.ClientConnInterface
}

// NewGraphTraceClient creates a GraphTraceClient backed by cc.
func NewGraphTraceClient(cc grpc.ClientConnInterface) GraphTraceClient {
	return &graphTraceClient{cc: cc}
}

func (c *graphTraceClient) Export(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, exportMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
