package relaygrpc

import (
	"context"
	"fmt"

	"github.com/blockberries/relay/types"

	"google.golang.org/grpc"
)

const serviceName = "github.com/blockberries/relay.v1.LogSink"

// LogSinkServer is the server-side interface for the LogSink service.
type LogSinkServer interface {
	Emit(context.Context, *types.LogEvent) (*EmitResponse, error)
	EmitBatch(context.Context, *EmitBatchRequest) (*EmitBatchResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

// RegisterLogSinkServer registers srv on a gRPC server.
func RegisterLogSinkServer(s *grpc.Server, srv LogSinkServer) {
	s.RegisterService(&serviceDesc, srv)
}

func handlerEmit(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.LogEvent)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(LogSinkServer).Emit(ctx, req)
}

func handlerEmitBatch(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(EmitBatchRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(LogSinkServer).EmitBatch(ctx, req)
}

func handlerPing(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(PingRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(LogSinkServer).Ping(ctx, req)
}

// fullMethod builds the full gRPC method path.
func fullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", serviceName, method)
}

// serviceDesc is the manual gRPC service descriptor for LogSink.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*LogSinkServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Emit", Handler: handlerEmit},
		{MethodName: "EmitBatch", Handler: handlerEmitBatch},
		{MethodName: "Ping", Handler: handlerPing},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "github.com/blockberries/relay/v1/logsink.cram",
}
