package relaygrpc

import (
	"context"
	"fmt"
	"net"

	"github.com/blockberries/relay/audit"
	"github.com/blockberries/relay/types"

	"google.golang.org/grpc"
)

// Compile-time interface check.
var _ LogSinkServer = (*GRPCServer)(nil)

// GRPCServer exposes an audit.Sink as a LogSink gRPC service.
type GRPCServer struct {
	sink audit.Sink
	name string
}

// NewGRPCServer creates a gRPC server delivering events to sink. name
// is reported by Ping.
func NewGRPCServer(sink audit.Sink, name string) *GRPCServer {
	return &GRPCServer{sink: sink, name: name}
}

// Register adds the LogSink service to a gRPC server.
func (s *GRPCServer) Register(gs *grpc.Server) {
	RegisterLogSinkServer(gs, s)
}

// Serve starts a gRPC server on the given listener.
func (s *GRPCServer) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	return gs.Serve(lis)
}

func (s *GRPCServer) Emit(ctx context.Context, event *types.LogEvent) (*EmitResponse, error) {
	if err := s.sink.Emit(ctx, *event); err != nil {
		return nil, err
	}
	return &EmitResponse{Accepted: true}, nil
}

// EmitBatch delivers events in order and stops at the first failure.
func (s *GRPCServer) EmitBatch(ctx context.Context, req *EmitBatchRequest) (*EmitBatchResponse, error) {
	for i, event := range req.Events {
		if err := s.sink.Emit(ctx, event); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	return &EmitBatchResponse{Accepted: uint32(len(req.Events))}, nil
}

func (s *GRPCServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return &PingResponse{Name: s.name}, nil
}
