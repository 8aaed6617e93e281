package relaygrpc

import "github.com/blockberries/relay/types"

// Transport wrapper types. Used only at the gRPC serialization
// boundary.

// EmitResponse acknowledges a single event.
type EmitResponse struct {
	Accepted bool `cramberry:"1"`
}

// EmitBatchRequest carries several events in one call.
type EmitBatchRequest struct {
	Events []types.LogEvent `cramberry:"1"`
}

// EmitBatchResponse reports how many events of a batch were accepted.
type EmitBatchResponse struct {
	Accepted uint32 `cramberry:"1"`
}

// PingRequest is the (empty) request for LogSink.Ping.
type PingRequest struct{}

// PingResponse identifies the sink.
type PingResponse struct {
	Name string `cramberry:"1"`
}
