package relaygrpc

import (
	"context"
	"fmt"

	"github.com/blockberries/relay/audit"
	"github.com/blockberries/relay/types"

	"google.golang.org/grpc"
)

// Compile-time interface check.
var _ audit.Sink = (*Client)(nil)

// Client delivers audit events to a remote LogSink.
type Client struct {
	cc *grpc.ClientConn
}

// Dial connects to a remote log sink. The connection is established
// lazily; use Ping to check reachability.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.ForceCodec(CramberryCodec{}),
	))
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("log sink client: dial %s: %w", addr, err)
	}
	return &Client{cc: cc}, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

func (c *Client) Emit(ctx context.Context, event types.LogEvent) error {
	resp := new(EmitResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Emit"), &event, resp); err != nil {
		return err
	}
	if !resp.Accepted {
		return fmt.Errorf("log sink refused event %q", event.Message)
	}
	return nil
}

// EmitBatch delivers events in one call and returns how many the sink
// accepted.
func (c *Client) EmitBatch(ctx context.Context, events []types.LogEvent) (int, error) {
	req := &EmitBatchRequest{Events: events}
	resp := new(EmitBatchResponse)
	if err := c.cc.Invoke(ctx, fullMethod("EmitBatch"), req, resp); err != nil {
		return 0, err
	}
	return int(resp.Accepted), nil
}

// Ping returns the sink's name.
func (c *Client) Ping(ctx context.Context) (string, error) {
	resp := new(PingResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Ping"), &PingRequest{}, resp); err != nil {
		return "", err
	}
	return resp.Name, nil
}
