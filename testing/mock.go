// Package relaytest provides test utilities for the relay: call
// counting mocks for the chain and the audit path, a controllable
// clock, fixture transactions, an HTTP harness around the server and
// a compliance suite for rate limiter implementations.
package relaytest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/blockberries/relay"
	"github.com/blockberries/relay/audit"
	"github.com/blockberries/relay/types"
)

// Compile-time interface checks.
var (
	_ relay.Chain       = (*MockChain)(nil)
	_ relay.AuditLogger = (*Recorder)(nil)
	_ audit.Sink        = (*MockSink)(nil)
)

// MockChain is a configurable relay.Chain. Unconfigured methods
// succeed: Sponsor attaches a placeholder sponsor condition and
// Broadcast accepts with DefaultTxID.
type MockChain struct {
	SponsorFn   func(context.Context, *types.Transaction, string, types.Network) (*types.Transaction, error)
	BroadcastFn func(context.Context, *types.Transaction, types.Network) (types.BroadcastResult, error)

	// Call counters (atomic for concurrent access).
	SponsorCalls   atomic.Int64
	BroadcastCalls atomic.Int64

	mu          sync.Mutex
	credentials []string
	broadcasts  []*types.Transaction
}

// DefaultTxID is the txid MockChain accepts with by default.
const DefaultTxID = "0x8f5a6c2e1d4b3a29f0e7c6b5a4d3c2b1a0f9e8d7c6b5a4938271605f4e3d2c1b"

// DefaultSponsorFee is the fee MockChain attaches by default.
const DefaultSponsorFee = 2000

func (m *MockChain) Sponsor(ctx context.Context, tx *types.Transaction, credential string, network types.Network) (*types.Transaction, error) {
	m.SponsorCalls.Add(1)
	m.mu.Lock()
	m.credentials = append(m.credentials, credential)
	m.mu.Unlock()

	if m.SponsorFn != nil {
		return m.SponsorFn(ctx, tx, credential, network)
	}
	out := *tx
	out.Auth.Sponsor = &types.SpendingCondition{
		HashMode:  types.HashModeP2PKH,
		Signer:    types.Address{0x5b},
		Nonce:     1,
		Fee:       DefaultSponsorFee,
		Signature: make([]byte, types.SignatureLength),
	}
	return &out, nil
}

func (m *MockChain) Broadcast(ctx context.Context, tx *types.Transaction, network types.Network) (types.BroadcastResult, error) {
	m.BroadcastCalls.Add(1)
	m.mu.Lock()
	m.broadcasts = append(m.broadcasts, tx)
	m.mu.Unlock()

	if m.BroadcastFn != nil {
		return m.BroadcastFn(ctx, tx, network)
	}
	return types.Accepted(DefaultTxID), nil
}

// Credentials returns the credentials Sponsor was called with.
func (m *MockChain) Credentials() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.credentials...)
}

// Broadcasts returns the transactions Broadcast was called with.
func (m *MockChain) Broadcasts() []*types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*types.Transaction(nil), m.broadcasts...)
}

// Event is one recorded audit call.
type Event struct {
	Level     types.LogLevel
	RequestID string
	Message   string
	Fields    []types.Field
}

// Field returns the value of the named field and whether it was set.
func (e Event) Field(key string) (string, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s [%s] %v", e.Level, e.Message, e.RequestID, e.Fields)
}

// Recorder is a synchronous relay.AuditLogger that keeps every call.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Info(requestID, message string, fields ...types.Field) {
	r.record(types.LevelInfo, requestID, message, fields)
}

func (r *Recorder) Warn(requestID, message string, fields ...types.Field) {
	r.record(types.LevelWarn, requestID, message, fields)
}

func (r *Recorder) Error(requestID, message string, fields ...types.Field) {
	r.record(types.LevelError, requestID, message, fields)
}

func (r *Recorder) Debug(requestID, message string, fields ...types.Field) {
	r.record(types.LevelDebug, requestID, message, fields)
}

func (r *Recorder) record(level types.LogLevel, requestID, message string, fields []types.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{
		Level:     level,
		RequestID: requestID,
		Message:   message,
		Fields:    append([]types.Field(nil), fields...),
	})
}

// Events returns all recorded events in call order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Find returns the first event with the given message.
func (r *Recorder) Find(message string) (Event, bool) {
	for _, e := range r.Events() {
		if e.Message == message {
			return e, true
		}
	}
	return Event{}, false
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// MockSink is a configurable audit.Sink that records delivered events.
type MockSink struct {
	EmitFn func(context.Context, types.LogEvent) error

	EmitCalls atomic.Int64

	mu     sync.Mutex
	events []types.LogEvent
	// notify receives one value per accepted event, if set.
	notify chan struct{}
}

// NewMockSink creates a sink whose Delivered channel signals each
// accepted event. buffer bounds the number of unobserved signals.
func NewMockSink(buffer int) *MockSink {
	return &MockSink{notify: make(chan struct{}, buffer)}
}

func (s *MockSink) Emit(ctx context.Context, event types.LogEvent) error {
	s.EmitCalls.Add(1)
	if s.EmitFn != nil {
		if err := s.EmitFn(ctx, event); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	if s.notify != nil {
		select {
		case s.notify <- struct{}{}:
		default:
		}
	}
	return nil
}

// Delivered signals once per accepted event. Nil unless the sink was
// created with NewMockSink.
func (s *MockSink) Delivered() <-chan struct{} { return s.notify }

// Events returns accepted events in delivery order.
func (s *MockSink) Events() []types.LogEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.LogEvent(nil), s.events...)
}
