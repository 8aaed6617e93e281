// Package relay defines the sponsor relay: a stateless service that
// accepts a pre-signed sponsored transaction, attaches the sponsor's
// signature and fee, and broadcasts the result to the network on the
// submitter's behalf.
//
// This package declares the capabilities the request pipeline
// depends on. Concrete implementations live in sibling packages:
// ratelimit (RateLimiter), chain (Sponsor, Broadcaster) and audit
// (AuditLogger). The pipeline and the HTTP boundary depend only on
// these interfaces, never on the concrete types.
package relay

import (
	"context"
	"errors"
	"time"

	"github.com/blockberries/relay/types"
)

// RateLimiter admits or rejects requests keyed by sender identity.
//
// Admit MUST be safe for concurrent use; the check-and-increment for
// a key is atomic. An error means the limiter could not decide (for
// example, its backing store is unreachable) and is not a rejection.
type RateLimiter interface {
	Admit(ctx context.Context, key string) (bool, error)
}

// Sponsor attaches the sponsor's spending condition and signature to
// a sponsored transaction.
//
// Implementations MUST NOT mutate tx; the returned transaction is a
// new value carrying the origin's signature unchanged.
type Sponsor interface {
	Sponsor(ctx context.Context, tx *types.Transaction, credential string, network types.Network) (*types.Transaction, error)
}

// Broadcaster submits a fully authorized transaction to the network.
//
// A non-nil error is a transport failure: the call itself did not
// complete. A node that answers and refuses the transaction is not an
// error; it yields a result with Outcome BroadcastRejected.
// Implementations that cannot classify a node answer into exactly
// one variant return an error wrapping ErrUnclassifiedBroadcast.
type Broadcaster interface {
	Broadcast(ctx context.Context, tx *types.Transaction, network types.Network) (types.BroadcastResult, error)
}

// Chain is the combined transaction-processing collaborator.
type Chain interface {
	Sponsor
	Broadcaster
}

// AuditLogger emits audit events to the log sink. Calls never block
// on delivery and never fail; delivery problems are handled by the
// implementation.
type AuditLogger interface {
	Info(requestID, message string, fields ...types.Field)
	Warn(requestID, message string, fields ...types.Field)
	Error(requestID, message string, fields ...types.Field)
	Debug(requestID, message string, fields ...types.Field)
}

// ErrUnclassifiedBroadcast is returned (wrapped) by a Broadcaster when
// the node's answer carries neither a transaction id nor a rejection.
var ErrUnclassifiedBroadcast = errors.New("broadcast result has neither txid nor error")

// Default rate limit: 10 requests per sender per 60-second window.
const (
	DefaultRateLimitCapacity = 10
	DefaultRateLimitWindow   = 60 * time.Second
)

// RateLimitConfig bounds how many relays one sender may request.
type RateLimitConfig struct {
	Capacity int
	Window   time.Duration
}

// Config is the read-only configuration of the request pipeline.
type Config struct {
	// SponsorCredential is the sponsor's hex-encoded private key.
	// Empty means the service is not configured; every relay request
	// then fails with KindConfiguration.
	SponsorCredential string

	// NetworkID selects the network: "mainnet", or anything else for
	// the test network.
	NetworkID string

	// Network is the resolved descriptor for NetworkID.
	Network types.Network

	RateLimit RateLimitConfig
}

// Configured reports whether a sponsor credential is present.
func (c Config) Configured() bool { return c.SponsorCredential != "" }
