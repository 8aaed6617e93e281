package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockberries/relay"
	"github.com/blockberries/relay/types"
)

// Outcome is a successful relay.
type Outcome struct {
	TxID string
	// Sponsor condition that was attached.
	Fee          uint64
	SponsorNonce uint64
	Sponsor      types.Address
}

// Orchestrator sequences sponsorship and broadcast for a validated
// transaction. It holds only read-only state and is safe for
// concurrent use.
//
// No stage is retried: every collaborator failure ends the request.
// Timeouts are those of the collaborators and of ctx.
type Orchestrator struct {
	cfg   relay.Config
	chain relay.Chain
}

// NewOrchestrator creates an orchestrator over the given collaborators.
func NewOrchestrator(cfg relay.Config, chain relay.Chain) *Orchestrator {
	return &Orchestrator{cfg: cfg, chain: chain}
}

// Config returns the orchestrator's configuration.
func (o *Orchestrator) Config() relay.Config { return o.cfg }

// RelayOption customizes a single Relay call.
type RelayOption func(*relayOptions)

type relayOptions struct {
	onSponsored func(*types.Transaction)
}

// OnSponsored registers fn to run after sponsorship succeeds and
// before the broadcast is attempted.
func OnSponsored(fn func(sponsored *types.Transaction)) RelayOption {
	return func(o *relayOptions) { o.onSponsored = fn }
}

// Relay sponsors and broadcasts tx. Every error is a *Failure naming
// the stage, wrapping a *relay.Error with the stage's Kind.
func (o *Orchestrator) Relay(ctx context.Context, trace *Trace, tx *types.Transaction, opts ...RelayOption) (Outcome, error) {
	var ro relayOptions
	for _, opt := range opts {
		opt(&ro)
	}

	trace.Enter(StageConfigure)
	if !o.cfg.Configured() {
		return Outcome{}, fail(trace, relay.Errorf(relay.KindConfiguration, "sponsor credential is not set"))
	}

	trace.Enter(StageSponsor)
	sponsored, err := o.chain.Sponsor(ctx, tx, o.cfg.SponsorCredential, o.cfg.Network)
	if err != nil {
		return Outcome{}, fail(trace, relay.Wrap(relay.KindSponsorship, err))
	}
	if sponsored == nil || sponsored.Auth.Sponsor == nil {
		return Outcome{}, fail(trace, relay.Errorf(relay.KindSponsorship, "sponsor returned no sponsor condition"))
	}

	if ro.onSponsored != nil {
		ro.onSponsored(sponsored)
	}

	trace.Enter(StageBroadcast)
	result, err := o.chain.Broadcast(ctx, sponsored, o.cfg.Network)
	if err != nil {
		if errors.Is(err, relay.ErrUnclassifiedBroadcast) {
			return Outcome{}, fail(trace, relay.Wrap(relay.KindInternal, err))
		}
		return Outcome{}, fail(trace, relay.Wrap(relay.KindBroadcastTransport, err))
	}

	switch result.Outcome {
	case types.BroadcastAccepted:
		if result.TxID == "" {
			return Outcome{}, fail(trace, relay.Wrap(relay.KindInternal,
				fmt.Errorf("%w: accepted without txid", relay.ErrUnclassifiedBroadcast)))
		}
	case types.BroadcastRejected:
		return Outcome{}, fail(trace, &relay.Error{Kind: relay.KindBroadcastRejected, Detail: result.Detail()})
	default:
		return Outcome{}, fail(trace, relay.Wrap(relay.KindInternal,
			fmt.Errorf("%w: outcome %s", relay.ErrUnclassifiedBroadcast, result.Outcome)))
	}

	trace.Enter(StageDone)
	sp := sponsored.Auth.Sponsor
	return Outcome{
		TxID:         result.TxID,
		Fee:          sp.Fee,
		SponsorNonce: sp.Nonce,
		Sponsor:      sp.Signer,
	}, nil
}
