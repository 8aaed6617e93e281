package chain

import (
	"context"
	"fmt"

	"github.com/blockberries/relay"
	"github.com/blockberries/relay/types"
)

// Compile-time interface check.
var _ relay.Chain = (*Gateway)(nil)

// Gateway implements relay.Chain on top of a node Client: sponsorship
// looks up the sponsor's nonce and fee on the node before signing,
// and broadcasts go straight to the node.
type Gateway struct {
	client *Client
	// fee is the fixed sponsor fee. Zero means estimate from the node's
	// fee rate and the encoded transaction size.
	fee uint64
}

// NewGateway creates a Gateway. A zero fee enables fee estimation.
func NewGateway(client *Client, fee uint64) *Gateway {
	return &Gateway{client: client, fee: fee}
}

// Sponsor signs tx as sponsor using credential, a hex private key.
func (g *Gateway) Sponsor(ctx context.Context, tx *types.Transaction, credential string, network types.Network) (*types.Transaction, error) {
	key, err := ParsePrivateKey(credential)
	if err != nil {
		return nil, fmt.Errorf("sponsor key: %w", err)
	}
	sponsor := AddressOf(&key.PublicKey)

	nonce, err := g.client.AccountNonce(ctx, sponsor, network)
	if err != nil {
		return nil, err
	}

	fee := g.fee
	if fee == 0 {
		fee, err = g.estimateFee(ctx, tx, sponsor, network)
		if err != nil {
			return nil, err
		}
	}

	return SponsorTransaction(tx, key, network, SponsorOptions{Nonce: nonce, Fee: fee})
}

// Broadcast submits tx through the node client.
func (g *Gateway) Broadcast(ctx context.Context, tx *types.Transaction, network types.Network) (types.BroadcastResult, error) {
	return g.client.Broadcast(ctx, tx, network)
}

// estimateFee prices the fully sponsored transaction at the node's
// per-byte fee rate.
func (g *Gateway) estimateFee(ctx context.Context, tx *types.Transaction, sponsor types.Address, network types.Network) (uint64, error) {
	rate, err := g.client.FeeRate(ctx, network)
	if err != nil {
		return 0, err
	}
	size, err := SponsoredSize(tx, sponsor)
	if err != nil {
		return 0, err
	}
	return rate * uint64(size), nil
}

// SponsoredSize returns the encoded length tx will have once a sponsor
// condition and signature are attached.
func SponsoredSize(tx *types.Transaction, sponsor types.Address) (int, error) {
	c, err := Clone(tx)
	if err != nil {
		return 0, err
	}
	c.Auth.Sponsor = &types.SpendingCondition{
		HashMode:  types.HashModeP2PKH,
		Signer:    sponsor,
		Nonce:     ^uint64(0),
		Fee:       ^uint64(0),
		Signature: make([]byte, types.SignatureLength),
	}
	data, err := Encode(c)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
