package chain

import "github.com/blockberries/relay/types"

// TransferOptions describe a token transfer.
type TransferOptions struct {
	Recipient types.Address
	Amount    uint64
	Memo      string
	// Nonce is the origin account nonce.
	Nonce uint64
	// Fee is the origin fee. Ignored for sponsored transfers, whose
	// origin fee is always zero.
	Fee uint64
	// Sponsored selects sponsored authorization.
	Sponsored bool
}

// NewTokenTransfer builds an unsigned token transfer for network.
// Sign it with SignOrigin before submitting.
func NewTokenTransfer(network types.Network, opts TransferOptions) *types.Transaction {
	kind := types.AuthStandard
	fee := opts.Fee
	if opts.Sponsored {
		kind = types.AuthSponsored
		fee = 0
	}
	return &types.Transaction{
		Version: network.Version,
		ChainID: network.ChainID,
		Auth: types.Authorization{
			Kind: kind,
			Origin: types.SpendingCondition{
				HashMode: types.HashModeP2PKH,
				Nonce:    opts.Nonce,
				Fee:      fee,
			},
		},
		AnchorMode:        types.AnchorAny,
		PostConditionMode: types.PostConditionDeny,
		Payload: types.Payload{
			Kind:      types.PayloadTokenTransfer,
			Recipient: opts.Recipient,
			Amount:    opts.Amount,
			Memo:      opts.Memo,
		},
	}
}
