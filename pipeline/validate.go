package pipeline

import (
	"github.com/blockberries/relay"
	"github.com/blockberries/relay/chain"
	"github.com/blockberries/relay/types"
)

// Validated is a decoded sponsored transaction and its sender.
type Validated struct {
	Tx     *types.Transaction
	Sender types.Address
}

// SenderKey is the hex encoding of the sender, used as the rate-limit
// key and in audit events.
func (v *Validated) SenderKey() string { return v.Sender.Hex() }

// Validate decodes rawHex (0x prefix optional) and checks that it is a
// sponsored transaction. It reads nothing but its argument.
//
// Decoding failures are KindMalformed with the decoder's message as
// detail; any authorization kind other than sponsored is
// KindNotSponsored.
func Validate(rawHex string) (*Validated, error) {
	tx, err := chain.DecodeHex(rawHex)
	if err != nil {
		return nil, relay.Wrap(relay.KindMalformed, err)
	}
	if !tx.Sponsored() {
		return nil, &relay.Error{
			Kind:   relay.KindNotSponsored,
			Detail: "authorization is " + tx.Auth.Kind.String() + "; build the transaction with sponsored: true",
		}
	}
	return &Validated{Tx: tx, Sender: tx.Sender()}, nil
}
