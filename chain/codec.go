// Package chain is the transaction library of the sponsor relay: it
// decodes and encodes transactions, signs them as origin or sponsor,
// selects networks, and talks to a node's HTTP API to broadcast
// transactions and look up sponsor nonces and fee rates.
//
// Transactions are cramberry-encoded types.Transaction values carried
// as hex strings, with or without a 0x prefix.
package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/blockberries/relay/types"
)

// StripHexPrefix removes a leading 0x or 0X.
func StripHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// DecodeHex decodes a hex-encoded transaction. The 0x prefix is optional.
func DecodeHex(raw string) (*types.Transaction, error) {
	data, err := hexutil.Decode("0x" + StripHexPrefix(strings.TrimSpace(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return Decode(data)
}

// Decode decodes a cramberry-encoded transaction and checks that it is
// structurally valid.
func Decode(data []byte) (*types.Transaction, error) {
	if len(data) == 0 {
		return nil, errors.New("empty transaction")
	}
	tx := new(types.Transaction)
	if err := cramberry.Unmarshal(data, tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if err := CheckStructure(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Encode serializes a transaction.
func Encode(tx *types.Transaction) ([]byte, error) {
	data, err := cramberry.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	return data, nil
}

// EncodeHex serializes a transaction as 0x-prefixed hex.
func EncodeHex(tx *types.Transaction) (string, error) {
	data, err := Encode(tx)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(data), nil
}

// Clone returns a deep copy of tx.
func Clone(tx *types.Transaction) (*types.Transaction, error) {
	data, err := Encode(tx)
	if err != nil {
		return nil, err
	}
	out := new(types.Transaction)
	if err := cramberry.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("clone transaction: %w", err)
	}
	return out, nil
}

// CheckStructure verifies the invariants every decodable transaction
// must hold. It does not check signatures.
func CheckStructure(tx *types.Transaction) error {
	switch tx.Version {
	case types.TxVersionMainnet, types.TxVersionTestnet:
	default:
		return fmt.Errorf("unknown transaction version 0x%02x", uint8(tx.Version))
	}

	switch tx.Payload.Kind {
	case types.PayloadTokenTransfer:
		if tx.Payload.Recipient.IsZero() {
			return errors.New("token transfer has no recipient")
		}
	case types.PayloadContractCall:
		if tx.Payload.Contract == "" || tx.Payload.Function == "" {
			return errors.New("contract call has no contract or function")
		}
	default:
		return fmt.Errorf("unknown payload kind 0x%02x", uint8(tx.Payload.Kind))
	}

	origin := tx.Auth.Origin
	if origin.HashMode != types.HashModeP2PKH {
		return fmt.Errorf("unsupported origin hash mode 0x%02x", uint8(origin.HashMode))
	}
	if origin.Signer.IsZero() {
		return errors.New("origin signer is empty")
	}
	if len(origin.Signature) != types.SignatureLength {
		return fmt.Errorf("origin signature must be %d bytes, got %d", types.SignatureLength, len(origin.Signature))
	}

	switch tx.Auth.Kind {
	case types.AuthStandard:
		if tx.Auth.Sponsor != nil {
			return errors.New("standard authorization carries a sponsor condition")
		}
	case types.AuthSponsored:
		if origin.Fee != 0 {
			return fmt.Errorf("sponsored origin fee must be 0, got %d", origin.Fee)
		}
	default:
		return fmt.Errorf("unknown authorization kind 0x%02x", uint8(tx.Auth.Kind))
	}
	return nil
}

// ParseAddress parses a hex address of 20 bytes. The 0x prefix is
// optional.
func ParseAddress(s string) (types.Address, error) {
	data, err := hexutil.Decode("0x" + StripHexPrefix(strings.TrimSpace(s)))
	if err != nil {
		return types.Address{}, fmt.Errorf("decode address: %w", err)
	}
	var addr types.Address
	if len(data) != len(addr) {
		return types.Address{}, fmt.Errorf("address is %d bytes, want %d", len(data), len(addr))
	}
	copy(addr[:], data)
	return addr, nil
}
