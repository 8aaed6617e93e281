package chain_test

import (
	"crypto/ecdsa"
	"testing"

	"github.com/blockberries/relay/chain"
	"github.com/blockberries/relay/types"
)

const (
	originKeyHex  = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	sponsorKeyHex = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
)

func mustKey(t *testing.T, s string) *ecdsa.PrivateKey {
	t.Helper()
	key, err := chain.ParsePrivateKey(s)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	return key
}

// unsignedTransfer builds a testnet token transfer with the given
// authorization kind, ready for SignOrigin.
func unsignedTransfer(kind types.AuthKind, nonce uint64) *types.Transaction {
	return chain.NewTokenTransfer(chain.Testnet(), chain.TransferOptions{
		Recipient: types.Address{0xAA, 0xBB},
		Amount:    1000,
		Memo:      "agent payment",
		Nonce:     nonce,
		Fee:       180,
		Sponsored: kind == types.AuthSponsored,
	})
}

func signedTransfer(t *testing.T, kind types.AuthKind) *types.Transaction {
	t.Helper()
	tx, err := chain.SignOrigin(unsignedTransfer(kind, 7), mustKey(t, originKeyHex))
	if err != nil {
		t.Fatalf("SignOrigin: %v", err)
	}
	return tx
}

func encodeHex(t *testing.T, tx *types.Transaction) string {
	t.Helper()
	s, err := chain.EncodeHex(tx)
	if err != nil {
		t.Fatalf("EncodeHex: %v", err)
	}
	return s
}
