package relaytest

import (
	"crypto/ecdsa"
	"testing"

	"github.com/blockberries/relay/chain"
	"github.com/blockberries/relay/types"
)

// Well-known test keys. Never fund these.
const (
	AgentKey   = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	AgentKey2  = "8da4ef21b864d2cc526dbdb2a120bd2874c36c9d0a1fb7f8c63d7f7a8b41de8f"
	SponsorKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
)

// Key parses one of the test keys.
func Key(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	t.Helper()
	key, err := chain.ParsePrivateKey(hexKey)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	return key
}

// Address returns the address of a test key.
func Address(t *testing.T, hexKey string) types.Address {
	t.Helper()
	return chain.AddressOf(&Key(t, hexKey).PublicKey)
}

// Transfer builds and origin-signs a testnet token transfer from the
// given key.
func Transfer(t *testing.T, hexKey string, sponsored bool, nonce uint64) *types.Transaction {
	t.Helper()
	tx := chain.NewTokenTransfer(chain.Testnet(), chain.TransferOptions{
		Recipient: types.Address{0xAA, 0xBB, 0xCC},
		Amount:    2500,
		Memo:      "relaytest",
		Nonce:     nonce,
		Fee:       180,
		Sponsored: sponsored,
	})
	signed, err := chain.SignOrigin(tx, Key(t, hexKey))
	if err != nil {
		t.Fatalf("SignOrigin: %v", err)
	}
	return signed
}

// Hex encodes tx with a 0x prefix.
func Hex(t *testing.T, tx *types.Transaction) string {
	t.Helper()
	s, err := chain.EncodeHex(tx)
	if err != nil {
		t.Fatalf("EncodeHex: %v", err)
	}
	return s
}

// SponsoredHex returns a signed sponsored transfer from hexKey.
func SponsoredHex(t *testing.T, hexKey string, nonce uint64) string {
	t.Helper()
	return Hex(t, Transfer(t, hexKey, true, nonce))
}

// StandardHex returns a signed standard (self-paying) transfer.
func StandardHex(t *testing.T, hexKey string, nonce uint64) string {
	t.Helper()
	return Hex(t, Transfer(t, hexKey, false, nonce))
}
