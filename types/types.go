// Package types defines the data types exchanged by the sponsor
// relay: transactions and their authorizations, network descriptors,
// broadcast results and audit log events.
//
// These are plain Go structs with cramberry struct tags for
// deterministic binary serialization. Transactions travel as
// hex-encoded cramberry bytes; audit events travel over the gRPC
// log sink binding with the same codec.
package types

import "encoding/hex"

// Address is the 20-byte identity derived from a signer's public key.
type Address [20]byte

// Hex returns the lowercase hex encoding of the address without a prefix.
func (a Address) Hex() string { return hex.EncodeToString(a[:]) }

// String returns the 0x-prefixed hex encoding of the address.
func (a Address) String() string { return "0x" + a.Hex() }

// IsZero reports whether the address is all zero bytes.
func (a Address) IsZero() bool { return a == Address{} }

// TxVersion distinguishes mainnet from testnet transactions.
type TxVersion uint8

const (
	TxVersionMainnet TxVersion = 0x00
	TxVersionTestnet TxVersion = 0x80
)

// Network describes the ledger a transaction is sponsored for and
// broadcast to.
type Network struct {
	Name    string    `cramberry:"1"`
	Version TxVersion `cramberry:"2"`
	ChainID uint32    `cramberry:"3"`
	// Base URL of the node API, without a trailing slash.
	CoreAPIURL string `cramberry:"4"`
}
