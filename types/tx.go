package types

import "fmt"

// AuthKind is the authorization tag on a transaction. A standard
// transaction pays its own fee; a sponsored transaction carries a
// second spending condition filled in by the sponsor.
type AuthKind uint8

const (
	AuthStandard  AuthKind = 0x04
	AuthSponsored AuthKind = 0x05
)

func (k AuthKind) String() string {
	switch k {
	case AuthStandard:
		return "standard"
	case AuthSponsored:
		return "sponsored"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(k))
	}
}

// HashMode identifies how a spending condition's signer is derived.
type HashMode uint8

const (
	// HashModeP2PKH is a single-signature condition over a secp256k1 key.
	HashModeP2PKH HashMode = 0x00
)

// AnchorMode controls which blocks may include the transaction.
type AnchorMode uint8

const (
	AnchorOnChainOnly  AnchorMode = 0x01
	AnchorOffChainOnly AnchorMode = 0x02
	AnchorAny          AnchorMode = 0x03
)

// PostConditionMode controls whether unlisted asset transfers abort
// the transaction.
type PostConditionMode uint8

const (
	PostConditionAllow PostConditionMode = 0x01
	PostConditionDeny  PostConditionMode = 0x02
)

// PayloadKind identifies the action a transaction performs.
type PayloadKind uint8

const (
	PayloadTokenTransfer PayloadKind = 0x00
	PayloadContractCall  PayloadKind = 0x02
)

// SignatureLength is the size of a recoverable secp256k1 signature.
const SignatureLength = 65

// SpendingCondition is one signer's authorization: who signs, at
// which account nonce, paying which fee.
type SpendingCondition struct {
	HashMode HashMode `cramberry:"1"`
	Signer   Address  `cramberry:"2"`
	Nonce    uint64   `cramberry:"3"`
	Fee      uint64   `cramberry:"4"`
	// Recoverable secp256k1 signature (r || s || v). Empty until signed.
	Signature []byte `cramberry:"5"`
}

// Authorization carries the origin's spending condition and, for
// sponsored transactions, the sponsor's.
type Authorization struct {
	Kind   AuthKind          `cramberry:"1"`
	Origin SpendingCondition `cramberry:"2"`
	// Nil until a sponsor attaches its condition.
	Sponsor *SpendingCondition `cramberry:"3"`
}

// Payload is the action carried by a transaction.
type Payload struct {
	Kind PayloadKind `cramberry:"1"`

	// Token transfer fields.
	Recipient Address `cramberry:"2"`
	Amount    uint64  `cramberry:"3"`
	Memo      string  `cramberry:"4"`

	// Contract call fields.
	Contract string   `cramberry:"5"`
	Function string   `cramberry:"6"`
	Args     [][]byte `cramberry:"7"`
}

// Transaction is a decoded ledger transaction.
type Transaction struct {
	Version           TxVersion         `cramberry:"1"`
	ChainID           uint32            `cramberry:"2"`
	Auth              Authorization     `cramberry:"3"`
	AnchorMode        AnchorMode        `cramberry:"4"`
	PostConditionMode PostConditionMode `cramberry:"5"`
	Payload           Payload           `cramberry:"6"`
}

// Sponsored reports whether the transaction uses the sponsored
// authorization kind.
func (tx *Transaction) Sponsored() bool { return tx.Auth.Kind == AuthSponsored }

// Sender returns the origin signer, the identity that rate limits
// and audit events are keyed by.
func (tx *Transaction) Sender() Address { return tx.Auth.Origin.Signer }
