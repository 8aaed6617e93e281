package chain

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zeebo/blake3"

	"github.com/blockberries/relay/types"
)

// ParsePrivateKey parses a hex-encoded secp256k1 private key. The 0x
// prefix is optional, and a trailing 01 compression marker (33-byte
// keys, as exported by most wallets) is accepted.
func ParsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	s = StripHexPrefix(strings.TrimSpace(s))
	if len(s) == 66 && strings.HasSuffix(s, "01") {
		s = s[:64]
	}
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// AddressOf derives the signer address of a public key.
func AddressOf(pub *ecdsa.PublicKey) types.Address {
	return types.Address(crypto.PubkeyToAddress(*pub))
}

// OriginSigHash is the digest the origin signs: the transaction with
// the origin signature cleared and no sponsor condition.
func OriginSigHash(tx *types.Transaction) ([32]byte, error) {
	c, err := Clone(tx)
	if err != nil {
		return [32]byte{}, err
	}
	c.Auth.Origin.Signature = nil
	c.Auth.Sponsor = nil
	return hashOf(c)
}

// SponsorSigHash is the digest the sponsor signs: the transaction
// with the origin signature in place and the sponsor signature cleared.
func SponsorSigHash(tx *types.Transaction) ([32]byte, error) {
	if tx.Auth.Sponsor == nil {
		return [32]byte{}, errors.New("transaction has no sponsor condition")
	}
	c, err := Clone(tx)
	if err != nil {
		return [32]byte{}, err
	}
	c.Auth.Sponsor.Signature = nil
	return hashOf(c)
}

// TxID returns the 0x-prefixed transaction id.
func TxID(tx *types.Transaction) (string, error) {
	sum, err := hashOf(tx)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sum[:]), nil
}

func hashOf(tx *types.Transaction) ([32]byte, error) {
	data, err := Encode(tx)
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(data), nil
}

// SignOrigin returns a copy of tx with the origin signer set to key's
// address and the origin signature filled in.
func SignOrigin(tx *types.Transaction, key *ecdsa.PrivateKey) (*types.Transaction, error) {
	out, err := Clone(tx)
	if err != nil {
		return nil, err
	}
	out.Auth.Origin.HashMode = types.HashModeP2PKH
	out.Auth.Origin.Signer = AddressOf(&key.PublicKey)
	digest, err := OriginSigHash(out)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return nil, fmt.Errorf("sign origin: %w", err)
	}
	out.Auth.Origin.Signature = sig
	return out, nil
}

// SponsorOptions are the sponsor's spending-condition parameters.
type SponsorOptions struct {
	Nonce uint64
	Fee   uint64
}

// SponsorTransaction returns a copy of tx carrying the sponsor's
// spending condition, fee and signature. The input is not modified
// and the origin signature is carried over unchanged.
func SponsorTransaction(tx *types.Transaction, key *ecdsa.PrivateKey, network types.Network, opts SponsorOptions) (*types.Transaction, error) {
	if !tx.Sponsored() {
		return nil, fmt.Errorf("transaction authorization is %s, not sponsored", tx.Auth.Kind)
	}
	if tx.Version != network.Version || tx.ChainID != network.ChainID {
		return nil, fmt.Errorf("transaction is for chain 0x%08x (version 0x%02x), network %s is chain 0x%08x",
			tx.ChainID, uint8(tx.Version), network.Name, network.ChainID)
	}

	out, err := Clone(tx)
	if err != nil {
		return nil, err
	}
	out.Auth.Sponsor = &types.SpendingCondition{
		HashMode: types.HashModeP2PKH,
		Signer:   AddressOf(&key.PublicKey),
		Nonce:    opts.Nonce,
		Fee:      opts.Fee,
	}
	digest, err := SponsorSigHash(out)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return nil, fmt.Errorf("sign sponsor: %w", err)
	}
	out.Auth.Sponsor.Signature = sig
	return out, nil
}

// RecoverSigner returns the address that produced sig over digest.
func RecoverSigner(digest [32]byte, sig []byte) (types.Address, error) {
	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return types.Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return AddressOf(pub), nil
}

// VerifySignatures checks that the origin signature (and the sponsor
// signature, if present) were produced by the declared signers.
func VerifySignatures(tx *types.Transaction) error {
	digest, err := OriginSigHash(tx)
	if err != nil {
		return err
	}
	signer, err := RecoverSigner(digest, tx.Auth.Origin.Signature)
	if err != nil {
		return fmt.Errorf("origin: %w", err)
	}
	if signer != tx.Auth.Origin.Signer {
		return fmt.Errorf("origin signed by %s, declared %s", signer, tx.Auth.Origin.Signer)
	}
	if tx.Auth.Sponsor == nil {
		return nil
	}
	digest, err = SponsorSigHash(tx)
	if err != nil {
		return err
	}
	signer, err = RecoverSigner(digest, tx.Auth.Sponsor.Signature)
	if err != nil {
		return fmt.Errorf("sponsor: %w", err)
	}
	if signer != tx.Auth.Sponsor.Signer {
		return fmt.Errorf("sponsor signed by %s, declared %s", signer, tx.Auth.Sponsor.Signer)
	}
	return nil
}
