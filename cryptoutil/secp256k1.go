package cryptoutil

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/witnet-go/core/consensus"
)

// Signer wraps a secp256k1 private key with the signing surface consensus
// needs (consensus.VRFSigner): ECDSA signatures and VRF proofs over the
// node's own key.
type Signer struct {
	priv *secp256k1.PrivateKey
	pub  consensus.PublicKey
	pkh  consensus.PublicKeyHash
}

// NewSigner wraps a raw 32-byte secp256k1 private key.
func NewSigner(privKeyBytes []byte) *Signer {
	priv := secp256k1.PrivKeyFromBytes(privKeyBytes)
	pub := consensus.PublicKey{Bytes: priv.PubKey().SerializeCompressed()}
	return &Signer{priv: priv, pub: pub, pkh: PkhFromPublicKey(pub)}
}

// GenerateSigner creates a Signer from a freshly generated random key, for
// tests and local development nodes.
func GenerateSigner() (*Signer, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return NewSigner(priv.Serialize()), nil
}

// PublicKey returns the signer's compressed public key.
func (s *Signer) PublicKey() consensus.PublicKey { return s.pub }

// Pkh returns the signer's on-chain address.
func (s *Signer) Pkh() consensus.PublicKeyHash { return s.pkh }

// Sign produces a KeyedSignature over msgHash (spec.md §4.5: "Signature
// verifies against the transaction body hash").
func (s *Signer) Sign(msgHash consensus.Hash) (consensus.KeyedSignature, error) {
	digest := msgHash.Bytes()
	sig := ecdsa.Sign(s.priv, digest[:])
	return consensus.KeyedSignature{
		Signature: consensus.Signature{Bytes: sig.Serialize()},
		PublicKey: s.pub,
	}, nil
}

// ProveVRF produces a VRF proof over message, keyed to the signer's own
// public key.
func (s *Signer) ProveVRF(message []byte) (consensus.VRFProof, error) {
	proof, err := vrfProve(s.priv, message)
	if err != nil {
		return consensus.VRFProof{}, err
	}
	return consensus.VRFProof{Proof: proof, PublicKey: s.pub}, nil
}
