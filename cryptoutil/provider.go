package cryptoutil

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/witnet-go/core/consensus"
)

// Provider implements consensus.SignatureVerifier over secp256k1 ECDSA and
// the ECVRF construction in vrf.go. It holds no state: every method is a
// pure function of its arguments, so the zero value is ready to use.
type Provider struct{}

// PkhFromPublicKey derives the on-chain address from pub.
func (Provider) PkhFromPublicKey(pub consensus.PublicKey) consensus.PublicKeyHash {
	return PkhFromPublicKey(pub)
}

// VerifySignature checks a DER-encoded secp256k1 ECDSA signature over
// msgHash. Non-canonical (high-S) signatures are rejected by
// Signature.Verify, which enforces low-S form.
func (Provider) VerifySignature(pub consensus.PublicKey, msgHash consensus.Hash, sig consensus.Signature) bool {
	pubKey, err := parsePublicKey(pub)
	if err != nil {
		return false
	}
	parsed, err := ecdsa.ParseDERSignature(sig.Bytes)
	if err != nil {
		return false
	}
	digest := msgHash.Bytes()
	return parsed.Verify(digest[:], pubKey)
}

// VerifyVRF checks a VRF proof over message against pub, returning the
// proof's hash output on success.
func (Provider) VerifyVRF(pub consensus.PublicKey, message []byte, proof []byte) (consensus.Hash, bool) {
	pubKey, err := parsePublicKey(pub)
	if err != nil {
		return consensus.Hash{}, false
	}
	return vrfVerify(pubKey, message, proof)
}
