// Package cryptoutil provides the secp256k1 signing, verification, VRF,
// and address-encoding primitives that consensus treats as an external
// collaborator (spec.md §1: "signature primitives ... treated as sign,
// verify, vrf_prove, vrf_verify").
package cryptoutil

import (
	"crypto/sha256"

	"github.com/decred/dcrd/bech32/v3"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/witnet-go/core/consensus"
)

// bech32HRP is the human-readable part for on-chain addresses (spec.md
// §4.10: "20-byte PKH encoded in a bech32 variant with the wit HRP").
const bech32HRP = "wit"

// PkhFromPublicKey derives the 20-byte address form from a compressed
// public key: the low 20 bytes of SHA-256(compressed_pubkey).
func PkhFromPublicKey(pub consensus.PublicKey) consensus.PublicKeyHash {
	digest := sha256.Sum256(pub.Bytes)
	var pkh consensus.PublicKeyHash
	copy(pkh[:], digest[len(digest)-20:])
	return pkh
}

// EncodeAddress renders pkh as a bech32 "wit1..." address for display.
func EncodeAddress(pkh consensus.PublicKeyHash) (string, error) {
	converted, err := bech32.ConvertBits(pkh[:], 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(bech32HRP, converted)
}

// DecodeAddress parses a "wit1..." address back into a PublicKeyHash.
func DecodeAddress(addr string) (consensus.PublicKeyHash, error) {
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return consensus.PublicKeyHash{}, err
	}
	if hrp != bech32HRP {
		return consensus.PublicKeyHash{}, errInvalidHRP(hrp)
	}
	converted, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return consensus.PublicKeyHash{}, err
	}
	if len(converted) != 20 {
		return consensus.PublicKeyHash{}, errInvalidPkhLength(len(converted))
	}
	var pkh consensus.PublicKeyHash
	copy(pkh[:], converted)
	return pkh, nil
}

func parsePublicKey(pub consensus.PublicKey) (*secp256k1.PublicKey, error) {
	return secp256k1.ParsePubKey(pub.Bytes)
}
