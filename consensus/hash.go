package consensus

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Hash is a tagged variant currently holding only the SHA256 case, kept as
// a distinct type (rather than a bare [32]byte) so that a future tagged
// variant can be added without changing every call site — the zero value
// is the all-zero SHA256 hash, matching spec.md's default.
type Hash struct {
	sha256 [32]byte
}

// ZeroHash is the default/genesis-placeholder hash.
var ZeroHash = Hash{}

// NewSHA256Hash wraps a raw 32-byte digest as a Hash.
func NewSHA256Hash(digest [32]byte) Hash {
	return Hash{sha256: digest}
}

// HashBytes computes SHA-256 over b and wraps it as a Hash. This is the
// canonical hash function for every consensus object per spec.md §4.1:
// hash(O) = SHA-256(encode(O)).
func HashBytes(b []byte) Hash {
	return Hash{sha256: sha256.Sum256(b)}
}

// Bytes returns the raw 32-byte digest.
func (h Hash) Bytes() [32]byte { return h.sha256 }

// Slice returns the digest as a freshly allocated byte slice.
func (h Hash) Slice() []byte {
	out := make([]byte, 32)
	copy(out, h.sha256[:])
	return out
}

func (h Hash) String() string { return hex.EncodeToString(h.sha256[:]) }

// IsZero reports whether h is the default all-zero hash.
func (h Hash) IsZero() bool { return h.sha256 == [32]byte{} }

// Compare implements lexicographic ordering over the raw digest, per
// spec.md §3 ("Ordered lexicographically").
func (h Hash) Compare(o Hash) int {
	return bytes.Compare(h.sha256[:], o.sha256[:])
}

// Less reports whether h sorts before o.
func (h Hash) Less(o Hash) bool { return h.Compare(o) < 0 }

// HashFromHex parses a 64-char hex string into a Hash.
func HashFromHex(s string) (Hash, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, cerrf(ErrRadParseFailure, "hash: invalid hex: %v", err)
	}
	if len(raw) != 32 {
		return Hash{}, cerrf(ErrRadParseFailure, "hash: expected 32 bytes, got %d", len(raw))
	}
	var out Hash
	copy(out.sha256[:], raw)
	return out, nil
}
