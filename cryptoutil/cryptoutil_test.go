package cryptoutil

import (
	"testing"

	"github.com/witnet-go/core/consensus"
)

func hashOf(t *testing.T, s string) consensus.Hash {
	t.Helper()
	return consensus.HashBytes([]byte(s))
}

func TestSignVerifyRoundtrip(t *testing.T) {
	signer, err := GenerateSigner()
	if err != nil {
		t.Fatal(err)
	}
	msgHash := hashOf(t, "hello witnet")

	sig, err := signer.Sign(msgHash)
	if err != nil {
		t.Fatal(err)
	}

	var provider Provider
	if !provider.VerifySignature(signer.PublicKey(), msgHash, sig.Signature) {
		t.Fatal("signature did not verify")
	}

	other := hashOf(t, "different message")
	if provider.VerifySignature(signer.PublicKey(), other, sig.Signature) {
		t.Fatal("signature verified against the wrong message")
	}
}

func TestVRFProveVerify(t *testing.T) {
	signer, err := GenerateSigner()
	if err != nil {
		t.Fatal(err)
	}
	message := []byte("epoch-beacon-bytes")

	proof, err := signer.ProveVRF(message)
	if err != nil {
		t.Fatal(err)
	}

	var provider Provider
	out1, ok := provider.VerifyVRF(signer.PublicKey(), message, proof.Proof)
	if !ok {
		t.Fatal("vrf proof did not verify")
	}
	out2, ok := provider.VerifyVRF(signer.PublicKey(), message, proof.Proof)
	if !ok || out1 != out2 {
		t.Fatal("vrf output is not deterministic")
	}

	if _, ok := provider.VerifyVRF(signer.PublicKey(), []byte("different message"), proof.Proof); ok {
		t.Fatal("vrf proof verified against the wrong message")
	}

	other, err := GenerateSigner()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := provider.VerifyVRF(other.PublicKey(), message, proof.Proof); ok {
		t.Fatal("vrf proof verified against the wrong public key")
	}
}

func TestAddressRoundtrip(t *testing.T) {
	signer, err := GenerateSigner()
	if err != nil {
		t.Fatal(err)
	}
	pkh := signer.Pkh()

	addr, err := EncodeAddress(pkh)
	if err != nil {
		t.Fatal(err)
	}
	if addr[:3] != "wit" {
		t.Fatalf("address %q missing wit prefix", addr)
	}

	decoded, err := DecodeAddress(addr)
	if err != nil {
		t.Fatal(err)
	}
	if decoded != pkh {
		t.Fatalf("roundtrip mismatch: got %x, want %x", decoded, pkh)
	}

	if _, err := DecodeAddress("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"); err == nil {
		t.Fatal("expected error decoding a non-wit address")
	}
}
