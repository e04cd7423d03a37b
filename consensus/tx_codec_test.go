package consensus

import "testing"

func mustHash(s string) Hash { return HashBytes([]byte(s)) }

func TestEncodeTxBodyRoundTripValueTransfer(t *testing.T) {
	tx := NewValueTransferTransaction(ValueTransferBody{
		Inputs:  []Input{{OutputPointer: OutputPointer{TransactionID: mustHash("prev"), OutputIndex: 1}}},
		Outputs: []ValueTransferOutput{{Pkh: PublicKeyHash{1, 2, 3}, Value: 555, TimeLock: 10}},
	}, nil)

	decoded, err := DecodeTxBody(EncodeTxBody(tx))
	if err != nil {
		t.Fatalf("DecodeTxBody: %v", err)
	}
	if decoded.Kind != KindValueTransfer {
		t.Fatalf("decoded kind = %v, want KindValueTransfer", decoded.Kind)
	}
	if decoded.Hash() != tx.Hash() {
		t.Fatal("round-tripped body should hash identically to the original")
	}
	if len(decoded.ValueTransfer.Outputs) != 1 || decoded.ValueTransfer.Outputs[0].Value != 555 {
		t.Fatalf("decoded outputs = %+v", decoded.ValueTransfer.Outputs)
	}
}

func TestEncodeTxBodyRoundTripMint(t *testing.T) {
	tx := NewMintTransaction(MintTxBody{
		Epoch:   42,
		Outputs: []ValueTransferOutput{{Pkh: PublicKeyHash{9}, Value: 1000}},
	})
	decoded, err := DecodeTxBody(EncodeTxBody(tx))
	if err != nil {
		t.Fatalf("DecodeTxBody: %v", err)
	}
	if decoded.Mint.Epoch != 42 {
		t.Fatalf("decoded epoch = %d, want 42", decoded.Mint.Epoch)
	}
	if decoded.Hash() != tx.Hash() {
		t.Fatal("mint round-trip hash mismatch")
	}
}

func TestEncodeTxBodyRoundTripReveal(t *testing.T) {
	tx := NewRevealTransaction(RevealTxBody{
		DrPointer: OutputPointer{TransactionID: mustHash("dr"), OutputIndex: 0},
		Pkh:       PublicKeyHash{7, 7, 7},
		Reveal:    []byte{0x00, 0xAB, 0xCD},
	}, nil)
	decoded, err := DecodeTxBody(EncodeTxBody(tx))
	if err != nil {
		t.Fatalf("DecodeTxBody: %v", err)
	}
	if string(decoded.Reveal.Reveal) != string([]byte{0x00, 0xAB, 0xCD}) {
		t.Fatalf("decoded reveal payload mismatch: %x", decoded.Reveal.Reveal)
	}
}

func TestTransactionHashExcludesSignatures(t *testing.T) {
	body := ValueTransferBody{
		Outputs: []ValueTransferOutput{{Value: 1}},
	}
	unsigned := NewValueTransferTransaction(body, nil)
	signed := NewValueTransferTransaction(body, []KeyedSignature{{
		Signature: Signature{Bytes: []byte{1, 2, 3}},
		PublicKey: PublicKey{Bytes: []byte{4, 5, 6}},
	}})
	if unsigned.Hash() != signed.Hash() {
		t.Fatal("transaction hash must not depend on signatures")
	}
}

func TestDecodeTxBodyRejectsEmpty(t *testing.T) {
	if _, err := DecodeTxBody(nil); err == nil {
		t.Fatal("expected error decoding empty body")
	}
}
