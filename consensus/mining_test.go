package consensus

import "testing"

// fakeSigner is a VRFSigner stub: it produces deterministic, non-validated
// proofs/signatures that fakeCrypto always accepts.
type fakeSigner struct {
	pkh PublicKeyHash
	pub PublicKey
}

func newFakeSigner(b byte) fakeSigner {
	return fakeSigner{pkh: pkhOf(b), pub: PublicKey{Bytes: []byte{b}}}
}

func (s fakeSigner) ProveVRF(message []byte) (VRFProof, error) {
	return VRFProof{PublicKey: s.pub, Proof: []byte{0xAA}}, nil
}

func (s fakeSigner) Sign(msgHash Hash) (KeyedSignature, error) {
	return KeyedSignature{PublicKey: s.pub, Signature: Signature{Bytes: []byte{0xBB}}}, nil
}

func (s fakeSigner) Pkh() PublicKeyHash { return s.pkh }

func TestCheckBlockEligibilityBootstrapAlwaysEligible(t *testing.T) {
	ars := NewARS(100)
	el, err := CheckBlockEligibility(CheckpointBeacon{Checkpoint: 1}, newFakeSigner(1), fakeCrypto{}, ars, 4)
	if err != nil {
		t.Fatalf("CheckBlockEligibility: %v", err)
	}
	if !el.Eligible {
		t.Fatal("expected eligibility with zero active identities (bootstrap case)")
	}
}

func TestCheckDataRequestEligibilityBootstrapAlwaysEligible(t *testing.T) {
	ars := NewARS(100)
	trs := NewTRS(0.002)
	ptr := sampleDrPointer("dr1")
	el, err := CheckDataRequestEligibility(CheckpointBeacon{Checkpoint: 1}, ptr, newFakeSigner(1), fakeCrypto{}, pkhOf(1), DataRequestOutput{Witnesses: 1}, 0, trs, ars, 1)
	if err != nil {
		t.Fatalf("CheckDataRequestEligibility: %v", err)
	}
	if !el.Eligible {
		t.Fatal("expected eligibility with zero total active reputation (bootstrap case)")
	}
}

func TestPrepareCommitBuildsMatchingCommitmentAndReveal(t *testing.T) {
	signer := newFakeSigner(1)
	ptr := sampleDrPointer("dr1")
	proof := VRFProof{PublicKey: signer.pub, Proof: []byte{0xAA}}

	prepared, err := PrepareCommit(ptr, []byte("42"), nil, nil, proof, signer)
	if err != nil {
		t.Fatalf("PrepareCommit: %v", err)
	}
	if prepared.Reveal.DrPointer != ptr || string(prepared.Reveal.Reveal) != "42" {
		t.Fatalf("prepared reveal = %+v", prepared.Reveal)
	}
	revealTx := NewRevealTransaction(prepared.Reveal, []KeyedSignature{{PublicKey: signer.pub, Signature: Signature{Bytes: []byte{0xBB}}}})
	wantCommitment := HashBytes(encodeSignature(Signature{Bytes: []byte{0xBB}}))
	if prepared.Commit.Commit.Commitment != wantCommitment {
		t.Fatalf("commitment = %x, want %x", prepared.Commit.Commit.Commitment, wantCommitment)
	}
	_ = revealTx
}

func TestSelectInputsAccumulatesUntilTarget(t *testing.T) {
	pool := NewUnspentOutputsPool()
	pkh := pkhOf(1)
	pool.Insert(testPointer("a"), UtxoEntry{Output: ValueTransferOutput{Pkh: pkh, Value: 100}})
	pool.Insert(testPointer("b"), UtxoEntry{Output: ValueTransferOutput{Pkh: pkh, Value: 200}})
	pool.Insert(testPointer("c"), UtxoEntry{Output: ValueTransferOutput{Pkh: pkhOf(2), Value: 1000}})

	inputs, total, err := SelectInputs(pool, pkh, 250)
	if err != nil {
		t.Fatalf("SelectInputs: %v", err)
	}
	if total < 250 {
		t.Fatalf("total = %d, want >= 250", total)
	}
	if len(inputs) == 0 {
		t.Fatal("expected at least one input selected")
	}
}

func TestSelectInputsInsufficientFundsFails(t *testing.T) {
	pool := NewUnspentOutputsPool()
	pkh := pkhOf(1)
	pool.Insert(testPointer("a"), UtxoEntry{Output: ValueTransferOutput{Pkh: pkh, Value: 50}})
	if _, _, err := SelectInputs(pool, pkh, 1000); err == nil {
		t.Fatal("expected error when the pkh's UTXOs can't cover the target")
	}
}

func TestTryMineBlockBuildsEligibleBlock(t *testing.T) {
	cm := NewChainManager(testParams(), NewActiveWips(nil), fakeCrypto{}, nil)
	signer := newFakeSigner(1)

	block, eligible, err := cm.TryMineBlock(signer, nil, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("TryMineBlock: %v", err)
	}
	if !eligible || block == nil {
		t.Fatal("expected eligibility with zero active identities (bootstrap) and a non-nil block")
	}
	if block.Header.Beacon.Checkpoint != cm.Tip().Checkpoint+1 {
		t.Fatalf("candidate beacon checkpoint = %d, want %d", block.Header.Beacon.Checkpoint, cm.Tip().Checkpoint+1)
	}
	if block.Txns.Mint == nil || block.Txns.Mint.Outputs[0].Pkh != signer.Pkh() {
		t.Fatal("expected the mint output to pay the signer's own pkh")
	}

	sig, err := signer.Sign(block.Header.Hash())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	block.BlockSig = sig
	if err := cm.ApplyBlock(block, block.Header.Beacon.Checkpoint); err != nil {
		t.Fatalf("ApplyBlock on mined block: %v", err)
	}
}
