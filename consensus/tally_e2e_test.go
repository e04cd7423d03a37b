package consensus

import "testing"

// These exercise BuildTally through the full build -> sign -> ApplyBlock
// path (validateTally included), rather than only at the BuildTallyRewards
// unit level, so a mismatch between what the builder emits and what the
// validator recomputes shows up as a test failure.

func seedReadyDataRequest(t *testing.T, cm *ChainManager, label string, witnesses uint32, commit, reveal bool) OutputPointer {
	t.Helper()
	ptr := sampleDrPointer(label)
	dr := DataRequestOutput{
		Witnesses:          uint16(witnesses),
		WitnessReward:      100,
		CommitAndRevealFee: 10,
		Collateral:         1_000_000_000,
	}
	if err := cm.state.DrPool.AddDataRequest(ptr, dr, 0); err != nil {
		t.Fatalf("AddDataRequest: %v", err)
	}
	committers := make([]PublicKeyHash, witnesses)
	for i := range committers {
		committers[i] = pkhOf(byte(10 + i))
		if err := cm.state.DrPool.AddCommit(ptr, committers[i], CommitTxBody{}); err != nil {
			t.Fatalf("AddCommit: %v", err)
		}
	}
	cm.state.DrPool.UpdateStages(1, 1000) // COMMIT -> REVEAL: all witnesses committed
	if !reveal {
		for i := 0; i < 3; i++ {
			cm.state.DrPool.UpdateStages(1, 1000) // exhaust REVEAL rounds with zero reveals
		}
		return ptr
	}
	for _, pkh := range committers {
		if err := cm.state.DrPool.AddReveal(ptr, pkh, RevealTxBody{DrPointer: ptr, Pkh: pkh, Reveal: []byte("42")}); err != nil {
			t.Fatalf("AddReveal: %v", err)
		}
	}
	cm.state.DrPool.UpdateStages(1, 1000) // REVEAL -> TALLY: everyone revealed
	return ptr
}

func TestTallyBuildValidateRoundTripFullConsensus(t *testing.T) {
	cm := NewChainManager(testParams(), NewActiveWips(nil), fakeCrypto{}, fakeEvaluator{})
	ptr := seedReadyDataRequest(t, cm, "e2e-s4", 2, true, true)
	requester := pkhOf(250)
	signer := newFakeSigner(9)

	block, eligible, err := cm.TryMineBlock(signer, nil, nil, nil, nil, func(OutputPointer) PublicKeyHash { return requester })
	if err != nil {
		t.Fatalf("TryMineBlock: %v", err)
	}
	if !eligible || len(block.Txns.Tally) != 1 || block.Txns.Tally[0].Tally.DrPointer != ptr {
		t.Fatalf("expected a single built tally for %v, got %+v", ptr, block.Txns.Tally)
	}

	sig, err := signer.Sign(block.Header.Hash())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	block.BlockSig = sig
	if err := cm.ApplyBlock(block, block.Header.Beacon.Checkpoint); err != nil {
		t.Fatalf("ApplyBlock rejected a correctly built tally: %v", err)
	}
	if _, ok := cm.state.DrPool.Get(ptr); ok {
		t.Fatal("expected the data request finalized (removed from the pool) after ApplyBlock")
	}
}

// S6: two committers, nobody reveals. The refund outputs must be ordered
// deterministically (not by Go map iteration) and the requester's change
// output must be recoverable by the validator without relying on its
// position among the outputs.
func TestTallyBuildValidateRoundTripZeroReveals(t *testing.T) {
	cm := NewChainManager(testParams(), NewActiveWips(nil), fakeCrypto{}, fakeEvaluator{})
	ptr := seedReadyDataRequest(t, cm, "e2e-s6", 2, true, false)
	requester := pkhOf(250)
	signer := newFakeSigner(9)

	block, eligible, err := cm.TryMineBlock(signer, nil, nil, nil, nil, func(OutputPointer) PublicKeyHash { return requester })
	if err != nil {
		t.Fatalf("TryMineBlock: %v", err)
	}
	if !eligible || len(block.Txns.Tally) != 1 {
		t.Fatalf("expected a single built tally for %v, got %+v", ptr, block.Txns.Tally)
	}
	tally := block.Txns.Tally[0].Tally
	if tally.RequesterPkh != requester {
		t.Fatalf("RequesterPkh = %x, want %x", tally.RequesterPkh, requester)
	}
	if len(tally.Outputs) != 3 {
		t.Fatalf("expected requester change + 2 committer refunds, got %d outputs: %+v", len(tally.Outputs), tally.Outputs)
	}

	sig, err := signer.Sign(block.Header.Hash())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	block.BlockSig = sig
	if err := cm.ApplyBlock(block, block.Header.Beacon.Checkpoint); err != nil {
		t.Fatalf("ApplyBlock rejected a correctly built zero-reveal tally: %v", err)
	}
}

// A block that fails partway through validation (here: a second tally
// referencing an already-finalized pointer) must leave the live DR pool
// exactly as it was before ApplyBlock was called.
func TestApplyBlockRejectedTallyLeavesDrPoolUntouched(t *testing.T) {
	cm := NewChainManager(testParams(), NewActiveWips(nil), fakeCrypto{}, fakeEvaluator{})
	ptr := seedReadyDataRequest(t, cm, "e2e-reject", 1, true, true)
	signer := newFakeSigner(9)

	block, eligible, err := cm.TryMineBlock(signer, nil, nil, nil, nil, func(OutputPointer) PublicKeyHash { return pkhOf(250) })
	if err != nil {
		t.Fatalf("TryMineBlock: %v", err)
	}
	if !eligible || len(block.Txns.Tally) != 1 {
		t.Fatalf("expected one built tally, got %+v", block.Txns.Tally)
	}

	badTxns := block.Txns
	badTxns.Tally = []*Transaction{block.Txns.Tally[0], block.Txns.Tally[0]}
	roots := ComputeMerkleRoots(badTxns)
	header := NewBlockHeader(block.Header.Version, block.Header.Beacon, roots, block.Header.Proof, block.Header.Signaling)
	badBlock := &Block{Header: header, Txns: badTxns}
	sig, err := signer.Sign(header.Hash())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	badBlock.BlockSig = sig

	if err := cm.ApplyBlock(badBlock, badBlock.Header.Beacon.Checkpoint); err == nil {
		t.Fatal("expected the duplicated tally to be rejected")
	}
	state, ok := cm.state.DrPool.Get(ptr)
	if !ok || state.Stage != StageTally {
		t.Fatalf("rejected block must leave the DR pool untouched: Get = %+v, %v", state, ok)
	}
}
