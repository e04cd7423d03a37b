package consensus

import "testing"

// fakeCrypto is a SignatureVerifier stub for tests that exercise
// ValidateBlock/ApplyBlock end to end without real secp256k1 or VRF math:
// every signature and proof verifies, and the pkh is just the leading
// bytes of the public key.
type fakeCrypto struct{}

func (fakeCrypto) PkhFromPublicKey(pub PublicKey) PublicKeyHash {
	var p PublicKeyHash
	copy(p[:], pub.Bytes)
	return p
}

func (fakeCrypto) VerifySignature(pub PublicKey, msgHash Hash, sig Signature) bool { return true }

func (fakeCrypto) VerifyVRF(pub PublicKey, message []byte, proof []byte) (Hash, bool) {
	return Hash{}, true
}

func testParams() Params {
	p := DefaultMainnetParams()
	p.CheckpointZeroTimestamp = 0
	p.CheckpointsPeriod = 1 // an epoch's nominal timestamp equals its number, for time-lock tests
	return p
}

func minerKeyedProof(pkhByte byte) (VRFProof, KeyedSignature) {
	pub := PublicKey{Bytes: []byte{pkhByte}}
	proof := VRFProof{PublicKey: pub, Proof: []byte{0xAA}}
	sig := KeyedSignature{PublicKey: pub, Signature: Signature{Bytes: []byte{0xBB}}}
	return proof, sig
}

// S1: an empty block (mint only) at the first minable epoch pays exactly
// initial_block_reward, with no value-transfer fees to add.
func TestScenarioS1MintCorrectness(t *testing.T) {
	params := testParams()
	wips := NewActiveWips(nil)
	cm := NewChainManager(params, wips, fakeCrypto{}, nil)

	tip := cm.Tip()
	beacon := CheckpointBeacon{Checkpoint: tip.Checkpoint + 1, HashPrevBlock: tip.HashPrevBlock}
	proof, blockSig := minerKeyedProof(1)

	mint := NewMintTransaction(MintTxBody{
		Epoch:   beacon.Checkpoint,
		Outputs: []ValueTransferOutput{{Pkh: PublicKeyHash{1}, Value: params.InitialBlockReward}},
	})
	txns := TransactionsByClass{Mint: mint}
	roots := ComputeMerkleRoots(txns)
	header := NewBlockHeader(1, beacon, roots, proof, 0)
	block := &Block{Header: header, BlockSig: blockSig, Txns: txns}

	if err := cm.ApplyBlock(block, beacon.Checkpoint); err != nil {
		t.Fatalf("ApplyBlock: %v", err)
	}
	if got := cm.Tip(); got.Checkpoint != beacon.Checkpoint {
		t.Fatalf("tip checkpoint = %d, want %d", got.Checkpoint, beacon.Checkpoint)
	}
}

// S2: a value-transfer transaction spends a single UTXO into two outputs
// plus a miner fee, and the UTXO set reflects exactly that after the
// containing block is applied.
func TestScenarioS2ValueTransferSpend(t *testing.T) {
	params := testParams()
	wips := NewActiveWips(nil)
	cm := NewChainManager(params, wips, fakeCrypto{}, nil)

	spender := PublicKeyHash{9}
	fundingPtr := OutputPointer{TransactionID: HashBytes([]byte("funding")), OutputIndex: 0}
	cm.state.Utxo.Insert(fundingPtr, UtxoEntry{Output: ValueTransferOutput{Pkh: spender, Value: 1000}})

	tip := cm.Tip()
	beacon := CheckpointBeacon{Checkpoint: tip.Checkpoint + 1, HashPrevBlock: tip.HashPrevBlock}
	proof, blockSig := minerKeyedProof(1)

	vtBody := ValueTransferBody{
		Inputs:  []Input{{OutputPointer: fundingPtr}},
		Outputs: []ValueTransferOutput{{Pkh: PublicKeyHash{2}, Value: 600}, {Pkh: PublicKeyHash{3}, Value: 390}},
	}
	vt := NewValueTransferTransaction(vtBody, []KeyedSignature{{PublicKey: PublicKey{Bytes: []byte{9}}, Signature: Signature{Bytes: []byte{0xCC}}}})

	mint := NewMintTransaction(MintTxBody{
		Epoch:   beacon.Checkpoint,
		Outputs: []ValueTransferOutput{{Pkh: PublicKeyHash{1}, Value: params.InitialBlockReward + 10}},
	})
	txns := TransactionsByClass{Mint: mint, ValueTransfer: []*Transaction{vt}}
	roots := ComputeMerkleRoots(txns)
	header := NewBlockHeader(1, beacon, roots, proof, 0)
	block := &Block{Header: header, BlockSig: blockSig, Txns: txns}

	if err := cm.ApplyBlock(block, beacon.Checkpoint); err != nil {
		t.Fatalf("ApplyBlock: %v", err)
	}
	if _, ok := cm.state.Utxo.Get(fundingPtr); ok {
		t.Fatal("spent input should no longer be in the UTXO set")
	}
	for i, want := range []uint64{600, 390} {
		ptr := OutputPointer{TransactionID: vt.Hash(), OutputIndex: uint32(i)}
		entry, ok := cm.state.Utxo.Get(ptr)
		if !ok || entry.Output.Value != want {
			t.Fatalf("output %d = %+v, %v; want value %d", i, entry, ok, want)
		}
	}
}

// S3: a time-locked output cannot be spent before its lock timestamp and
// can be spent at or after it. With CheckpointsPeriod=1 and
// CheckpointZeroTimestamp=0, an epoch's nominal timestamp equals its
// number, so the lock constants below read directly as epoch-timestamps.
func TestScenarioS3TimeLock(t *testing.T) {
	params := testParams()
	wips := NewActiveWips(nil)

	spender := PublicKeyHash{9}
	lockedPtr := OutputPointer{TransactionID: HashBytes([]byte("locked")), OutputIndex: 0}
	lockedOutput := ValueTransferOutput{Pkh: spender, Value: 1000, TimeLock: 1_000_000}

	newCtx := func(epoch Epoch) *ValidationContext {
		base := NewUnspentOutputsPool()
		base.Insert(lockedPtr, UtxoEntry{Output: lockedOutput})
		return &ValidationContext{
			Diff:           NewUtxoDiff(base),
			Epoch:          epoch,
			EpochConstants: params.EpochConstants(),
			Params:         params,
			Wips:           wips,
			Crypto:         fakeCrypto{},
		}
	}

	spendTx := NewValueTransferTransaction(ValueTransferBody{
		Inputs:  []Input{{OutputPointer: lockedPtr}},
		Outputs: []ValueTransferOutput{{Pkh: PublicKeyHash{2}, Value: 1000}},
	}, []KeyedSignature{{PublicKey: PublicKey{Bytes: []byte{9}}, Signature: Signature{Bytes: []byte{0xCC}}}})

	if _, err := ValidateTransaction(spendTx, newCtx(999_999)); err == nil {
		t.Fatal("expected spend before time_lock to be rejected")
	}
	if _, err := ValidateTransaction(spendTx, newCtx(1_000_001)); err != nil {
		t.Fatalf("expected spend after time_lock to succeed, got %v", err)
	}
}

// S7: a block whose beacon checkpoint is ahead of the wall-clock current
// epoch is rejected outright, never touching state.
func TestScenarioS7BlockFromFuture(t *testing.T) {
	params := testParams()
	wips := NewActiveWips(nil)
	cm := NewChainManager(params, wips, fakeCrypto{}, nil)

	tip := cm.Tip()
	futureBeacon := CheckpointBeacon{Checkpoint: tip.Checkpoint + 5, HashPrevBlock: tip.HashPrevBlock}
	proof, blockSig := minerKeyedProof(1)

	mint := NewMintTransaction(MintTxBody{
		Epoch:   futureBeacon.Checkpoint,
		Outputs: []ValueTransferOutput{{Pkh: PublicKeyHash{1}, Value: params.InitialBlockReward}},
	})
	txns := TransactionsByClass{Mint: mint}
	roots := ComputeMerkleRoots(txns)
	header := NewBlockHeader(1, futureBeacon, roots, proof, 0)
	block := &Block{Header: header, BlockSig: blockSig, Txns: txns}

	err := cm.ApplyBlock(block, tip.Checkpoint+1)
	if err == nil {
		t.Fatal("expected a block from the future to be rejected")
	}
	if got := cm.Tip(); got.Checkpoint != tip.Checkpoint {
		t.Fatalf("tip advanced to %d on a rejected block, want unchanged %d", got.Checkpoint, tip.Checkpoint)
	}
}
