package consensus

// BlockValidationContext carries what the block validator needs beyond a
// single transaction's ValidationContext (spec.md §4.7 "Validator"):
// the chain tip, the wall-clock current epoch, and the miner's claimed
// eligibility proof.
type BlockValidationContext struct {
	Tip            CheckpointBeacon
	CurrentEpoch   Epoch
	EpochConstants EpochConstants
	Params         Params
	Wips           ActiveWips
	Crypto         SignatureVerifier
	Trs            *TRS
	Ars            *ARS
	DrPool         *DataRequestPool
	Rad            RadEvaluator
	Utxo           *UnspentOutputsPool
}

// ValidateBlock runs the full pipeline of spec.md §4.7's Validator over a
// candidate block, staging every transaction's effect onto a fresh
// UtxoDiff and a cloned DataRequestPool, returning both (uncommitted) on
// success so the chain manager can apply them atomically, or nils plus a
// BlockError on rejection. Validation never partially mutates base state:
// the UTXO diff and the DR-pool clone are only ever discarded by the
// caller on error, exactly like rejecting a UtxoDiff without calling
// Commit (spec.md §4.7 "Validation is all-or-nothing").
func ValidateBlock(block *Block, bvc *BlockValidationContext) (*UtxoDiff, *DataRequestPool, uint64, error) {
	txns := block.Txns.All()
	if len(txns) == 0 || block.Txns.Mint == nil {
		return nil, nil, 0, cerr(ErrEmpty, "block has no mint transaction")
	}
	if txns[0] != block.Txns.Mint {
		return nil, nil, 0, cerr(ErrNoMint, "mint transaction must be at position 0")
	}

	epoch := block.Header.Beacon.Checkpoint
	if epoch > bvc.CurrentEpoch {
		return nil, nil, 0, cerr(ErrBlockFromFuture, "block epoch is in the future")
	}
	if epoch <= bvc.Tip.Checkpoint {
		return nil, nil, 0, cerr(ErrBlockOlderThanTip, "block epoch does not advance the tip")
	}
	if epoch != bvc.CurrentEpoch {
		return nil, nil, 0, cerr(ErrCandidateFromDifferentEpoch, "block epoch does not match current epoch")
	}
	if block.Header.Beacon.HashPrevBlock != bvc.Tip.HashPrevBlock {
		return nil, nil, 0, cerr(ErrPreviousHashNotKnown, "block does not build on the known tip")
	}

	activeIdentities := bvc.Ars.ActiveIdentitiesNumber()
	target := RandPoETarget(activeIdentities, bvc.Params.MiningBackupFactor)
	vrfMsg := vrfMessageBlockMining(block.Header.Beacon)
	vrfHash, ok := bvc.Crypto.VerifyVRF(block.Header.Proof.PublicKey, vrfMsg, block.Header.Proof.Proof)
	if !ok {
		return nil, nil, 0, cerr(ErrNotValidPoe, "block eligibility proof does not verify")
	}
	if !RandPoEEligible(vrfHash, target) {
		return nil, nil, 0, cerr(ErrBlockEligibilityDoesNotMeetTarget, "block eligibility hash above target")
	}

	minerPkh := bvc.Crypto.PkhFromPublicKey(block.Header.Proof.PublicKey)
	if bvc.Crypto.PkhFromPublicKey(block.BlockSig.PublicKey) != minerPkh {
		return nil, nil, 0, cerr(ErrPublicKeyHashMismatch, "block signature pkh does not match proof pkh")
	}
	if !bvc.Crypto.VerifySignature(block.BlockSig.PublicKey, block.Header.Hash(), block.BlockSig.Signature) {
		return nil, nil, 0, cerr(ErrVerifySignatureFail, "block signature does not verify")
	}

	recomputedRoots := ComputeMerkleRoots(block.Txns)
	if recomputedRoots != block.Header.Roots {
		return nil, nil, 0, cerr(ErrNotValidMerkleTree, "merkle roots do not match header")
	}

	diff := NewUtxoDiff(bvc.Utxo)
	drPool := bvc.DrPool.Clone()
	ctx := &ValidationContext{
		Diff:           diff,
		Epoch:          epoch,
		EpochConstants: bvc.EpochConstants,
		Beacon:         block.Header.Beacon,
		Trs:            bvc.Trs,
		Ars:            bvc.Ars,
		DrPool:         drPool,
		Params:         bvc.Params,
		Wips:           bvc.Wips,
		Crypto:         bvc.Crypto,
		Rad:            bvc.Rad,
	}

	var totalFees uint64
	spent := make(map[OutputPointer]struct{})
	for i, tx := range txns {
		if tx.Kind == KindMint {
			if i != 0 {
				return nil, nil, 0, cerr(ErrNoMint, "mint transaction not at position 0")
			}
			continue // validated after the fee total is known, below
		}
		result, err := ValidateTransaction(tx, ctx)
		if err != nil {
			return nil, nil, 0, err
		}
		for _, dep := range result.DependenciesUsed {
			if _, dup := spent[dep]; dup {
				return nil, nil, 0, cerrf(ErrDuplicatedOutputPointer, "%s spent twice in the same block", dep)
			}
			spent[dep] = struct{}{}
		}
		var err2 error
		totalFees, err2 = addU64(totalFees, result.Fee)
		if err2 != nil {
			return nil, nil, 0, cerr(ErrFeeOverflow, "total block fees overflow")
		}
	}

	expectedMintValue, err := addU64(BlockReward(epoch, bvc.Params.InitialBlockReward, bvc.Params.HalvingPeriod), totalFees)
	if err != nil {
		return nil, nil, 0, cerr(ErrFeeOverflow, "block reward + fees overflow")
	}
	var mintTotal uint64
	for _, o := range block.Txns.Mint.Outputs {
		var err3 error
		mintTotal, err3 = addU64(mintTotal, o.Value)
		if err3 != nil {
			return nil, nil, 0, cerr(ErrMismatchedMintValue, "mint output sum overflows")
		}
	}
	if mintTotal != expectedMintValue {
		return nil, nil, 0, cerrf(ErrMismatchedMintValue, "mint pays %d, expected %d", mintTotal, expectedMintValue)
	}
	mintBodyHash := block.Txns.Mint.Hash()
	stageOutputs(ctx, mintBodyHash, block.Txns.Mint.Outputs, uint64(epoch))

	return diff, drPool, totalFees, nil
}
