package consensus

// ValidationContext carries everything a transaction validates against
// (spec.md §4.5): the in-progress UTXO overlay, the epoch clock, the
// chain tip, the reputation engine, and the data-request pool.
type ValidationContext struct {
	Diff           *UtxoDiff
	Epoch          Epoch
	EpochConstants EpochConstants
	Beacon         CheckpointBeacon
	Trs            *TRS
	Ars            *ARS
	DrPool         *DataRequestPool
	Params         Params
	Wips           ActiveWips
	Crypto         SignatureVerifier
	Rad            RadEvaluator
}

// ValidationResult is what a validated transaction produced: the inputs
// it consumed, the outputs it created, and the fee it leaves for the
// miner.
type ValidationResult struct {
	DependenciesUsed []OutputPointer
	OutputsProduced  []OutputPointer
	Fee              uint64
}

func epochTimestamp(ctx *ValidationContext) uint64 {
	return ctx.EpochConstants.EpochTimestamp(ctx.Epoch)
}

// validateSpentInputs applies the rules shared by every transaction with
// inputs (spec.md §4.5 "Shared rules"): non-empty, matched
// signature/input counts, no duplicate pointers, every output resolves,
// is not time-locked, and its owning signature checks out.
func validateSpentInputs(inputs []Input, sigs []KeyedSignature, ctx *ValidationContext, bodyHash Hash) (uint64, error) {
	if len(inputs) == 0 {
		return 0, cerr(ErrNoInputs, "transaction has no inputs")
	}
	if len(sigs) != len(inputs) {
		return 0, cerrf(ErrMismatchingSignaturesCount, "got %d signatures for %d inputs", len(sigs), len(inputs))
	}

	seen := make(map[OutputPointer]struct{}, len(inputs))
	var total uint64
	ts := epochTimestamp(ctx)

	for i, in := range inputs {
		if _, dup := seen[in.OutputPointer]; dup {
			return 0, cerrf(ErrDuplicatedOutputPointer, "%s referenced twice", in.OutputPointer)
		}
		seen[in.OutputPointer] = struct{}{}

		entry, err := ctx.Diff.Get(in.OutputPointer)
		if err != nil {
			return 0, err
		}
		if entry.Output.IsTimeLocked(ts) {
			return 0, cerrf(ErrTimeLock, "%s time-locked until %d (now %d)", in.OutputPointer, entry.Output.TimeLock, ts)
		}

		sig := sigs[i]
		if ctx.Crypto.PkhFromPublicKey(sig.PublicKey) != entry.Output.Pkh {
			return 0, cerrf(ErrTxPublicKeyHashMismatch, "signature %d does not match output pkh", i)
		}
		if !ctx.Crypto.VerifySignature(sig.PublicKey, bodyHash, sig.Signature) {
			return 0, cerrf(ErrTxVerifySignatureFail, "signature %d does not verify", i)
		}

		total, err = addU64(total, entry.Output.Value)
		if err != nil {
			return 0, cerr(ErrInputValueOverflow, "sum of input values overflows")
		}
	}
	return total, nil
}

// validateNewOutputs applies the shared output rule: no zero-value
// output, sum fits in a uint64.
func validateNewOutputs(outputs []ValueTransferOutput) (uint64, error) {
	var total uint64
	for _, o := range outputs {
		if o.Value == 0 {
			return 0, cerr(ErrZeroValueOutput, "output has zero value")
		}
		var err error
		total, err = addU64(total, o.Value)
		if err != nil {
			return 0, cerr(ErrOutputValueOverflow, "sum of output values overflows")
		}
	}
	return total, nil
}

// ValidateTransaction dispatches to the per-variant rules of spec.md
// §4.5, staging the transaction's effect onto ctx.Diff on success.
func ValidateTransaction(tx *Transaction, ctx *ValidationContext) (ValidationResult, error) {
	switch tx.Kind {
	case KindValueTransfer:
		return validateValueTransfer(tx, ctx)
	case KindDataRequest:
		return validateDataRequest(tx, ctx)
	case KindCommit:
		return validateCommit(tx, ctx)
	case KindReveal:
		return validateReveal(tx, ctx)
	case KindTally:
		return validateTally(tx, ctx)
	case KindMint:
		return validateMintShape(tx, ctx)
	default:
		return ValidationResult{}, cerr(ErrNoInputs, "unknown transaction kind")
	}
}

func stageSpend(ctx *ValidationContext, inputs []Input) {
	for _, in := range inputs {
		ctx.Diff.Remove(in.OutputPointer) // pre-validated to exist; error impossible here
	}
}

func stageOutputs(ctx *ValidationContext, txHash Hash, outputs []ValueTransferOutput, blockNumber uint64) []OutputPointer {
	produced := make([]OutputPointer, len(outputs))
	for i, o := range outputs {
		ptr := OutputPointer{TransactionID: txHash, OutputIndex: uint32(i)}
		ctx.Diff.Insert(ptr, UtxoEntry{Output: o, InclusionBlockNumber: blockNumber})
		produced[i] = ptr
	}
	return produced
}

func validateValueTransfer(tx *Transaction, ctx *ValidationContext) (ValidationResult, error) {
	b := tx.ValueTransfer
	bodyHash := tx.Hash()

	totalIn, err := validateSpentInputs(b.Inputs, tx.Signatures, ctx, bodyHash)
	if err != nil {
		return ValidationResult{}, err
	}
	totalOut, err := validateNewOutputs(b.Outputs)
	if err != nil {
		return ValidationResult{}, err
	}
	if totalOut > totalIn {
		return ValidationResult{}, cerr(ErrNegativeFee, "outputs exceed inputs")
	}
	fee := totalIn - totalOut

	deps := make([]OutputPointer, len(b.Inputs))
	for i, in := range b.Inputs {
		deps[i] = in.OutputPointer
	}
	stageSpend(ctx, b.Inputs)
	produced := stageOutputs(ctx, bodyHash, b.Outputs, uint64(ctx.Epoch))

	return ValidationResult{DependenciesUsed: deps, OutputsProduced: produced, Fee: fee}, nil
}

func validateDataRequest(tx *Transaction, ctx *ValidationContext) (ValidationResult, error) {
	b := tx.DataRequest
	bodyHash := tx.Hash()

	if b.DrOutput.Witnesses < 1 {
		return ValidationResult{}, cerr(ErrInsufficientWitnesses, "witnesses must be >= 1")
	}
	if b.DrOutput.MinConsensusPercentage <= ctx.Params.MinConsensusPercentageLowerBound ||
		b.DrOutput.MinConsensusPercentage >= ctx.Params.MinConsensusPercentageUpperBound {
		return ValidationResult{}, cerrf(ErrInvalidDataRequestValue, "min_consensus_percentage %d out of (%d,%d)",
			b.DrOutput.MinConsensusPercentage, ctx.Params.MinConsensusPercentageLowerBound, ctx.Params.MinConsensusPercentageUpperBound)
	}
	if b.DrOutput.Collateral != 0 && b.DrOutput.Collateral < ctx.Params.CollateralMinimum {
		return ValidationResult{}, cerrf(ErrInvalidDataRequestValue, "collateral %d below minimum %d", b.DrOutput.Collateral, ctx.Params.CollateralMinimum)
	}
	totalDrValue, err := b.DrOutput.TotalDrValue()
	if err != nil {
		return ValidationResult{}, err
	}

	totalIn, err := validateSpentInputs(b.Inputs, tx.Signatures, ctx, bodyHash)
	if err != nil {
		return ValidationResult{}, err
	}
	totalOut, err := validateNewOutputs(b.Outputs)
	if err != nil {
		return ValidationResult{}, err
	}
	locked, err := subU64(totalIn, totalOut)
	if err != nil {
		return ValidationResult{}, cerr(ErrNegativeFee, "outputs exceed inputs")
	}
	if locked < totalDrValue {
		return ValidationResult{}, cerrf(ErrInvalidDataRequestValue, "locked value %d below required %d", locked, totalDrValue)
	}
	fee := locked - totalDrValue

	deps := make([]OutputPointer, len(b.Inputs))
	for i, in := range b.Inputs {
		deps[i] = in.OutputPointer
	}
	stageSpend(ctx, b.Inputs)
	produced := stageOutputs(ctx, bodyHash, b.Outputs, uint64(ctx.Epoch))

	drPointer := OutputPointer{TransactionID: bodyHash, OutputIndex: uint32(len(b.Outputs))}
	if err := ctx.DrPool.AddDataRequest(drPointer, b.DrOutput, ctx.Epoch); err != nil {
		return ValidationResult{}, err
	}

	return ValidationResult{DependenciesUsed: deps, OutputsProduced: produced, Fee: fee}, nil
}

func validateCommit(tx *Transaction, ctx *ValidationContext) (ValidationResult, error) {
	b := tx.Commit
	bodyHash := tx.Hash()

	state, ok := ctx.DrPool.Get(b.DrPointer)
	if !ok {
		return ValidationResult{}, cerrf(ErrDrNotFound, "%s not found", b.DrPointer)
	}
	if state.Stage != StageCommit {
		return ValidationResult{}, cerrf(ErrNotCommitStage, "%s not in COMMIT stage", b.DrPointer)
	}
	if b.Commitment.IsZero() {
		return ValidationResult{}, cerr(ErrMismatchedCommitment, "commitment must be non-zero")
	}

	if err := checkCollateralMaturity(b.CollateralInputs, ctx); err != nil {
		return ValidationResult{}, err
	}

	totalIn, err := validateSpentInputs(b.CollateralInputs, tx.Signatures, ctx, bodyHash)
	if err != nil {
		return ValidationResult{}, err
	}
	totalOut, err := validateNewOutputs(b.CollateralOutputs)
	if err != nil {
		return ValidationResult{}, err
	}
	required := state.DrOutput.EffectiveCollateral(ctx.Params.CollateralMinimum)
	locked, err := subU64(totalIn, totalOut)
	if err != nil || locked != required {
		return ValidationResult{}, cerrf(ErrInvalidDataRequestValue, "collateral locked %d != required %d", locked, required)
	}

	if len(tx.Signatures) == 0 {
		return ValidationResult{}, cerr(ErrMismatchingSignaturesCount, "commit has no signature")
	}
	committerPkh := ctx.Crypto.PkhFromPublicKey(tx.Signatures[0].PublicKey)

	vrfMessage := vrfMessageDataRequest(ctx.Beacon, b.DrPointer)
	vrfHash, ok := ctx.Crypto.VerifyVRF(b.Proof.PublicKey, vrfMessage, b.Proof.Proof)
	if !ok {
		return ValidationResult{}, cerr(ErrInvalidEligibilityProof, "VRF proof does not verify")
	}
	myRep := ctx.Trs.Get(committerPkh, uint64(ctx.Epoch))
	totalActiveRep := ctx.Trs.TotalActiveReputation(ctx.Ars, uint64(ctx.Epoch))
	target := RepPoETarget(myRep, uint32(state.DrOutput.Witnesses), state.BackupWitnesses, totalActiveRep)
	if !RepPoEEligible(vrfHash, target) {
		return ValidationResult{}, cerr(ErrBlockEligibilityDoesNotMeetTarget, "commit eligibility hash above target")
	}

	if err := ctx.DrPool.AddCommit(b.DrPointer, committerPkh, *b); err != nil {
		return ValidationResult{}, err
	}

	deps := make([]OutputPointer, len(b.CollateralInputs))
	for i, in := range b.CollateralInputs {
		deps[i] = in.OutputPointer
	}
	stageSpend(ctx, b.CollateralInputs)
	produced := stageOutputs(ctx, bodyHash, b.CollateralOutputs, uint64(ctx.Epoch))

	return ValidationResult{DependenciesUsed: deps, OutputsProduced: produced, Fee: 0}, nil
}

func validateReveal(tx *Transaction, ctx *ValidationContext) (ValidationResult, error) {
	b := tx.Reveal

	state, ok := ctx.DrPool.Get(b.DrPointer)
	if !ok {
		return ValidationResult{}, cerrf(ErrDrNotFound, "%s not found", b.DrPointer)
	}
	if state.Stage != StageReveal {
		return ValidationResult{}, cerrf(ErrNotRevealStage, "%s not in REVEAL stage", b.DrPointer)
	}
	commit, committed := state.Commits[b.Pkh]
	if !committed {
		return ValidationResult{}, cerrf(ErrCommitNotFound, "no commit from %x for %s", b.Pkh, b.DrPointer)
	}
	if len(tx.Signatures) == 0 {
		return ValidationResult{}, cerr(ErrMismatchingSignaturesCount, "reveal has no signature")
	}
	if ctx.Crypto.PkhFromPublicKey(tx.Signatures[0].PublicKey) != b.Pkh {
		return ValidationResult{}, cerr(ErrTxPublicKeyHashMismatch, "reveal signer does not match declared pkh")
	}
	sigEncoded := encodeSignature(tx.Signatures[0].Signature)
	if HashBytes(sigEncoded) != commit.Commitment {
		return ValidationResult{}, cerr(ErrMismatchedCommitment, "reveal signature does not match stored commitment")
	}

	if err := ctx.DrPool.AddReveal(b.DrPointer, b.Pkh, *b); err != nil {
		return ValidationResult{}, err
	}

	return ValidationResult{}, nil
}

func validateTally(tx *Transaction, ctx *ValidationContext) (ValidationResult, error) {
	b := tx.Tally

	state, ok := ctx.DrPool.Get(b.DrPointer)
	if !ok {
		return ValidationResult{}, cerrf(ErrDrNotFound, "%s not found", b.DrPointer)
	}
	if state.Stage != StageTally {
		return ValidationResult{}, cerrf(ErrNoTallyStage, "%s not in TALLY stage", b.DrPointer)
	}

	pkhs := make([]PublicKeyHash, 0, len(state.Reveals))
	for pkh := range state.Reveals {
		pkhs = append(pkhs, pkh)
	}
	sortedReveals := SortReveals(state.Reveals, b.DrPointer, ctx.Wips, ctx.Epoch)
	sortedPkhs := make([]PublicKeyHash, len(sortedReveals))
	copy(sortedPkhs, orderPkhsLike(state.Reveals, sortedReveals))

	requesterPkh := b.RequesterPkh
	collateral := state.DrOutput.EffectiveCollateral(ctx.Params.CollateralMinimum)

	expected, minerFee, err := BuildTally(state, sortedPkhs, sortedReveals, ctx.Rad, ctx.Wips, ctx.Epoch, requesterPkh, collateral)
	if err != nil {
		return ValidationResult{}, err
	}
	if !tallyBytesEqual(expected, b) {
		return ValidationResult{}, cerr(ErrMismatchedConsensus, "tally does not match locally recomputed result")
	}

	bodyHash := tx.Hash()
	produced := stageOutputs(ctx, bodyHash, b.Outputs, uint64(ctx.Epoch))

	if err := ctx.DrPool.Finalize(b.DrPointer); err != nil {
		return ValidationResult{}, err
	}

	return ValidationResult{OutputsProduced: produced, Fee: minerFee}, nil
}

func orderPkhsLike(reveals map[PublicKeyHash]RevealTxBody, ordered []RevealTxBody) []PublicKeyHash {
	out := make([]PublicKeyHash, len(ordered))
	for i, r := range ordered {
		out[i] = r.Pkh
	}
	return out
}

func tallyBytesEqual(expected *TallyTxBody, actual *TallyTxBody) bool {
	if expected.RequesterPkh != actual.RequesterPkh {
		return false
	}
	if len(expected.Tally) != len(actual.Tally) {
		return false
	}
	for i := range expected.Tally {
		if expected.Tally[i] != actual.Tally[i] {
			return false
		}
	}
	if len(expected.Outputs) != len(actual.Outputs) {
		return false
	}
	for i := range expected.Outputs {
		if expected.Outputs[i] != actual.Outputs[i] {
			return false
		}
	}
	return true
}

// validateMintShape checks the Mint transaction's own structural rules
// (spec.md §4.5): position-0/uniqueness/value-vs-fees cross-checks need
// the whole block's fee total and are enforced by block_validate.go; this
// only validates the shape in isolation.
func validateMintShape(tx *Transaction, ctx *ValidationContext) (ValidationResult, error) {
	b := tx.Mint
	if b.Epoch != ctx.Epoch {
		return ValidationResult{}, cerrf(ErrMismatchedMintValue, "mint epoch %d != block epoch %d", b.Epoch, ctx.Epoch)
	}
	if _, err := validateNewOutputs(b.Outputs); err != nil {
		return ValidationResult{}, err
	}
	bodyHash := tx.Hash()
	produced := stageOutputs(ctx, bodyHash, b.Outputs, uint64(ctx.Epoch))
	return ValidationResult{OutputsProduced: produced, Fee: 0}, nil
}

// checkCollateralMaturity enforces spec.md §4.3 commit-acceptance rule
// (d): a committer's collateral inputs must be confirmed, i.e. mature by
// activity_period blocks (epochs stand in for block numbers here, as
// stageOutputs records InclusionBlockNumber as the including epoch).
// Outputs from genesis (inclusion epoch 0) are always mature.
func checkCollateralMaturity(inputs []Input, ctx *ValidationContext) error {
	for _, in := range inputs {
		entry, err := ctx.Diff.Get(in.OutputPointer)
		if err != nil {
			return err
		}
		if entry.InclusionBlockNumber == 0 {
			continue
		}
		if uint64(ctx.Epoch) < entry.InclusionBlockNumber ||
			uint64(ctx.Epoch)-entry.InclusionBlockNumber < ctx.Params.ActivityPeriod {
			return cerrf(ErrCollateralNotMature, "%s matures at epoch %d, now %d",
				in.OutputPointer, entry.InclusionBlockNumber+ctx.Params.ActivityPeriod, ctx.Epoch)
		}
	}
	return nil
}

// encodeSignature is the canonical bytes a reveal's commitment hashes
// (spec.md §4.3: "commitment = SHA-256(canonical_encode(reveal_signature))").
func encodeSignature(sig Signature) []byte {
	return appendBytesField(nil, 1, sig.Bytes)
}

// vrfMessageDataRequest is the VRF input for data-request witnessing
// eligibility (spec.md §4.9: VrfMessage::data_request(dr_beacon,
// dr_pointer)).
func vrfMessageDataRequest(beacon CheckpointBeacon, ptr OutputPointer) []byte {
	buf := append([]byte("DR_ELIGIBILITY"), encodeBeacon(beacon)...)
	return append(buf, encodeOutputPointer(ptr)...)
}

// vrfMessageBlockMining is the VRF input for block-leadership eligibility
// (spec.md §4.9: VrfMessage::block_mining(beacon)).
func vrfMessageBlockMining(beacon CheckpointBeacon) []byte {
	return append([]byte("BLOCK_ELIGIBILITY"), encodeBeacon(beacon)...)
}
