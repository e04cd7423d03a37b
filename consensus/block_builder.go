package consensus

import "sort"

// CandidateTransaction pairs a pending transaction with the fee-per-weight
// the builder sorts by (spec.md §4.7 step 2: "sorted by descending
// fee-per-weight").
type CandidateTransaction struct {
	Tx     *Transaction
	Weight uint64
	Fee    uint64
}

func (c CandidateTransaction) feePerWeight() float64 {
	if c.Weight == 0 {
		return 0
	}
	return float64(c.Fee) / float64(c.Weight)
}

// BuildBlockInput bundles everything the builder needs (spec.md §4.7
// "given (tx_pool, utxo_set, dr_pool, max_block_weight, beacon,
// eligibility_claim, miner_pkh, epoch_constants)").
type BuildBlockInput struct {
	ValueTransferCandidates []CandidateTransaction
	DataRequestCandidates   []CandidateTransaction
	Commits                 []*Transaction
	Reveals                 []*Transaction

	Utxo           *UnspentOutputsPool
	DrPool         *DataRequestPool
	MaxBlockWeight uint64
	Beacon         CheckpointBeacon
	EligibilityProof VRFProof
	MinerPkh       PublicKeyHash
	EpochConstants EpochConstants
	Params         Params
	Wips           ActiveWips
	Rad            RadEvaluator
	RequesterPkhOf func(drPointer OutputPointer) PublicKeyHash
}

// BuildBlock assembles an unsigned candidate block (spec.md §4.7
// "Builder"). It never mutates input.Utxo or input.DrPool directly: all
// staging happens on a throwaway UtxoDiff, discarded once the header is
// computed, since the chain manager is the sole owner of committed
// state.
func BuildBlock(input BuildBlockInput) (*Block, uint64, error) {
	diff := NewUtxoDiff(input.Utxo)
	var totalFees uint64

	vts := selectByWeight(input.ValueTransferCandidates, input.MaxBlockWeight)
	var remaining uint64
	if input.MaxBlockWeight > weightOf(vts) {
		remaining = input.MaxBlockWeight - weightOf(vts)
	}
	drs := selectByWeight(input.DataRequestCandidates, remaining)

	var vtTxns, drTxns []*Transaction
	for _, c := range vts {
		if err := stageCandidate(diff, c.Tx); err != nil {
			continue // inputs no longer resolve (already spent by a higher-priority tx); skip
		}
		vtTxns = append(vtTxns, c.Tx)
		totalFees, _ = addU64(totalFees, c.Fee)
	}
	for _, c := range drs {
		if err := stageCandidate(diff, c.Tx); err != nil {
			continue
		}
		drTxns = append(drTxns, c.Tx)
		totalFees, _ = addU64(totalFees, c.Fee)
	}

	var commitTxns, revealTxns []*Transaction
	for _, tx := range input.Commits {
		commitTxns = append(commitTxns, tx)
	}
	for _, tx := range input.Reveals {
		revealTxns = append(revealTxns, tx)
	}

	var tallyTxns []*Transaction
	for _, ptr := range input.DrPool.ReadyForTally() {
		state, ok := input.DrPool.Get(ptr)
		if !ok {
			continue
		}
		pkhs := make([]PublicKeyHash, 0, len(state.Reveals))
		for pkh := range state.Reveals {
			pkhs = append(pkhs, pkh)
		}
		orderedReveals := SortReveals(state.Reveals, ptr, input.Wips, input.Beacon.Checkpoint)
		orderedPkhs := orderPkhsLike(state.Reveals, orderedReveals)
		var requester PublicKeyHash
		if input.RequesterPkhOf != nil {
			requester = input.RequesterPkhOf(ptr)
		}
		collateral := state.DrOutput.EffectiveCollateral(input.Params.CollateralMinimum)
		body, minerFee, err := BuildTally(state, orderedPkhs, orderedReveals, input.Rad, input.Wips, input.Beacon.Checkpoint, requester, collateral)
		if err != nil {
			continue // a RADON failure on one DR must not block the rest of the candidate
		}
		tallyTxns = append(tallyTxns, NewTallyTransaction(*body))
		totalFees, _ = addU64(totalFees, minerFee)
	}

	mintValue, err := addU64(BlockReward(input.Beacon.Checkpoint, input.Params.InitialBlockReward, input.Params.HalvingPeriod), totalFees)
	if err != nil {
		return nil, 0, cerr(ErrFeeOverflow, "block reward + fees overflow")
	}
	mintTx := NewMintTransaction(MintTxBody{
		Epoch:   input.Beacon.Checkpoint,
		Outputs: []ValueTransferOutput{{Pkh: input.MinerPkh, Value: mintValue}},
	})

	txns := TransactionsByClass{
		Mint:          mintTx,
		ValueTransfer: vtTxns,
		DataRequest:   drTxns,
		Commit:        commitTxns,
		Reveal:        revealTxns,
		Tally:         tallyTxns,
	}
	roots := ComputeMerkleRoots(txns)
	header := NewBlockHeader(1, input.Beacon, roots, input.EligibilityProof, 0)

	return &Block{Header: header, Txns: txns}, totalFees, nil
}

func weightOf(cands []CandidateTransaction) uint64 {
	var total uint64
	for _, c := range cands {
		total += c.Weight
	}
	return total
}

// selectByWeight greedily includes candidates in descending
// fee-per-weight order until the budget is exhausted (spec.md §4.7
// step 2/3).
func selectByWeight(candidates []CandidateTransaction, budget uint64) []CandidateTransaction {
	sorted := make([]CandidateTransaction, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].feePerWeight() > sorted[j].feePerWeight() })

	var selected []CandidateTransaction
	var used uint64
	for _, c := range sorted {
		if used+c.Weight > budget {
			continue
		}
		selected = append(selected, c)
		used += c.Weight
	}
	return selected
}

func stageCandidate(diff *UtxoDiff, tx *Transaction) error {
	bodyHash := tx.Hash()
	for _, in := range tx.Inputs() {
		if _, err := diff.Get(in.OutputPointer); err != nil {
			return err
		}
	}
	for _, in := range tx.Inputs() {
		diff.Remove(in.OutputPointer)
	}
	stageOutputsForCandidate(diff, bodyHash, tx.Outputs())
	return nil
}

func stageOutputsForCandidate(diff *UtxoDiff, bodyHash Hash, outputs []ValueTransferOutput) {
	for i, o := range outputs {
		ptr := OutputPointer{TransactionID: bodyHash, OutputIndex: uint32(i)}
		diff.Insert(ptr, UtxoEntry{Output: o})
	}
}
