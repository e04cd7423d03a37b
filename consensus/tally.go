package consensus

import "sort"

// RadValue is a decoded RADON result: either a well-formed value or a
// well-formed error (the two coexist, as opposed to a decode failure,
// which the evaluator surfaces as MalformedReveal via an error return
// rather than as a RadValue — spec.md §4.6 "malformed reveals ... still
// participate in tally computation as errors" but are distinguished from
// a revealer who deliberately published a well-formed error value).
type RadValue struct {
	IsError bool
	Bytes   []byte
}

// Equal reports whether two RadValues carry the same kind and payload,
// the comparison the tally classification rules (spec.md §4.6) are built
// on.
func (v RadValue) Equal(o RadValue) bool {
	if v.IsError != o.IsError || len(v.Bytes) != len(o.Bytes) {
		return false
	}
	for i := range v.Bytes {
		if v.Bytes[i] != o.Bytes[i] {
			return false
		}
	}
	return true
}

// RadEvaluator is the external RADON-execution collaborator (spec.md §1:
// RADON execution semantics stay out of core scope). The tally builder
// calls it to decode each revealer's raw bytes and to fold the decoded
// values through the data request's tally script.
type RadEvaluator interface {
	// DecodeReveal parses raw reveal bytes into a RadValue. A non-nil
	// error means the bytes are malformed; the caller treats that
	// revealer as an out-of-consensus error reporter without consulting
	// Bytes.
	DecodeReveal(raw []byte) (RadValue, error)
	// Aggregate folds the tally script over every well-formed decoded
	// value (including well-formed error values) and returns the
	// consensus result.
	Aggregate(tallyScript []byte, values []RadValue) (RadValue, error)
}

// RevealOutcome classifies one revealer against the consensus value
// (spec.md §4.6).
type RevealOutcome uint8

const (
	OutcomeHonest RevealOutcome = iota
	OutcomeOutOfConsensusError
	OutcomeOutOfConsensusLie
)

// ClassifiedReveal pairs a revealer with its decoded value and outcome.
type ClassifiedReveal struct {
	Pkh     PublicKeyHash
	Value   RadValue
	Outcome RevealOutcome
}

// ClassifyReveals decodes and classifies every ordered reveal against the
// tally script's consensus result (spec.md §4.6). Reveal order must
// already follow SortReveals; classification does not resort.
func ClassifyReveals(ordered []RevealTxBody, pkhs []PublicKeyHash, tallyScript []byte, evaluator RadEvaluator) (consensus RadValue, classified []ClassifiedReveal, tallyBytes []byte, err error) {
	values := make([]RadValue, len(ordered))
	malformed := make([]bool, len(ordered))
	for i, r := range ordered {
		v, decodeErr := evaluator.DecodeReveal(r.Reveal)
		if decodeErr != nil {
			malformed[i] = true
			continue
		}
		values[i] = v
	}

	wellFormed := make([]RadValue, 0, len(values))
	for i, v := range values {
		if !malformed[i] {
			wellFormed = append(wellFormed, v)
		}
	}

	consensus, aggErr := evaluator.Aggregate(tallyScript, wellFormed)
	if aggErr != nil {
		return RadValue{}, nil, nil, cerrf(ErrRadScriptRuntimeFailure, "tally aggregate: %v", aggErr)
	}

	classified = make([]ClassifiedReveal, len(ordered))
	for i := range ordered {
		c := ClassifiedReveal{Pkh: pkhs[i], Value: values[i]}
		switch {
		case malformed[i]:
			c.Outcome = OutcomeOutOfConsensusError
		case values[i].IsError:
			if consensus.IsError || !values[i].Equal(consensus) {
				c.Outcome = OutcomeOutOfConsensusError
			} else {
				c.Outcome = OutcomeHonest
			}
		default:
			if !consensus.IsError && values[i].Equal(consensus) {
				c.Outcome = OutcomeHonest
			} else {
				c.Outcome = OutcomeOutOfConsensusLie
			}
		}
		classified[i] = c
	}
	return consensus, classified, consensus.Bytes, nil
}

// TallyRewards is the deterministic output of folding a data request's
// rewards (spec.md §4.5's Tally variant rules): per-revealer payouts plus
// the requester's change and any residual that accrues to the miner
// through fee accounting (the slashing remainder, or the whole slashed
// pool once lie-slashing redistribution is disabled).
type TallyRewards struct {
	Outputs        []ValueTransferOutput
	OutOfConsensus []PublicKeyHash
	ErrorReporters []PublicKeyHash
	MinerFee       uint64
}

// BuildTallyRewards computes payouts for a classified reveal set per
// spec.md §4.5/§4.6. totalCommits and totalReveals are the raw counts
// observed by the data request pool (including revealers later found
// dishonest); witnesses is dr_output.Witnesses (not counting backup
// slots, which only affect eligibility, never economics).
func BuildTallyRewards(drOutput DataRequestOutput, collateral uint64, classified []ClassifiedReveal, totalCommits, totalReveals int, wips ActiveWips, epoch Epoch, requesterPkh PublicKeyHash) (TallyRewards, error) {
	witnesses := uint64(drOutput.Witnesses)

	var honest, liars, errorReporters []PublicKeyHash
	for _, c := range classified {
		switch c.Outcome {
		case OutcomeHonest:
			honest = append(honest, c.Pkh)
		case OutcomeOutOfConsensusLie:
			liars = append(liars, c.Pkh)
		case OutcomeOutOfConsensusError:
			errorReporters = append(errorReporters, c.Pkh)
		}
	}

	lieSlashingActive := wips.IsActive(WipLieSlashing, epoch)
	slashingDisabled := wips.IsActive(WipDisableSlashing, epoch)

	var outputs []ValueTransferOutput
	var minerFee uint64

	slashedPerLiar := uint64(0)
	slashedTotal := uint64(0)
	if lieSlashingActive && !slashingDisabled {
		slashedTotal = collateral * uint64(len(liars))
	}
	var bonusPerHonest, remainder uint64
	if len(honest) > 0 && slashedTotal > 0 {
		bonusPerHonest = slashedTotal / uint64(len(honest))
		remainder = slashedTotal % uint64(len(honest))
	}

	for _, pkh := range honest {
		reward, err := addU64(drOutput.WitnessReward, collateral)
		if err != nil {
			return TallyRewards{}, err
		}
		reward, err = addU64(reward, bonusPerHonest)
		if err != nil {
			return TallyRewards{}, err
		}
		outputs = append(outputs, ValueTransferOutput{Pkh: pkh, Value: reward})
	}
	minerFee, _ = addU64(minerFee, remainder)

	for _, pkh := range errorReporters {
		outputs = append(outputs, ValueTransferOutput{Pkh: pkh, Value: collateral})
	}

	for _, pkh := range liars {
		switch {
		case !lieSlashingActive:
			outputs = append(outputs, ValueTransferOutput{Pkh: pkh, Value: collateral})
		case slashingDisabled:
			slashedPerLiar, _ = addU64(slashedPerLiar, collateral)
			// forfeited, no output; the whole amount accrues as miner fee below
		default:
			// forfeited to the honest-reveal redistribution pool, already
			// paid out above.
		}
	}
	minerFee, _ = addU64(minerFee, slashedPerLiar)

	honestCount := uint64(len(honest))
	changeRewardPart, err := mulU64(drOutput.WitnessReward, witnesses-minUint64(witnesses, honestCount))
	if err != nil {
		return TallyRewards{}, err
	}
	unusedReveals := witnesses - minUint64(witnesses, uint64(totalReveals))
	unusedCommits := witnesses - minUint64(witnesses, uint64(totalCommits))
	feeSlots, err := addU64(unusedReveals, unusedCommits)
	if err != nil {
		return TallyRewards{}, err
	}
	changeFeePart, err := mulU64(drOutput.CommitAndRevealFee, feeSlots)
	if err != nil {
		return TallyRewards{}, err
	}
	change, err := addU64(changeRewardPart, changeFeePart)
	if err != nil {
		return TallyRewards{}, err
	}
	if change > 0 {
		outputs = append(outputs, ValueTransferOutput{Pkh: requesterPkh, Value: change})
	}

	return TallyRewards{
		Outputs:        outputs,
		OutOfConsensus: liars,
		ErrorReporters: errorReporters,
		MinerFee:       minerFee,
	}, nil
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// BuildTally runs the full oracle-fold (spec.md §4.6) and assembles the
// resulting TallyTxBody: decode, aggregate, classify, then compute
// rewards. The caller is responsible for ordering reveals with
// SortReveals before calling this.
func BuildTally(drState *DataRequestState, orderedPkhs []PublicKeyHash, orderedReveals []RevealTxBody, evaluator RadEvaluator, wips ActiveWips, epoch Epoch, requesterPkh PublicKeyHash, collateral uint64) (*TallyTxBody, uint64, error) {
	if len(orderedReveals) == 0 {
		rewards, err := BuildTallyRewards(drState.DrOutput, collateral, nil, len(drState.Commits), 0, wips, epoch, requesterPkh)
		if err != nil {
			return nil, 0, err
		}
		// No reveals: every committer gets collateral back as "error"
		// participants (spec.md S6: "both committers receive their
		// collateral back"). Committers are walked in the same
		// consensus order as SortReveals so the refund outputs land at
		// a byte-deterministic position regardless of map iteration.
		active := wips.IsActive(WipRevealOrdering, epoch)
		committers := make([]PublicKeyHash, 0, len(drState.Commits))
		for pkh := range drState.Commits {
			committers = append(committers, pkh)
		}
		sort.Slice(committers, func(i, j int) bool {
			return bytesLess(revealSortKey(committers[i], drState.DrPointer, active), revealSortKey(committers[j], drState.DrPointer, active))
		})
		for _, pkh := range committers {
			rewards.Outputs = append(rewards.Outputs, ValueTransferOutput{Pkh: pkh, Value: collateral})
		}
		return &TallyTxBody{
			DrPointer:    drState.DrPointer,
			Tally:        nil,
			Outputs:      rewards.Outputs,
			Error:        committers,
			RequesterPkh: requesterPkh,
		}, rewards.MinerFee, nil
	}

	_, classified, tallyBytes, err := ClassifyReveals(orderedReveals, orderedPkhs, drState.DrOutput.DataRequest, evaluator)
	if err != nil {
		return nil, 0, err
	}
	rewards, err := BuildTallyRewards(drState.DrOutput, collateral, classified, len(drState.Commits), len(drState.Reveals), wips, epoch, requesterPkh)
	if err != nil {
		return nil, 0, err
	}
	return &TallyTxBody{
		DrPointer:      drState.DrPointer,
		Tally:          tallyBytes,
		Outputs:        rewards.Outputs,
		OutOfConsensus: rewards.OutOfConsensus,
		Error:          rewards.ErrorReporters,
		RequesterPkh:   requesterPkh,
	}, rewards.MinerFee, nil
}

// bytesLess is the byte-lexicographic order revealSortKey comparisons use.
func bytesLess(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
