package consensus

// BlockEligibility is the result of checking whether this node may
// produce a block at the current epoch (spec.md §4.9 step 1).
type BlockEligibility struct {
	Eligible bool
	Proof    VRFProof
}

// CheckBlockEligibility computes the VRF proof over
// VrfMessage::block_mining(beacon) and compares its hash against the
// RandPoE target (spec.md §4.9 step 1). signer produces the VRF proof;
// crypto verifies it immediately so the caller never broadcasts a proof
// it could not itself validate.
func CheckBlockEligibility(beacon CheckpointBeacon, signer VRFSigner, crypto SignatureVerifier, ars *ARS, backupFactor uint32) (BlockEligibility, error) {
	message := vrfMessageBlockMining(beacon)
	proof, err := signer.ProveVRF(message)
	if err != nil {
		return BlockEligibility{}, err
	}
	vrfHash, ok := crypto.VerifyVRF(proof.PublicKey, message, proof.Proof)
	if !ok {
		return BlockEligibility{}, cerr(ErrInvalidEligibilityProof, "self-produced VRF proof failed verification")
	}
	target := RandPoETarget(ars.ActiveIdentitiesNumber(), backupFactor)
	return BlockEligibility{Eligible: RandPoEEligible(vrfHash, target), Proof: proof}, nil
}

// DataRequestEligibility is the result of checking whether this node may
// witness a specific open data request (spec.md §4.9 step 3).
type DataRequestEligibility struct {
	Eligible bool
	Proof    VRFProof
}

// CheckDataRequestEligibility computes the VRF proof over
// VrfMessage::data_request(dr_beacon, dr_pointer) and compares its hash
// against the RepPoE target.
func CheckDataRequestEligibility(drBeacon CheckpointBeacon, drPointer OutputPointer, signer VRFSigner, crypto SignatureVerifier, myPkh PublicKeyHash, drOutput DataRequestOutput, backupWitnesses uint32, trs *TRS, ars *ARS, atAlpha uint64) (DataRequestEligibility, error) {
	message := vrfMessageDataRequest(drBeacon, drPointer)
	proof, err := signer.ProveVRF(message)
	if err != nil {
		return DataRequestEligibility{}, err
	}
	vrfHash, ok := crypto.VerifyVRF(proof.PublicKey, message, proof.Proof)
	if !ok {
		return DataRequestEligibility{}, cerr(ErrInvalidEligibilityProof, "self-produced VRF proof failed verification")
	}
	myRep := trs.Get(myPkh, atAlpha)
	totalActiveRep := trs.TotalActiveReputation(ars, atAlpha)
	target := RepPoETarget(myRep, uint32(drOutput.Witnesses), backupWitnesses, totalActiveRep)
	return DataRequestEligibility{Eligible: RepPoEEligible(vrfHash, target), Proof: proof}, nil
}

// VRFSigner is the narrow interface to the node's own signing key
// (spec.md §1: "signature manager" stays an external collaborator).
type VRFSigner interface {
	ProveVRF(message []byte) (VRFProof, error)
	Sign(msgHash Hash) (KeyedSignature, error)
	Pkh() PublicKeyHash
}

// PreparedCommit is a commit ready for broadcast alongside the deferred
// reveal it commits to (spec.md §4.9 step 3: "prepare a commit
// (commitment = hash of the pre-computed reveal signature) and a
// deferred reveal").
type PreparedCommit struct {
	Commit *Transaction
	Reveal RevealTxBody
}

// PrepareCommit builds a commit transaction whose commitment is the hash
// of a reveal signature computed up front, and the matching (unsigned)
// reveal body to broadcast once the request reaches REVEAL stage. The
// caller supplies the already-selected collateral inputs/change and the
// plaintext reveal payload. The commitment is the hash of the encoded
// signature that signer.Sign produces over the reveal transaction's hash.
func PrepareCommit(drPointer OutputPointer, revealPayload []byte, collateralInputs []Input, collateralOutputs []ValueTransferOutput, proof VRFProof, signer VRFSigner) (PreparedCommit, error) {
	revealBodyForSig := RevealTxBody{DrPointer: drPointer, Pkh: signer.Pkh(), Reveal: revealPayload}
	revealTxForHash := NewRevealTransaction(revealBodyForSig, nil)
	revealSig, err := signer.Sign(revealTxForHash.Hash())
	if err != nil {
		return PreparedCommit{}, err
	}
	commitment := HashBytes(encodeSignature(revealSig.Signature))

	commitBody := CommitTxBody{
		DrPointer:         drPointer,
		Commitment:        commitment,
		Proof:             proof,
		CollateralInputs:  collateralInputs,
		CollateralOutputs: collateralOutputs,
	}
	commitTxForHash := NewCommitTransaction(commitBody, nil)
	commitSig, err := signer.Sign(commitTxForHash.Hash())
	if err != nil {
		return PreparedCommit{}, err
	}
	commitTx := NewCommitTransaction(commitBody, []KeyedSignature{commitSig})

	return PreparedCommit{Commit: commitTx, Reveal: revealBodyForSig}, nil
}

// SelectInputs greedily picks UTXOs owned by pkh from pool until their
// total reaches at least target, returning the selected inputs, their
// total value, and any change owed back to pkh (supplemented from
// original_source's transaction_factory.rs build-inputs-for-value
// pattern, SPEC_FULL.md §9). Used by test fixtures; the block builder's
// mint construction does not call it, and mining's commit path supplies
// its own collateral inputs directly.
func SelectInputs(pool *UnspentOutputsPool, pkh PublicKeyHash, target uint64) ([]Input, uint64, error) {
	var inputs []Input
	var total uint64
	pool.VisitWithPkh(pkh, func(ptr OutputPointer, entry UtxoEntry) {
		if total >= target {
			return
		}
		inputs = append(inputs, Input{OutputPointer: ptr})
		total += entry.Output.Value
	}, func(ptr OutputPointer, entry UtxoEntry) {
		if total >= target {
			return
		}
		inputs = append(inputs, Input{OutputPointer: ptr})
		total += entry.Output.Value
	})
	if total < target {
		return nil, 0, cerrf(ErrOutputNotFound, "insufficient funds for %x: have %d, need %d", pkh, total, target)
	}
	return inputs, total, nil
}
