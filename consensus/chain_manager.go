package consensus

import "sync"

// ChainInfo is the small header-level summary persisted alongside the
// rest of ChainState (spec.md §4.8).
type ChainInfo struct {
	GenesisHash Hash
	Tip         CheckpointBeacon
}

// ChainState is the reducer's owned state (spec.md §4.8): "chain_info,
// unspent_outputs_pool, data_request_pool, block_chain: BTreeMap<Epoch,
// Hash>, reputation_engine". block_chain is a plain map here; callers
// needing range queries iterate BlockChain directly or use
// BlockHashAtEpoch.
type ChainState struct {
	Info              ChainInfo
	Utxo              *UnspentOutputsPool
	DrPool            *DataRequestPool
	BlockChain        map[Epoch]Hash
	Trs               *TRS
	Ars               *ARS
}

// ChainManager is the single-writer reducer over a ChainState (spec.md
// §5: "no two apply_block operations interleave"). One sync.Mutex, no
// actor/channel indirection — matching the teacher's
// mutex-guarded-owned-state idiom rather than introducing goroutines
// this module has no other use for.
type ChainManager struct {
	mu    sync.Mutex
	state ChainState

	params Params
	wips   ActiveWips
	crypto SignatureVerifier
	rad    RadEvaluator

	checkpoints map[Epoch]fullCheckpoint
}

// fullCheckpoint is everything Rewind needs to restore ChainState to the
// end of a past epoch without replaying from genesis (spec.md §4.8
// "implementations may snapshot periodically").
type fullCheckpoint struct {
	info       ChainInfo
	blockChain map[Epoch]Hash
	utxo       map[OutputPointer]UtxoEntry
	drPool     PoolSnapshot
	trs        map[PublicKeyHash][]GrantSnapshot
	arsRing    []map[PublicKeyHash]struct{}
	arsHead    int
}

// NewChainManager wires a ChainManager around a genesis ChainState.
func NewChainManager(params Params, wips ActiveWips, crypto SignatureVerifier, rad RadEvaluator) *ChainManager {
	return &ChainManager{
		state: ChainState{
			Info:       ChainInfo{GenesisHash: params.GenesisHash, Tip: CheckpointBeacon{Checkpoint: 0, HashPrevBlock: params.GenesisHash}},
			Utxo:       NewUnspentOutputsPool(),
			DrPool:     NewDataRequestPool(),
			BlockChain: make(map[Epoch]Hash),
			Trs:        NewTRS(params.ReputationDemurrage),
			Ars:        NewARS(params.ActivityPeriod),
		},
		params:      params,
		wips:        wips,
		crypto:      crypto,
		rad:         rad,
		checkpoints: make(map[Epoch]fullCheckpoint),
	}
}

// Tip returns the current chain tip beacon.
func (m *ChainManager) Tip() CheckpointBeacon {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Info.Tip
}

// BlockHashAtEpoch looks up the committed block hash for epoch.
func (m *ChainManager) BlockHashAtEpoch(epoch Epoch) (Hash, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.state.BlockChain[epoch]
	return h, ok
}

// ApplyBlock validates block against the current state and, on success,
// atomically applies its effects (spec.md §4.8 "apply_block"): drains
// the UTXO diff, advances DR-pool stages, pushes active PKHs into the
// ARS, grants TRS reputation to honest tally participants, records the
// block in the chain index, and moves the tip forward. A rejected block
// leaves every piece of state untouched.
func (m *ChainManager) ApplyBlock(block *Block, currentEpoch Epoch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bvc := &BlockValidationContext{
		Tip:            m.state.Info.Tip,
		CurrentEpoch:   currentEpoch,
		EpochConstants: m.params.EpochConstants(),
		Params:         m.params,
		Wips:           m.wips,
		Crypto:         m.crypto,
		Trs:            m.state.Trs,
		Ars:            m.state.Ars,
		DrPool:         m.state.DrPool,
		Rad:            m.rad,
		Utxo:           m.state.Utxo,
	}

	diff, drPool, _, err := ValidateBlock(block, bvc)
	if err != nil {
		return err
	}
	diff.Commit()
	m.state.DrPool.ReplaceFrom(drPool)

	epoch := block.Header.Beacon.Checkpoint
	active := collectActivePkhs(block, m.crypto)
	m.state.Ars.PushActivity(active)

	honest := collectHonestTallyParticipants(block)
	if len(honest) > 0 {
		m.state.Trs.Gain(uint64(epoch), honest)
	}

	emptyTallies := m.state.DrPool.UpdateStages(uint16(m.params.ExtraRounds), m.state.Ars.ActiveIdentitiesNumber())
	_ = emptyTallies // surfaced to the mining engine via DrPool.ReadyForTally

	blockHash := block.Hash()
	m.state.BlockChain[epoch] = blockHash
	m.state.Info.Tip = CheckpointBeacon{Checkpoint: epoch, HashPrevBlock: blockHash}

	return nil
}

// TryMineBlock checks this node's block-leadership eligibility at the
// current tip and, if eligible, assembles a candidate block over the
// supplied pool views (spec.md §4.9 steps 1-2, coordinated here since
// both need the chain manager's own locked snapshot of Utxo/DrPool/Ars
// rather than a torn read taken outside the mutex). eligible is false
// with a nil block, not an error, when this node simply isn't the
// leader this epoch.
func (m *ChainManager) TryMineBlock(signer VRFSigner, vtCandidates, drCandidates []CandidateTransaction, commits, reveals []*Transaction, requesterPkhOf func(OutputPointer) PublicKeyHash) (block *Block, eligible bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tip := m.state.Info.Tip
	candidateBeacon := CheckpointBeacon{Checkpoint: tip.Checkpoint + 1, HashPrevBlock: tip.HashPrevBlock}
	el, err := CheckBlockEligibility(candidateBeacon, signer, m.crypto, m.state.Ars, m.params.MiningBackupFactor)
	if err != nil {
		return nil, false, err
	}
	if !el.Eligible {
		return nil, false, nil
	}

	built, _, err := BuildBlock(BuildBlockInput{
		ValueTransferCandidates: vtCandidates,
		DataRequestCandidates:   drCandidates,
		Commits:                 commits,
		Reveals:                 reveals,
		Utxo:                    m.state.Utxo,
		DrPool:                  m.state.DrPool,
		MaxBlockWeight:          m.params.MaxBlockWeight,
		Beacon:                  candidateBeacon,
		EligibilityProof:        el.Proof,
		MinerPkh:                signer.Pkh(),
		EpochConstants:          m.params.EpochConstants(),
		Params:                  m.params,
		Wips:                    m.wips,
		Rad:                     m.rad,
		RequesterPkhOf:          requesterPkhOf,
	})
	if err != nil {
		return nil, true, err
	}
	return built, true, nil
}

// Checkpoint snapshots the full chain state at its current tip, so a
// later Rewind can restore to this point without replaying from genesis
// (spec.md §4.8: "implementations may snapshot periodically"). Callers
// typically invoke this every few thousand blocks, not on every block,
// since it deep-copies the entire UTXO set.
func (m *ChainManager) Checkpoint() {
	m.mu.Lock()
	defer m.mu.Unlock()
	epoch := m.state.Info.Tip.Checkpoint
	blockChain := make(map[Epoch]Hash, len(m.state.BlockChain))
	for k, v := range m.state.BlockChain {
		blockChain[k] = v
	}
	m.checkpoints[epoch] = fullCheckpoint{
		info:       m.state.Info,
		blockChain: blockChain,
		utxo:       m.state.Utxo.Snapshot(),
		drPool:     m.state.DrPool.Snapshot(),
		trs:        m.state.Trs.Snapshot(),
		arsRing:    m.state.Ars.Snapshot(),
		arsHead:    m.state.Ars.Head(),
	}
}

// Rewind restores ChainState to the nearest checkpoint at or before
// targetEpoch (spec.md §4.8 "rewind(epoch): revert state to the end of
// epoch by replaying blocks from a checkpoint"). It returns the epoch
// actually restored to: the caller must replay blocks from its block
// store via ApplyBlock from that point forward to reach targetEpoch
// exactly. Returns an error if no checkpoint at or before targetEpoch
// exists.
func (m *ChainManager) Rewind(targetEpoch Epoch) (Epoch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best Epoch
	found := false
	for epoch := range m.checkpoints {
		if epoch <= targetEpoch && (!found || epoch > best) {
			best = epoch
			found = true
		}
	}
	if !found {
		return 0, cerrf(ErrStageMismatch, "no checkpoint at or before epoch %d", targetEpoch)
	}

	cp := m.checkpoints[best]
	m.state.Info = cp.info
	m.state.BlockChain = make(map[Epoch]Hash, len(cp.blockChain))
	for k, v := range cp.blockChain {
		m.state.BlockChain[k] = v
	}
	m.state.Utxo.Restore(cp.utxo)
	m.state.DrPool.Restore(cp.drPool)
	m.state.Trs.Restore(cp.trs)
	m.state.Ars.Restore(cp.arsRing, cp.arsHead)

	for epoch := range m.checkpoints {
		if epoch > best {
			delete(m.checkpoints, epoch)
		}
	}

	return best, nil
}

func collectActivePkhs(block *Block, crypto SignatureVerifier) []PublicKeyHash {
	seen := make(map[PublicKeyHash]struct{})
	var out []PublicKeyHash
	add := func(pkh PublicKeyHash) {
		if _, ok := seen[pkh]; !ok {
			seen[pkh] = struct{}{}
			out = append(out, pkh)
		}
	}
	if block.Txns.Mint != nil {
		add(crypto.PkhFromPublicKey(block.Header.Proof.PublicKey))
	}
	for _, tx := range block.Txns.Commit {
		if len(tx.Signatures) > 0 {
			add(crypto.PkhFromPublicKey(tx.Signatures[0].PublicKey))
		}
	}
	return out
}

func collectHonestTallyParticipants(block *Block) []ReputationGain {
	var gains []ReputationGain
	for _, tx := range block.Txns.Tally {
		t := tx.Tally
		lying := make(map[PublicKeyHash]struct{}, len(t.OutOfConsensus)+len(t.Error))
		for _, pkh := range t.OutOfConsensus {
			lying[pkh] = struct{}{}
		}
		for _, pkh := range t.Error {
			lying[pkh] = struct{}{}
		}
		for _, o := range t.Outputs {
			if o.Pkh == t.RequesterPkh {
				continue // requester's change, not a reveal payout
			}
			if _, dishonest := lying[o.Pkh]; dishonest {
				continue
			}
			gains = append(gains, ReputationGain{Pkh: o.Pkh, Points: 1})
		}
	}
	return gains
}

// Snapshot returns a deep-enough copy of the chain state for fast-sync
// export (spec.md §4.8 "snapshot_export"). The copy shares no mutable
// maps with the live state.
type Snapshot struct {
	Info       ChainInfo
	BlockChain map[Epoch]Hash
}

// SnapshotExport copies the block index and chain info only; the UTXO
// set, DR pool and reputation state are not part of the export.
func (m *ChainManager) SnapshotExport() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[Epoch]Hash, len(m.state.BlockChain))
	for k, v := range m.state.BlockChain {
		cp[k] = v
	}
	return Snapshot{Info: m.state.Info, BlockChain: cp}
}

// SnapshotImport restores chain info and the block index from a
// previously exported snapshot (spec.md §4.8 "snapshot_import"), for
// out-of-band fast sync. The caller is responsible for separately
// importing the matching UTXO/DR-pool/reputation state before resuming
// ApplyBlock.
func (m *ChainManager) SnapshotImport(snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Info = snap.Info
	m.state.BlockChain = make(map[Epoch]Hash, len(snap.BlockChain))
	for k, v := range snap.BlockChain {
		m.state.BlockChain[k] = v
	}
}
