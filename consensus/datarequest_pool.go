package consensus

import (
	"encoding/binary"
	"sort"
	"sync"
)

// DataRequestStage is the position of a data request in its lifecycle
// (spec.md §4.3).
type DataRequestStage uint8

const (
	StageCommit DataRequestStage = iota
	StageReveal
	StageTally
)

func (s DataRequestStage) String() string {
	switch s {
	case StageCommit:
		return "COMMIT"
	case StageReveal:
		return "REVEAL"
	case StageTally:
		return "TALLY"
	default:
		return "UNKNOWN"
	}
}

// DataRequestState is the live bookkeeping for one open data request:
// its economics, stage, round counters, and the commits/reveals
// collected so far (spec.md §3, §4.3).
type DataRequestState struct {
	DrPointer OutputPointer
	DrOutput  DataRequestOutput
	Epoch     Epoch // epoch the DataRequest transaction was included at

	Stage           DataRequestStage
	CommitRound     uint16
	RevealRound     uint16
	BackupWitnesses uint32

	Commits map[PublicKeyHash]CommitTxBody
	Reveals map[PublicKeyHash]RevealTxBody
}

// EffectiveWitnesses is the current target witness count, including any
// backup slots granted by round doubling.
func (s *DataRequestState) EffectiveWitnesses() uint64 {
	return uint64(s.DrOutput.Witnesses) + uint64(s.BackupWitnesses)
}

func cloneState(s *DataRequestState) *DataRequestState {
	c := *s
	c.Commits = make(map[PublicKeyHash]CommitTxBody, len(s.Commits))
	for k, v := range s.Commits {
		c.Commits[k] = v
	}
	c.Reveals = make(map[PublicKeyHash]RevealTxBody, len(s.Reveals))
	for k, v := range s.Reveals {
		c.Reveals[k] = v
	}
	return &c
}

// DataRequestPool indexes every open data request by pointer and by the
// epoch it was created at (spec.md §4.3), and tracks the node's own
// pending reveals across blocks (supplemented from original_source's
// waiting_for_reveal bookkeeping, see SPEC_FULL.md §9).
type DataRequestPool struct {
	mu sync.Mutex

	byPointer map[OutputPointer]*DataRequestState
	byEpoch   map[Epoch]map[OutputPointer]struct{}

	toBeStored []*DataRequestState

	pendingOwnReveals map[OutputPointer]RevealTxBody
}

// NewDataRequestPool returns an empty pool.
func NewDataRequestPool() *DataRequestPool {
	return &DataRequestPool{
		byPointer:         make(map[OutputPointer]*DataRequestState),
		byEpoch:           make(map[Epoch]map[OutputPointer]struct{}),
		pendingOwnReveals: make(map[OutputPointer]RevealTxBody),
	}
}

// AddDataRequest opens a new DataRequestState in COMMIT stage, indexed by
// pointer and by creation epoch.
func (p *DataRequestPool) AddDataRequest(pointer OutputPointer, output DataRequestOutput, epoch Epoch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byPointer[pointer]; exists {
		return cerrf(ErrAddCommitFailed, "data request %s already open", pointer)
	}
	p.byPointer[pointer] = &DataRequestState{
		DrPointer: pointer,
		DrOutput:  output,
		Epoch:     epoch,
		Stage:     StageCommit,
		Commits:   make(map[PublicKeyHash]CommitTxBody),
		Reveals:   make(map[PublicKeyHash]RevealTxBody),
	}
	if p.byEpoch[epoch] == nil {
		p.byEpoch[epoch] = make(map[OutputPointer]struct{})
	}
	p.byEpoch[epoch][pointer] = struct{}{}
	return nil
}

// Get returns a defensive copy of the state for pointer, for read-only use
// by the validator and mining engine.
func (p *DataRequestPool) Get(pointer OutputPointer) (*DataRequestState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.byPointer[pointer]
	if !ok {
		return nil, false
	}
	return cloneState(s), true
}

// AddCommit records pkh's commit against pointer's data request (spec.md
// §4.3 commit-acceptance rule (c): "the committer has not already
// committed to this request"). VRF and collateral checks are the
// validator's responsibility (§4.5); this only enforces stage and
// uniqueness.
func (p *DataRequestPool) AddCommit(pointer OutputPointer, pkh PublicKeyHash, commit CommitTxBody) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.byPointer[pointer]
	if !ok {
		return cerrf(ErrDrNotFound, "data request %s not found", pointer)
	}
	if s.Stage != StageCommit {
		return cerrf(ErrNotCommitStage, "data request %s not in COMMIT stage", pointer)
	}
	if _, already := s.Commits[pkh]; already {
		return cerrf(ErrAlreadyCommitted, "%x already committed to %s", pkh, pointer)
	}
	s.Commits[pkh] = commit
	return nil
}

// AddReveal records pkh's reveal against pointer's data request (spec.md
// §4.3 reveal-acceptance rule): the revealer must have an accepted
// commit and the data request must be in REVEAL stage.
func (p *DataRequestPool) AddReveal(pointer OutputPointer, pkh PublicKeyHash, reveal RevealTxBody) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.byPointer[pointer]
	if !ok {
		return cerrf(ErrDrNotFound, "data request %s not found", pointer)
	}
	if s.Stage != StageReveal {
		return cerrf(ErrNotRevealStage, "data request %s not in REVEAL stage", pointer)
	}
	if _, committed := s.Commits[pkh]; !committed {
		return cerrf(ErrCommitNotFound, "%x has no commit for %s", pkh, pointer)
	}
	if _, already := s.Reveals[pkh]; already {
		return cerrf(ErrAddRevealFailed, "%x already revealed for %s", pkh, pointer)
	}
	s.Reveals[pkh] = reveal
	delete(p.pendingOwnReveals, pointer)
	return nil
}

// Finalize removes pointer from the open-pool indexes once its Tally
// transaction has been observed in a block, queuing it for persistence
// (spec.md §4.3: TALLY stage, "removed from pool, pushed to
// to_be_stored").
func (p *DataRequestPool) Finalize(pointer OutputPointer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.byPointer[pointer]
	if !ok {
		return cerrf(ErrDrNotFound, "data request %s not found", pointer)
	}
	if s.Stage != StageTally {
		return cerrf(ErrStageMismatch, "data request %s not in TALLY stage", pointer)
	}
	delete(p.byPointer, pointer)
	if set := p.byEpoch[s.Epoch]; set != nil {
		delete(set, pointer)
		if len(set) == 0 {
			delete(p.byEpoch, s.Epoch)
		}
	}
	p.toBeStored = append(p.toBeStored, cloneState(s))
	return nil
}

// DrainStored returns and clears the requests finalized since the last
// call, for the chain manager to persist.
func (p *DataRequestPool) DrainStored() []*DataRequestState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.toBeStored
	p.toBeStored = nil
	return out
}

// UpdateStages applies the stage-transition table (spec.md §4.3) to every
// open data request, once per block after all of the block's
// transactions have been applied. It returns the pointers that
// transitioned into TALLY with zero reveals (the "no witnesses ever
// committed/revealed" empty-result case), so the caller can build their
// empty tallies without waiting on further commits/reveals that will
// never arrive.
//
// COMMIT advances to REVEAL once commits.len() >= witnesses, the base
// witness count from dr_output (spec.md §4.3's table); backup witness
// slots only widen who is VRF-eligible to commit in the next round, they
// never raise the count a round needs to reach to advance.
//
// The backup-witness slot count doubles each extra COMMIT round that
// fails to reach target (Open Question, SPEC_FULL.md §10:2), capped so
// the effective witness count never exceeds activeIdentities.
func (p *DataRequestPool) UpdateStages(extraRounds uint16, activeIdentities uint64) []OutputPointer {
	p.mu.Lock()
	defer p.mu.Unlock()

	var emptyTallies []OutputPointer
	for ptr, s := range p.byPointer {
		switch s.Stage {
		case StageCommit:
			nCommits := uint64(len(s.Commits))
			switch {
			case nCommits >= uint64(s.DrOutput.Witnesses):
				s.Stage = StageReveal
			case s.CommitRound > extraRounds:
				if nCommits >= 1 {
					s.Stage = StageReveal
				} else {
					s.Stage = StageTally
					emptyTallies = append(emptyTallies, ptr)
				}
			default:
				s.CommitRound++
				if s.BackupWitnesses == 0 {
					s.BackupWitnesses = uint32(s.DrOutput.Witnesses)
				} else {
					s.BackupWitnesses *= 2
				}
				if activeIdentities > 0 {
					var maxBackup uint64
					if activeIdentities > uint64(s.DrOutput.Witnesses) {
						maxBackup = activeIdentities - uint64(s.DrOutput.Witnesses)
					}
					if uint64(s.BackupWitnesses) > maxBackup {
						s.BackupWitnesses = uint32(maxBackup)
					}
				}
			}
		case StageReveal:
			if len(s.Reveals) >= len(s.Commits) || s.RevealRound > extraRounds {
				s.Stage = StageTally
			} else {
				s.RevealRound++
			}
		case StageTally:
			// Awaiting Finalize via an observed Tally transaction.
		}
	}
	return emptyTallies
}

// ReadyForTally returns the pointers of every data request currently in
// TALLY stage and not yet finalized — candidates the block builder can
// fold a Tally transaction for (supplemented from original_source's
// get_tally_ready_drs, SPEC_FULL.md §9).
func (p *DataRequestPool) ReadyForTally() []OutputPointer {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []OutputPointer
	for ptr, s := range p.byPointer {
		if s.Stage == StageTally {
			out = append(out, ptr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID.Less(out[j].TransactionID) })
	return out
}

// OutputPointersByEpoch returns every data-request pointer created at
// epoch (supplemented from original_source's
// get_dr_output_pointers_by_epoch, SPEC_FULL.md §9).
func (p *DataRequestPool) OutputPointersByEpoch(epoch Epoch) []OutputPointer {
	p.mu.Lock()
	defer p.mu.Unlock()
	set := p.byEpoch[epoch]
	out := make([]OutputPointer, 0, len(set))
	for ptr := range set {
		out = append(out, ptr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID.Less(out[j].TransactionID) })
	return out
}

// Clone returns an independent copy of the pool, sharing no mutable state
// with the original (spec.md §4.7 "Validation is all-or-nothing"): block
// validation stages every commit/reveal/finalize mutation onto a clone
// rather than the live pool, mirroring UtxoDiff's base-pool-plus-overlay
// discipline for the UTXO set. A rejected block simply drops the clone.
func (p *DataRequestPool) Clone() *DataRequestPool {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := &DataRequestPool{
		byPointer:         make(map[OutputPointer]*DataRequestState, len(p.byPointer)),
		byEpoch:           make(map[Epoch]map[OutputPointer]struct{}, len(p.byEpoch)),
		toBeStored:        append([]*DataRequestState(nil), p.toBeStored...),
		pendingOwnReveals: make(map[OutputPointer]RevealTxBody, len(p.pendingOwnReveals)),
	}
	for ptr, s := range p.byPointer {
		c.byPointer[ptr] = cloneState(s)
	}
	for epoch, set := range p.byEpoch {
		clone := make(map[OutputPointer]struct{}, len(set))
		for ptr := range set {
			clone[ptr] = struct{}{}
		}
		c.byEpoch[epoch] = clone
	}
	for ptr, r := range p.pendingOwnReveals {
		c.pendingOwnReveals[ptr] = r
	}
	return c
}

// ReplaceFrom atomically swaps this pool's contents for other's, the
// commit half of the Clone-validate-ReplaceFrom pattern: called once a
// block built on a clone has fully validated, never on a rejected clone.
// other must not be used by any other caller afterward.
func (p *DataRequestPool) ReplaceFrom(other *DataRequestPool) {
	other.mu.Lock()
	byPointer, byEpoch, toBeStored, pendingOwnReveals := other.byPointer, other.byEpoch, other.toBeStored, other.pendingOwnReveals
	other.mu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.byPointer = byPointer
	p.byEpoch = byEpoch
	p.toBeStored = toBeStored
	p.pendingOwnReveals = pendingOwnReveals
}

// SetPendingOwnReveal records this node's own not-yet-included reveal for
// pointer, so the mining engine can keep re-broadcasting it every epoch
// until a block includes it (supplemented from original_source's
// waiting_for_reveal, SPEC_FULL.md §9).
func (p *DataRequestPool) SetPendingOwnReveal(pointer OutputPointer, reveal RevealTxBody) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingOwnReveals[pointer] = reveal
}

// PendingOwnReveals returns every reveal this node is still waiting to
// see included.
func (p *DataRequestPool) PendingOwnReveals() map[OutputPointer]RevealTxBody {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[OutputPointer]RevealTxBody, len(p.pendingOwnReveals))
	for k, v := range p.pendingOwnReveals {
		out[k] = v
	}
	return out
}

// PoolSnapshot is a deep copy of every open data request, used by
// ChainManager.Checkpoint for rewind support.
type PoolSnapshot struct {
	States map[OutputPointer]*DataRequestState
}

// Snapshot captures every currently open data request.
func (p *DataRequestPool) Snapshot() PoolSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[OutputPointer]*DataRequestState, len(p.byPointer))
	for ptr, s := range p.byPointer {
		out[ptr] = cloneState(s)
	}
	return PoolSnapshot{States: out}
}

// Restore replaces the pool's open requests with a previously captured
// Snapshot. Pending own-reveal bookkeeping and the to-be-stored queue are
// not part of the consensus-critical state a rewind must restore (the
// former is node-local broadcast bookkeeping, the latter is drained into
// persistent storage as soon as it is produced) so both are cleared
// rather than restored.
func (p *DataRequestPool) Restore(snap PoolSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byPointer = make(map[OutputPointer]*DataRequestState, len(snap.States))
	p.byEpoch = make(map[Epoch]map[OutputPointer]struct{})
	for ptr, s := range snap.States {
		p.byPointer[ptr] = cloneState(s)
		if p.byEpoch[s.Epoch] == nil {
			p.byEpoch[s.Epoch] = make(map[OutputPointer]struct{})
		}
		p.byEpoch[s.Epoch][ptr] = struct{}{}
	}
	p.toBeStored = nil
	p.pendingOwnReveals = make(map[OutputPointer]RevealTxBody)
}

// drPointerBytes is the canonical byte form of an OutputPointer used as
// input to the reveal sort-key hash (not the protobuf wire encoding,
// which is reserved for full-message framing): 32-byte txid followed by
// the big-endian output index.
func drPointerBytes(ptr OutputPointer) []byte {
	buf := make([]byte, 0, 36)
	buf = append(buf, ptr.TransactionID.Slice()...)
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], ptr.OutputIndex)
	return append(buf, idx[:]...)
}

// revealSortKey returns pkh's sort key for tally ordering (spec.md
// §4.3): SHA-256(pkh‖dr_pointer) once WIP0019 is active, the raw pkh
// bytes before activation.
func revealSortKey(pkh PublicKeyHash, ptr OutputPointer, wip0019Active bool) []byte {
	if !wip0019Active {
		return append([]byte(nil), pkh[:]...)
	}
	buf := append([]byte(nil), pkh[:]...)
	buf = append(buf, drPointerBytes(ptr)...)
	return HashBytes(buf).Slice()
}

// sortedRevealKeys is one revealer's pkh paired with its reveal and sort
// key, the unit SortReveals orders.
type sortedRevealKeys struct {
	Pkh PublicKeyHash
	Rev RevealTxBody
}

// SortReveals orders a data request's reveals per spec.md §4.3's
// consensus-critical rule, used by the tally builder (§4.6) and by the
// Reveal-ordering testable property (§8.7).
func SortReveals(reveals map[PublicKeyHash]RevealTxBody, ptr OutputPointer, wips ActiveWips, epoch Epoch) []RevealTxBody {
	active := wips.IsActive(WipRevealOrdering, epoch)
	ordered := make([]sortedRevealKeys, 0, len(reveals))
	for pkh, rev := range reveals {
		ordered = append(ordered, sortedRevealKeys{Pkh: pkh, Rev: rev})
	}
	sort.Slice(ordered, func(i, j int) bool {
		ki := revealSortKey(ordered[i].Pkh, ptr, active)
		kj := revealSortKey(ordered[j].Pkh, ptr, active)
		for b := 0; b < len(ki) && b < len(kj); b++ {
			if ki[b] != kj[b] {
				return ki[b] < kj[b]
			}
		}
		return len(ki) < len(kj)
	})
	out := make([]RevealTxBody, len(ordered))
	for i, o := range ordered {
		out[i] = o.Rev
	}
	return out
}
