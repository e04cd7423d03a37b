package consensus

import "sync"

// UtxoEntry is what the pool stores for each live output: the spendable
// value plus enough metadata to answer maturity and wallet-confirmation
// queries (spec.md §6 persisted-state layout: "(output, inclusion_block
// number, confirmed?)").
type UtxoEntry struct {
	Output               ValueTransferOutput
	InclusionBlockNumber uint64
	Confirmed            bool
}

// UnspentOutputsPool is the base UTXO set (spec.md §4.2). It is owned
// exclusively by the chain manager; block validation never mutates it
// directly, only through a UtxoDiff staged on top.
type UnspentOutputsPool struct {
	mu      sync.RWMutex
	entries map[OutputPointer]UtxoEntry
}

// NewUnspentOutputsPool returns an empty pool.
func NewUnspentOutputsPool() *UnspentOutputsPool {
	return &UnspentOutputsPool{entries: make(map[OutputPointer]UtxoEntry)}
}

// Get resolves a pointer against the base pool.
func (p *UnspentOutputsPool) Get(pointer OutputPointer) (UtxoEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[pointer]
	return e, ok
}

// Insert records a new unspent output.
func (p *UnspentOutputsPool) Insert(pointer OutputPointer, entry UtxoEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[pointer] = entry
}

// Remove deletes an output, returning OutputNotFound if it was absent.
func (p *UnspentOutputsPool) Remove(pointer OutputPointer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[pointer]; !ok {
		return cerrf(ErrOutputNotFound, "utxo: %s not found", pointer)
	}
	delete(p.entries, pointer)
	return nil
}

// Len reports the number of live outputs, mostly for tests and metrics.
func (p *UnspentOutputsPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// VisitWithPkh scans every output paying pkh, invoking confirmedFn or
// pendingFn depending on the entry's Confirmed flag (spec.md §4.2's wallet
// query hook). Iteration order is unspecified; callers needing a stable
// order must sort the results themselves.
func (p *UnspentOutputsPool) VisitWithPkh(pkh PublicKeyHash, confirmedFn, pendingFn func(OutputPointer, UtxoEntry)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for ptr, entry := range p.entries {
		if entry.Output.Pkh != pkh {
			continue
		}
		if entry.Confirmed {
			if confirmedFn != nil {
				confirmedFn(ptr, entry)
			}
		} else if pendingFn != nil {
			pendingFn(ptr, entry)
		}
	}
}

// Snapshot returns a deep copy of every live entry, used by
// ChainManager.Checkpoint for rewind support (spec.md §4.8
// "snapshot_export/import").
func (p *UnspentOutputsPool) Snapshot() map[OutputPointer]UtxoEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[OutputPointer]UtxoEntry, len(p.entries))
	for k, v := range p.entries {
		out[k] = v
	}
	return out
}

// Restore replaces the pool's contents with a previously captured
// Snapshot.
func (p *UnspentOutputsPool) Restore(snapshot map[OutputPointer]UtxoEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = make(map[OutputPointer]UtxoEntry, len(snapshot))
	for k, v := range snapshot {
		p.entries[k] = v
	}
}

// UtxoDiff is a staged overlay over a base UnspentOutputsPool (spec.md
// §4.2): outputs created within the block being validated/built are
// visible to later transactions of the same block without touching the
// base pool, and the whole overlay is discarded on rejection or applied
// atomically on acceptance.
type UtxoDiff struct {
	base     *UnspentOutputsPool
	toInsert map[OutputPointer]UtxoEntry
	toRemove map[OutputPointer]struct{}
}

// NewUtxoDiff opens an empty diff over base.
func NewUtxoDiff(base *UnspentOutputsPool) *UtxoDiff {
	return &UtxoDiff{
		base:     base,
		toInsert: make(map[OutputPointer]UtxoEntry),
		toRemove: make(map[OutputPointer]struct{}),
	}
}

// Get resolves pointer through the diff first, then the base pool.
// Returns OutputNotFound if pointer is staged for removal or absent from
// both the diff's insertions and the base.
func (d *UtxoDiff) Get(pointer OutputPointer) (UtxoEntry, error) {
	if _, removed := d.toRemove[pointer]; removed {
		return UtxoEntry{}, cerrf(ErrOutputNotFound, "utxo: %s not found", pointer)
	}
	if e, ok := d.toInsert[pointer]; ok {
		return e, nil
	}
	if e, ok := d.base.Get(pointer); ok {
		return e, nil
	}
	return UtxoEntry{}, cerrf(ErrOutputNotFound, "utxo: %s not found", pointer)
}

// Insert stages a new output, visible to subsequent Get calls on this diff.
func (d *UtxoDiff) Insert(pointer OutputPointer, entry UtxoEntry) {
	delete(d.toRemove, pointer)
	d.toInsert[pointer] = entry
}

// Remove stages removal of pointer, failing if it does not currently
// resolve (through the diff or the base).
func (d *UtxoDiff) Remove(pointer OutputPointer) error {
	if _, err := d.Get(pointer); err != nil {
		return err
	}
	delete(d.toInsert, pointer)
	d.toRemove[pointer] = struct{}{}
	return nil
}

// Commit atomically replays the staged insertions and removals onto the
// base pool. Called once, after a block has fully validated; a discarded
// diff (rejected block) is simply dropped without calling Commit.
func (d *UtxoDiff) Commit() {
	d.base.mu.Lock()
	defer d.base.mu.Unlock()
	for ptr := range d.toRemove {
		delete(d.base.entries, ptr)
	}
	for ptr, entry := range d.toInsert {
		d.base.entries[ptr] = entry
	}
}
