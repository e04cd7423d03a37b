// Package txpool holds the not-yet-mined transaction pool (spec.md §5:
// "the transaction pool has its own task and exposes insert/remove/iterate
// messages"). It is an external collaborator to consensus in spec.md's own
// terms, but the core block builder (consensus.BuildBlock) needs the
// cloned-ordered-view it produces, so it lives in this module rather than
// behind a wire boundary.
package txpool

import (
	"sort"
	"sync"

	"github.com/witnet-go/core/consensus"
)

// weigher estimates the wire weight of a transaction, the denominator of
// the fee-per-weight ordering consensus.BuildBlock sorts candidates by
// (spec.md §4.7 step 2). Kept as an injected function rather than a method
// on consensus.Transaction: weight is a policy concern of the pool/miner,
// not a consensus-object property.
type weigher func(*consensus.Transaction) uint64

// entry is one pooled transaction plus the fee and weight it was inserted
// with, so Iterate can hand CandidateTransaction views to the builder
// without recomputing them on every call.
type entry struct {
	tx     *consensus.Transaction
	fee    uint64
	weight uint64
}

// Pool is a mutex-guarded, single-owner mempool (spec.md §5: "no other
// task mutates them", matching the chain manager's own idiom in
// consensus.ChainManager rather than introducing goroutines/channels this
// module has no other use for).
type Pool struct {
	mu      sync.Mutex
	byHash  map[consensus.Hash]entry
	weigher weigher
}

// DefaultWeigher approximates weight as the canonical encoded body size in
// bytes, matching the teacher's own "weight == encoded size" convention
// for its block-budget accounting.
func DefaultWeigher(tx *consensus.Transaction) uint64 {
	return uint64(len(consensus.EncodeTxBody(tx)))
}

// New returns an empty pool. A nil weigher defaults to DefaultWeigher.
func New(w weigher) *Pool {
	if w == nil {
		w = DefaultWeigher
	}
	return &Pool{byHash: make(map[consensus.Hash]entry), weigher: w}
}

// Insert adds tx to the pool with the given fee, computing its weight via
// the pool's weigher. Re-inserting an already-pooled hash overwrites the
// prior entry (e.g. a fee bump under the wire format's malleability
// rules).
func (p *Pool) Insert(tx *consensus.Transaction, fee uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byHash[tx.Hash()] = entry{tx: tx, fee: fee, weight: p.weigher(tx)}
}

// Remove drops a transaction by hash, a no-op if absent. The devnet
// mining loop calls it for each transaction of a block it has applied.
func (p *Pool) Remove(hash consensus.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byHash, hash)
}

// RemoveMany drops every hash in hashes.
func (p *Pool) RemoveMany(hashes []consensus.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range hashes {
		delete(p.byHash, h)
	}
}

// Len reports the number of pooled transactions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byHash)
}

// Has reports whether hash is currently pooled.
func (p *Pool) Has(hash consensus.Hash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.byHash[hash]
	return ok
}

// ByKind returns a cloned, deterministically ordered (by ascending hash,
// for reproducible candidate-block construction across retries)
// view of every pooled transaction of kind, wrapped as
// consensus.CandidateTransaction so the caller can feed it straight into
// consensus.BuildBlockInput (spec.md §5: "iteration returns a cloned
// ordered view so block building cannot be racing inserts").
func (p *Pool) ByKind(kind consensus.TransactionKind) []consensus.CandidateTransaction {
	p.mu.Lock()
	entries := make([]entry, 0, len(p.byHash))
	for _, e := range p.byHash {
		if e.tx.Kind == kind {
			entries = append(entries, e)
		}
	}
	p.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].tx.Hash().Less(entries[j].tx.Hash())
	})
	out := make([]consensus.CandidateTransaction, len(entries))
	for i, e := range entries {
		out[i] = consensus.CandidateTransaction{Tx: e.tx, Weight: e.weight, Fee: e.fee}
	}
	return out
}

// Commits and Reveals are drained as plain *consensus.Transaction slices
// (not weighed/fee-sorted): spec.md §4.7 step 4 says the builder "drains"
// every commit/reveal referencing an open request, not a fee-ranked
// subset, since those stages are eligibility-gated rather than fee
// markets.
func (p *Pool) Commits() []*consensus.Transaction { return p.kindOnly(consensus.KindCommit) }
func (p *Pool) Reveals() []*consensus.Transaction { return p.kindOnly(consensus.KindReveal) }

func (p *Pool) kindOnly(kind consensus.TransactionKind) []*consensus.Transaction {
	p.mu.Lock()
	var out []*consensus.Transaction
	for _, e := range p.byHash {
		if e.tx.Kind == kind {
			out = append(out, e.tx)
		}
	}
	p.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Hash().Less(out[j].Hash()) })
	return out
}

// All returns every pooled transaction's hash, for RPC's getMempool
// surface (spec.md §6).
func (p *Pool) All() []consensus.Hash {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]consensus.Hash, 0, len(p.byHash))
	for h := range p.byHash {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
