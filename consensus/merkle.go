package consensus

// MerkleRoot computes the standard binary SHA-256 Merkle root over leaf
// hashes, duplicating the last leaf of any odd-length level (spec.md
// §4.7), returning the all-zero hash for an empty list. Loop structure is
// grounded on the teacher's merkleRootTagged sibling-pairing pass, but the
// odd-node rule here is "duplicate and hash" per spec.md, not "promote
// unchanged" as the teacher does for its own wire format.
func MerkleRoot(leaves []Hash) Hash {
	if len(leaves) == 0 {
		return ZeroHash
	}

	level := make([]Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			buf := make([]byte, 0, 64)
			buf = append(buf, left.Slice()...)
			buf = append(buf, right.Slice()...)
			next = append(next, HashBytes(buf))
		}
		level = next
	}
	return level[0]
}

// TransactionHashes maps a transaction slice to its cached hashes, in order.
func TransactionHashes(txs []*Transaction) []Hash {
	out := make([]Hash, len(txs))
	for i, tx := range txs {
		out[i] = tx.Hash()
	}
	return out
}

// ComputeMerkleRoots derives the six class roots for a TransactionsByClass,
// per spec.md §3/§4.7. MintHash is the mint transaction's own hash (a
// single-element class, not a tree).
func ComputeMerkleRoots(txns TransactionsByClass) MerkleRoots {
	var mintHash Hash
	if txns.Mint != nil {
		mintHash = txns.Mint.Hash()
	}
	return MerkleRoots{
		MintHash:          mintHash,
		ValueTransferRoot: MerkleRoot(TransactionHashes(txns.ValueTransfer)),
		DataRequestRoot:   MerkleRoot(TransactionHashes(txns.DataRequest)),
		CommitRoot:        MerkleRoot(TransactionHashes(txns.Commit)),
		RevealRoot:        MerkleRoot(TransactionHashes(txns.Reveal)),
		TallyRoot:         MerkleRoot(TransactionHashes(txns.Tally)),
	}
}
