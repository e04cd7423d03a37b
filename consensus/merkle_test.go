package consensus

import "testing"

func TestMerkleRootEmpty(t *testing.T) {
	if got := MerkleRoot(nil); got != ZeroHash {
		t.Fatalf("MerkleRoot(nil) = %s, want zero hash", got)
	}
}

func TestMerkleRootSingleLeaf(t *testing.T) {
	leaf := HashBytes([]byte("only"))
	if got := MerkleRoot([]Hash{leaf}); got != leaf {
		t.Fatalf("MerkleRoot of a single leaf should be the leaf itself, got %s", got)
	}
}

func TestMerkleRootOddDuplicatesLastLeaf(t *testing.T) {
	a := HashBytes([]byte("a"))
	b := HashBytes([]byte("b"))
	c := HashBytes([]byte("c"))

	withDup := MerkleRoot([]Hash{a, b, c, c})
	odd := MerkleRoot([]Hash{a, b, c})
	if withDup != odd {
		t.Fatal("odd-length merkle root should equal duplicating the last leaf explicitly")
	}
}

func TestMerkleRootOrderSensitive(t *testing.T) {
	a := HashBytes([]byte("a"))
	b := HashBytes([]byte("b"))
	if MerkleRoot([]Hash{a, b}) == MerkleRoot([]Hash{b, a}) {
		t.Fatal("merkle root must be sensitive to leaf order")
	}
}

func TestComputeMerkleRootsEmptyIsAllZero(t *testing.T) {
	roots := ComputeMerkleRoots(TransactionsByClass{})
	if roots != (MerkleRoots{}) {
		t.Fatalf("empty transaction set should yield all-zero roots, got %+v", roots)
	}
}
