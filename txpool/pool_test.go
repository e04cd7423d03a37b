package txpool

import (
	"testing"

	"github.com/witnet-go/core/consensus"
)

func sampleVT(value uint64) *consensus.Transaction {
	return consensus.NewValueTransferTransaction(consensus.ValueTransferBody{
		Inputs:  []consensus.Input{{OutputPointer: consensus.OutputPointer{OutputIndex: 0}}},
		Outputs: []consensus.ValueTransferOutput{{Value: value}},
	}, nil)
}

func TestInsertAndLen(t *testing.T) {
	p := New(nil)
	tx := sampleVT(100)
	p.Insert(tx, 10)
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}
	if !p.Has(tx.Hash()) {
		t.Fatal("expected pool to contain inserted tx")
	}
}

func TestRemove(t *testing.T) {
	p := New(nil)
	tx := sampleVT(100)
	p.Insert(tx, 10)
	p.Remove(tx.Hash())
	if p.Len() != 0 {
		t.Fatalf("Len() = %d after Remove, want 0", p.Len())
	}
	if p.Has(tx.Hash()) {
		t.Fatal("expected tx gone after Remove")
	}
}

func TestRemoveManyAndAll(t *testing.T) {
	p := New(nil)
	tx1 := sampleVT(1)
	tx2 := sampleVT(2)
	tx3 := sampleVT(3)
	p.Insert(tx1, 1)
	p.Insert(tx2, 2)
	p.Insert(tx3, 3)

	p.RemoveMany([]consensus.Hash{tx1.Hash(), tx2.Hash()})
	all := p.All()
	if len(all) != 1 || all[0] != tx3.Hash() {
		t.Fatalf("All() = %v, want only tx3", all)
	}
}

func TestByKindOrderedByHash(t *testing.T) {
	p := New(nil)
	tx1 := sampleVT(1)
	tx2 := sampleVT(2)
	p.Insert(tx2, 5)
	p.Insert(tx1, 1)

	cands := p.ByKind(consensus.KindValueTransfer)
	if len(cands) != 2 {
		t.Fatalf("ByKind returned %d candidates, want 2", len(cands))
	}
	if !cands[0].Tx.Hash().Less(cands[1].Tx.Hash()) {
		t.Fatal("expected candidates sorted by ascending hash")
	}
}

func TestByKindFiltersOtherKinds(t *testing.T) {
	p := New(nil)
	p.Insert(sampleVT(1), 1)
	if got := p.ByKind(consensus.KindCommit); len(got) != 0 {
		t.Fatalf("expected no commit candidates, got %d", len(got))
	}
}

func TestDefaultWeigherMatchesEncodedSize(t *testing.T) {
	tx := sampleVT(100)
	p := New(nil)
	p.Insert(tx, 10)
	cands := p.ByKind(consensus.KindValueTransfer)
	want := uint64(len(consensus.EncodeTxBody(tx)))
	if cands[0].Weight != want {
		t.Fatalf("weight = %d, want %d", cands[0].Weight, want)
	}
}
