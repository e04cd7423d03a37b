package store

import (
	"path/filepath"
	"testing"

	"github.com/witnet-go/core/consensus"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kv.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestChainInfoRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if _, ok, err := db.GetChainInfo(); err != nil || ok {
		t.Fatalf("expected no chain info on fresh db, got ok=%v err=%v", ok, err)
	}

	want := consensus.ChainInfo{
		GenesisHash: consensus.HashBytes([]byte("genesis")),
		Tip:         consensus.CheckpointBeacon{Checkpoint: 42, HashPrevBlock: consensus.HashBytes([]byte("tip"))},
	}
	if err := db.PutChainInfo(want); err != nil {
		t.Fatalf("PutChainInfo: %v", err)
	}
	got, ok, err := db.GetChainInfo()
	if err != nil || !ok {
		t.Fatalf("GetChainInfo: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestBlockHashIndexRoundTrip(t *testing.T) {
	db := openTestDB(t)
	h := consensus.HashBytes([]byte("block-7"))
	if err := db.PutBlockHash(7, h); err != nil {
		t.Fatalf("PutBlockHash: %v", err)
	}
	got, ok, err := db.GetBlockHash(7)
	if err != nil || !ok || got != h {
		t.Fatalf("GetBlockHash: got=%v ok=%v err=%v", got, ok, err)
	}
	if _, ok, err := db.GetBlockHash(8); err != nil || ok {
		t.Fatalf("expected miss for unset epoch, got ok=%v err=%v", ok, err)
	}
}

func TestUTXORoundTripAndLoad(t *testing.T) {
	db := openTestDB(t)
	ptr := consensus.OutputPointer{TransactionID: consensus.HashBytes([]byte("tx")), OutputIndex: 3}
	entry := consensus.UtxoEntry{
		Output:               consensus.ValueTransferOutput{Pkh: consensus.PublicKeyHash{1, 2, 3}, Value: 1000, TimeLock: 55},
		InclusionBlockNumber: 12,
		Confirmed:            true,
	}
	if err := db.PutUTXO(ptr, entry); err != nil {
		t.Fatalf("PutUTXO: %v", err)
	}
	got, ok, err := db.GetUTXO(ptr)
	if err != nil || !ok || got != entry {
		t.Fatalf("GetUTXO: got=%+v ok=%v err=%v", got, ok, err)
	}

	pool, err := db.LoadUTXOSet()
	if err != nil {
		t.Fatalf("LoadUTXOSet: %v", err)
	}
	if pool.Len() != 1 {
		t.Fatalf("expected 1 loaded entry, got %d", pool.Len())
	}

	if err := db.DeleteUTXO(ptr); err != nil {
		t.Fatalf("DeleteUTXO: %v", err)
	}
	if _, ok, _ := db.GetUTXO(ptr); ok {
		t.Fatalf("expected utxo gone after delete")
	}
}

func TestDrReportRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ptr := consensus.OutputPointer{TransactionID: consensus.HashBytes([]byte("dr")), OutputIndex: 1}
	report := []byte("report-bytes")
	if err := db.PutDrReport(ptr, report); err != nil {
		t.Fatalf("PutDrReport: %v", err)
	}
	got, ok, err := db.GetDrReport(ptr)
	if err != nil || !ok || string(got) != string(report) {
		t.Fatalf("GetDrReport: got=%q ok=%v err=%v", got, ok, err)
	}
}
