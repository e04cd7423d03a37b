package store

import (
	"encoding/binary"
	"fmt"

	"github.com/witnet-go/core/consensus"
)

// Key/value layouts here are storage-internal, not the consensus wire
// format (spec.md §4.1 governs hashing/consensus bytes; this package only
// needs byte-stable keys, per spec.md §6). Grounded on the teacher's own
// store/db.go encodeIndexEntry: fixed-width binary.BigEndian fields,
// length-prefixed variable sections.

func epochKey(epoch consensus.Epoch) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], epoch)
	return b[:]
}

func outpointKey(ptr consensus.OutputPointer) []byte {
	key := make([]byte, 0, 36)
	key = append(key, ptr.TransactionID.Slice()...)
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], ptr.OutputIndex)
	return append(key, idx[:]...)
}

func outpointFromKey(key []byte) (consensus.OutputPointer, error) {
	if len(key) != 36 {
		return consensus.OutputPointer{}, fmt.Errorf("store: bad outpoint key length %d", len(key))
	}
	h, err := hashFromBytes(key[:32])
	if err != nil {
		return consensus.OutputPointer{}, err
	}
	return consensus.OutputPointer{
		TransactionID: h,
		OutputIndex:   binary.BigEndian.Uint32(key[32:36]),
	}, nil
}

func hashFromBytes(b []byte) (consensus.Hash, error) {
	if len(b) != 32 {
		return consensus.Hash{}, fmt.Errorf("store: bad hash length %d", len(b))
	}
	var raw [32]byte
	copy(raw[:], b)
	return consensus.NewSHA256Hash(raw), nil
}

// encodeChainInfo: genesis_hash(32) || tip_checkpoint(4) ||
// tip_hash_prev_block(32).
func encodeChainInfo(info consensus.ChainInfo) []byte {
	out := make([]byte, 0, 68)
	out = append(out, info.GenesisHash.Slice()...)
	var cp [4]byte
	binary.BigEndian.PutUint32(cp[:], info.Tip.Checkpoint)
	out = append(out, cp[:]...)
	out = append(out, info.Tip.HashPrevBlock.Slice()...)
	return out
}

func decodeChainInfo(b []byte) (consensus.ChainInfo, error) {
	if len(b) != 68 {
		return consensus.ChainInfo{}, fmt.Errorf("store: bad chain_info length %d", len(b))
	}
	genesis, err := hashFromBytes(b[0:32])
	if err != nil {
		return consensus.ChainInfo{}, err
	}
	checkpoint := binary.BigEndian.Uint32(b[32:36])
	prev, err := hashFromBytes(b[36:68])
	if err != nil {
		return consensus.ChainInfo{}, err
	}
	return consensus.ChainInfo{
		GenesisHash: genesis,
		Tip:         consensus.CheckpointBeacon{Checkpoint: checkpoint, HashPrevBlock: prev},
	}, nil
}

// encodeUtxoEntry: value(8) || time_lock(8) || inclusion_block_number(8)
// || confirmed(1) || pkh(20).
func encodeUtxoEntry(e consensus.UtxoEntry) []byte {
	out := make([]byte, 0, 45)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], e.Output.Value)
	out = append(out, buf[:]...)
	binary.BigEndian.PutUint64(buf[:], e.Output.TimeLock)
	out = append(out, buf[:]...)
	binary.BigEndian.PutUint64(buf[:], e.InclusionBlockNumber)
	out = append(out, buf[:]...)
	if e.Confirmed {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = append(out, e.Output.Pkh[:]...)
	return out
}

func decodeUtxoEntry(b []byte) (consensus.UtxoEntry, error) {
	if len(b) != 45 {
		return consensus.UtxoEntry{}, fmt.Errorf("store: bad utxo entry length %d", len(b))
	}
	value := binary.BigEndian.Uint64(b[0:8])
	timeLock := binary.BigEndian.Uint64(b[8:16])
	inclusion := binary.BigEndian.Uint64(b[16:24])
	confirmed := b[24] != 0
	var pkh consensus.PublicKeyHash
	copy(pkh[:], b[25:45])
	return consensus.UtxoEntry{
		Output:               consensus.ValueTransferOutput{Pkh: pkh, Value: value, TimeLock: timeLock},
		InclusionBlockNumber: inclusion,
		Confirmed:            confirmed,
	}, nil
}
