package consensus

import "google.golang.org/protobuf/encoding/protowire"

const (
	fnHdrVersion   protowire.Number = 1
	fnHdrBeacon    protowire.Number = 2
	fnHdrRoots     protowire.Number = 3
	fnHdrProof     protowire.Number = 4
	fnHdrSignaling protowire.Number = 5

	fnBeaconCheckpoint protowire.Number = 1
	fnBeaconPrevHash   protowire.Number = 2

	fnRootsMint          protowire.Number = 1
	fnRootsValueTransfer protowire.Number = 2
	fnRootsDataRequest   protowire.Number = 3
	fnRootsCommit        protowire.Number = 4
	fnRootsReveal        protowire.Number = 5
	fnRootsTally         protowire.Number = 6
)

func encodeBeacon(b CheckpointBeacon) []byte {
	var out []byte
	out = appendVarintField(out, fnBeaconCheckpoint, uint64(b.Checkpoint))
	out = appendBytesField(out, fnBeaconPrevHash, b.HashPrevBlock.Slice())
	return out
}

func decodeBeacon(data []byte) (CheckpointBeacon, error) {
	var b CheckpointBeacon
	err := decodeFields(data, func(f decodedField) error {
		switch f.Num {
		case fnBeaconCheckpoint:
			b.Checkpoint = Epoch(f.Varint)
		case fnBeaconPrevHash:
			h, err := decodeHash32(f.Bytes, "beacon.hash_prev_block")
			if err != nil {
				return err
			}
			b.HashPrevBlock = h
		}
		return nil
	})
	return b, err
}

func encodeRoots(r MerkleRoots) []byte {
	var out []byte
	out = appendBytesField(out, fnRootsMint, r.MintHash.Slice())
	out = appendBytesField(out, fnRootsValueTransfer, r.ValueTransferRoot.Slice())
	out = appendBytesField(out, fnRootsDataRequest, r.DataRequestRoot.Slice())
	out = appendBytesField(out, fnRootsCommit, r.CommitRoot.Slice())
	out = appendBytesField(out, fnRootsReveal, r.RevealRoot.Slice())
	out = appendBytesField(out, fnRootsTally, r.TallyRoot.Slice())
	return out
}

func decodeRoots(data []byte) (MerkleRoots, error) {
	var r MerkleRoots
	err := decodeFields(data, func(f decodedField) error {
		var h Hash
		var err error
		switch f.Num {
		case fnRootsMint:
			if h, err = decodeHash32(f.Bytes, "roots.mint"); err != nil {
				return err
			}
			r.MintHash = h
		case fnRootsValueTransfer:
			if h, err = decodeHash32(f.Bytes, "roots.value_transfer"); err != nil {
				return err
			}
			r.ValueTransferRoot = h
		case fnRootsDataRequest:
			if h, err = decodeHash32(f.Bytes, "roots.data_request"); err != nil {
				return err
			}
			r.DataRequestRoot = h
		case fnRootsCommit:
			if h, err = decodeHash32(f.Bytes, "roots.commit"); err != nil {
				return err
			}
			r.CommitRoot = h
		case fnRootsReveal:
			if h, err = decodeHash32(f.Bytes, "roots.reveal"); err != nil {
				return err
			}
			r.RevealRoot = h
		case fnRootsTally:
			if h, err = decodeHash32(f.Bytes, "roots.tally"); err != nil {
				return err
			}
			r.TallyRoot = h
		}
		return nil
	})
	return r, err
}

// EncodeBlockHeader returns the canonical encoding of a block header,
// whose SHA-256 is the block hash (spec.md §3).
func EncodeBlockHeader(h *BlockHeader) []byte {
	var out []byte
	out = appendVarintField(out, fnHdrVersion, uint64(h.Version))
	out = appendMessageField(out, fnHdrBeacon, encodeBeacon(h.Beacon))
	out = appendMessageField(out, fnHdrRoots, encodeRoots(h.Roots))
	out = appendMessageField(out, fnHdrProof, encodeVRFProof(h.Proof))
	out = appendVarintField(out, fnHdrSignaling, uint64(h.Signaling))
	return out
}

// DecodeBlockHeader reconstructs a BlockHeader from its canonical encoding.
func DecodeBlockHeader(data []byte) (*BlockHeader, error) {
	var version uint32
	var beacon CheckpointBeacon
	var roots MerkleRoots
	var proof VRFProof
	var signaling SignalingBitmask

	err := decodeFields(data, func(f decodedField) error {
		switch f.Num {
		case fnHdrVersion:
			version = uint32(f.Varint)
		case fnHdrBeacon:
			b, err := decodeBeacon(f.Bytes)
			if err != nil {
				return err
			}
			beacon = b
		case fnHdrRoots:
			r, err := decodeRoots(f.Bytes)
			if err != nil {
				return err
			}
			roots = r
		case fnHdrProof:
			p, err := decodeVRFProof(f.Bytes)
			if err != nil {
				return err
			}
			proof = p
		case fnHdrSignaling:
			signaling = SignalingBitmask(f.Varint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewBlockHeader(version, beacon, roots, proof, signaling), nil
}
