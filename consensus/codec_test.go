package consensus

import "testing"

func TestOutputPointerCodecRoundTrip(t *testing.T) {
	ptr := OutputPointer{TransactionID: mustHash("tx"), OutputIndex: 7}
	decoded, err := decodeOutputPointer(encodeOutputPointer(ptr))
	if err != nil {
		t.Fatalf("decodeOutputPointer: %v", err)
	}
	if decoded != ptr {
		t.Fatalf("decoded = %+v, want %+v", decoded, ptr)
	}
}

func TestInputCodecRoundTrip(t *testing.T) {
	in := Input{OutputPointer: OutputPointer{TransactionID: mustHash("tx"), OutputIndex: 3}}
	decoded, err := decodeInput(encodeInput(in))
	if err != nil {
		t.Fatalf("decodeInput: %v", err)
	}
	if decoded != in {
		t.Fatalf("decoded = %+v, want %+v", decoded, in)
	}
}

func TestVTOCodecRoundTrip(t *testing.T) {
	o := ValueTransferOutput{Pkh: PublicKeyHash{1, 2, 3}, Value: 12345, TimeLock: 999}
	decoded, err := decodeVTO(encodeVTO(o))
	if err != nil {
		t.Fatalf("decodeVTO: %v", err)
	}
	if decoded != o {
		t.Fatalf("decoded = %+v, want %+v", decoded, o)
	}
}

func TestDataRequestOutputCodecRoundTrip(t *testing.T) {
	d := DataRequestOutput{
		DataRequest:            []byte{0x01, 0x02},
		Witnesses:              5,
		WitnessReward:          100,
		CommitAndRevealFee:     10,
		MinConsensusPercentage: 70,
		Collateral:             2_000_000_000,
	}
	decoded, err := decodeDataRequestOutput(encodeDataRequestOutput(d))
	if err != nil {
		t.Fatalf("decodeDataRequestOutput: %v", err)
	}
	if decoded.Witnesses != d.Witnesses || decoded.WitnessReward != d.WitnessReward ||
		decoded.CommitAndRevealFee != d.CommitAndRevealFee || decoded.MinConsensusPercentage != d.MinConsensusPercentage ||
		decoded.Collateral != d.Collateral || string(decoded.DataRequest) != string(d.DataRequest) {
		t.Fatalf("decoded = %+v, want %+v", decoded, d)
	}
}

func TestVRFProofCodecRoundTrip(t *testing.T) {
	p := VRFProof{Proof: []byte{0xDE, 0xAD}, PublicKey: PublicKey{Bytes: []byte{0x02, 0x03}}}
	decoded, err := decodeVRFProof(encodeVRFProof(p))
	if err != nil {
		t.Fatalf("decodeVRFProof: %v", err)
	}
	if string(decoded.Proof) != string(p.Proof) || string(decoded.PublicKey.Bytes) != string(p.PublicKey.Bytes) {
		t.Fatalf("decoded = %+v, want %+v", decoded, p)
	}
}

func TestBlockHeaderCodecRoundTrip(t *testing.T) {
	beacon := CheckpointBeacon{Checkpoint: 42, HashPrevBlock: mustHash("prev")}
	roots := MerkleRoots{MintHash: mustHash("mint"), ValueTransferRoot: mustHash("vt")}
	proof := VRFProof{Proof: []byte{0x01}, PublicKey: PublicKey{Bytes: []byte{0x02}}}
	header := NewBlockHeader(1, beacon, roots, proof, 0x03)

	decoded, err := DecodeBlockHeader(EncodeBlockHeader(header))
	if err != nil {
		t.Fatalf("DecodeBlockHeader: %v", err)
	}
	if decoded.Hash() != header.Hash() {
		t.Fatal("decoded header must hash identically to the original")
	}
	if decoded.Version != 1 || decoded.Beacon != beacon || decoded.Signaling != 0x03 {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestDecodeOutputPointerRejectsMalformedHash(t *testing.T) {
	bad := appendBytesField(nil, fnOutPointTxid, []byte{1, 2, 3}) // not 32 bytes
	if _, err := decodeOutputPointer(bad); err == nil {
		t.Fatal("expected error decoding a truncated txid")
	}
}
