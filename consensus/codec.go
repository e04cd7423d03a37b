package consensus

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Canonical protobuf-wire codec for every consensus object (spec.md
// §4.1). Rather than checking in protoc-generated .pb.go files (no protoc
// run is available in this environment), message layout is hand-encoded
// directly against the low-level protowire primitives the generated code
// itself would call: AppendTag/AppendVarint/AppendBytes on encode,
// ConsumeTag/ConsumeVarint/ConsumeBytes on decode. Fields are always
// emitted in ascending tag order and default values are never elided
// conditionally (every field of every message is always written), which
// is what makes the encoding deterministic: the same logical object
// always produces the same bytes, with no unknown-field or map support to
// create ambiguity.

// field helpers -------------------------------------------------------

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	b = protowire.AppendVarint(b, v)
	return b
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, v)
	return b
}

// appendMessageField embeds a pre-encoded nested message as a
// length-delimited field, identical on the wire to a bytes field.
func appendMessageField(b []byte, num protowire.Number, msg []byte) []byte {
	return appendBytesField(b, num, msg)
}

// decodedField is one field instance read off the wire: Varint carries
// the decoded integer for VarintType fields, Bytes carries the payload
// for BytesType fields (raw or nested-message bytes, caller decides).
type decodedField struct {
	Num    protowire.Number
	Type   protowire.Type
	Varint uint64
	Bytes  []byte
}

// decodeFields walks every top-level field of a canonical message,
// calling yield for each. Any other wire type (Fixed32/Fixed64/groups) is
// rejected: this codec never emits them, so encountering one means either
// corrupt input or a non-canonical encoder, and CANONICAL §4.1 treats
// decode failure on external input as a validation error, never a panic.
func decodeFields(b []byte, yield func(decodedField) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return cerr(ErrRadParseFailure, "codec: invalid field tag")
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return cerr(ErrRadParseFailure, "codec: invalid varint field")
			}
			b = b[n:]
			if err := yield(decodedField{Num: num, Type: typ, Varint: v}); err != nil {
				return err
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return cerr(ErrRadParseFailure, "codec: invalid bytes field")
			}
			b = b[n:]
			if err := yield(decodedField{Num: num, Type: typ, Bytes: v}); err != nil {
				return err
			}
		default:
			return cerrf(ErrRadParseFailure, "codec: unsupported wire type %d", typ)
		}
	}
	return nil
}

func decodeHash32(b []byte, name string) (Hash, error) {
	if len(b) != 32 {
		return Hash{}, cerrf(ErrRadParseFailure, "codec: %s: expected 32 bytes, got %d", name, len(b))
	}
	var raw [32]byte
	copy(raw[:], b)
	return NewSHA256Hash(raw), nil
}

func decodePkh20(b []byte, name string) (PublicKeyHash, error) {
	var pkh PublicKeyHash
	if len(b) != 20 {
		return pkh, cerrf(ErrRadParseFailure, "codec: %s: expected 20 bytes, got %d", name, len(b))
	}
	copy(pkh[:], b)
	return pkh, nil
}

// field numbers shared by nested message kinds -------------------------

const (
	fnOutPointTxid  protowire.Number = 1
	fnOutPointIndex protowire.Number = 2

	fnInputOutPoint protowire.Number = 1

	fnVtoPkh      protowire.Number = 1
	fnVtoValue    protowire.Number = 2
	fnVtoTimeLock protowire.Number = 3

	fnDrScript        protowire.Number = 1
	fnDrWitnesses     protowire.Number = 2
	fnDrWitnessReward protowire.Number = 3
	fnDrCommitFee     protowire.Number = 4
	fnDrMinConsensus  protowire.Number = 5
	fnDrCollateral    protowire.Number = 6

	fnVrfProof  protowire.Number = 1
	fnVrfPubkey protowire.Number = 2
)

func encodeOutputPointer(p OutputPointer) []byte {
	var b []byte
	b = appendBytesField(b, fnOutPointTxid, p.TransactionID.Slice())
	b = appendVarintField(b, fnOutPointIndex, uint64(p.OutputIndex))
	return b
}

func decodeOutputPointer(data []byte) (OutputPointer, error) {
	var out OutputPointer
	err := decodeFields(data, func(f decodedField) error {
		switch f.Num {
		case fnOutPointTxid:
			h, err := decodeHash32(f.Bytes, "output_pointer.txid")
			if err != nil {
				return err
			}
			out.TransactionID = h
		case fnOutPointIndex:
			out.OutputIndex = uint32(f.Varint)
		}
		return nil
	})
	return out, err
}

func encodeInput(in Input) []byte {
	return appendMessageField(nil, fnInputOutPoint, encodeOutputPointer(in.OutputPointer))
}

func decodeInput(data []byte) (Input, error) {
	var in Input
	err := decodeFields(data, func(f decodedField) error {
		if f.Num == fnInputOutPoint {
			op, err := decodeOutputPointer(f.Bytes)
			if err != nil {
				return err
			}
			in.OutputPointer = op
		}
		return nil
	})
	return in, err
}

func encodeVTO(o ValueTransferOutput) []byte {
	var b []byte
	b = appendBytesField(b, fnVtoPkh, o.Pkh[:])
	b = appendVarintField(b, fnVtoValue, o.Value)
	b = appendVarintField(b, fnVtoTimeLock, o.TimeLock)
	return b
}

func decodeVTO(data []byte) (ValueTransferOutput, error) {
	var out ValueTransferOutput
	err := decodeFields(data, func(f decodedField) error {
		switch f.Num {
		case fnVtoPkh:
			pkh, err := decodePkh20(f.Bytes, "vto.pkh")
			if err != nil {
				return err
			}
			out.Pkh = pkh
		case fnVtoValue:
			out.Value = f.Varint
		case fnVtoTimeLock:
			out.TimeLock = f.Varint
		}
		return nil
	})
	return out, err
}

func encodeDataRequestOutput(d DataRequestOutput) []byte {
	var b []byte
	b = appendBytesField(b, fnDrScript, d.DataRequest)
	b = appendVarintField(b, fnDrWitnesses, uint64(d.Witnesses))
	b = appendVarintField(b, fnDrWitnessReward, d.WitnessReward)
	b = appendVarintField(b, fnDrCommitFee, d.CommitAndRevealFee)
	b = appendVarintField(b, fnDrMinConsensus, uint64(d.MinConsensusPercentage))
	b = appendVarintField(b, fnDrCollateral, d.Collateral)
	return b
}

func decodeDataRequestOutput(data []byte) (DataRequestOutput, error) {
	var out DataRequestOutput
	err := decodeFields(data, func(f decodedField) error {
		switch f.Num {
		case fnDrScript:
			out.DataRequest = append([]byte(nil), f.Bytes...)
		case fnDrWitnesses:
			out.Witnesses = uint16(f.Varint)
		case fnDrWitnessReward:
			out.WitnessReward = f.Varint
		case fnDrCommitFee:
			out.CommitAndRevealFee = f.Varint
		case fnDrMinConsensus:
			out.MinConsensusPercentage = uint32(f.Varint)
		case fnDrCollateral:
			out.Collateral = f.Varint
		}
		return nil
	})
	return out, err
}

func encodeVRFProof(p VRFProof) []byte {
	var b []byte
	b = appendBytesField(b, fnVrfProof, p.Proof)
	b = appendBytesField(b, fnVrfPubkey, p.PublicKey.Bytes)
	return b
}

func decodeVRFProof(data []byte) (VRFProof, error) {
	var out VRFProof
	err := decodeFields(data, func(f decodedField) error {
		switch f.Num {
		case fnVrfProof:
			out.Proof = append([]byte(nil), f.Bytes...)
		case fnVrfPubkey:
			out.PublicKey = PublicKey{Bytes: append([]byte(nil), f.Bytes...)}
		}
		return nil
	})
	return out, err
}

func encodeRepeated[T any](items []T, num protowire.Number, encode func(T) []byte) []byte {
	var b []byte
	for _, it := range items {
		b = appendMessageField(b, num, encode(it))
	}
	return b
}
