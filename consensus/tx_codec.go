package consensus

import "google.golang.org/protobuf/encoding/protowire"

// Canonical body encodings for every transaction variant (spec.md §4.1:
// "transaction hash = SHA-256 of the canonical encoding of the body,
// signatures excluded"). Field numbering is internal to this module; the
// only externally visible contract is that EncodeTxBody is deterministic
// and that DecodeTxBody(EncodeTxBody(t)) reconstructs an equal body.

const (
	fnVtbInputs  protowire.Number = 1
	fnVtbOutputs protowire.Number = 2

	fnDrtInputs   protowire.Number = 1
	fnDrtOutputs  protowire.Number = 2
	fnDrtDrOutput protowire.Number = 3

	fnCommitDrPointer  protowire.Number = 1
	fnCommitCommitment protowire.Number = 2
	fnCommitProof      protowire.Number = 3
	fnCommitColIn      protowire.Number = 4
	fnCommitColOut     protowire.Number = 5

	fnRevealDrPointer protowire.Number = 1
	fnRevealPkh       protowire.Number = 2
	fnRevealData      protowire.Number = 3

	fnTallyDrPointer      protowire.Number = 1
	fnTallyResult         protowire.Number = 2
	fnTallyOutputs        protowire.Number = 3
	fnTallyOutOfConsensus protowire.Number = 4
	fnTallyError          protowire.Number = 5
	fnTallyRequesterPkh   protowire.Number = 6

	fnMintEpoch   protowire.Number = 1
	fnMintOutputs protowire.Number = 2

	// Top-level Transaction oneof tags: one field number per kind, value
	// is the variant's own encoded body message.
	fnTxValueTransfer protowire.Number = 1
	fnTxDataRequest   protowire.Number = 2
	fnTxCommit        protowire.Number = 3
	fnTxReveal        protowire.Number = 4
	fnTxTally         protowire.Number = 5
	fnTxMint          protowire.Number = 6
)

func encodeValueTransferBody(b *ValueTransferBody) []byte {
	var out []byte
	out = append(out, encodeRepeated(b.Inputs, fnVtbInputs, encodeInput)...)
	out = append(out, encodeRepeated(b.Outputs, fnVtbOutputs, encodeVTO)...)
	return out
}

func decodeValueTransferBody(data []byte) (*ValueTransferBody, error) {
	b := &ValueTransferBody{}
	err := decodeFields(data, func(f decodedField) error {
		switch f.Num {
		case fnVtbInputs:
			in, err := decodeInput(f.Bytes)
			if err != nil {
				return err
			}
			b.Inputs = append(b.Inputs, in)
		case fnVtbOutputs:
			o, err := decodeVTO(f.Bytes)
			if err != nil {
				return err
			}
			b.Outputs = append(b.Outputs, o)
		}
		return nil
	})
	return b, err
}

func encodeDataRequestTxBody(b *DataRequestTxBody) []byte {
	var out []byte
	out = append(out, encodeRepeated(b.Inputs, fnDrtInputs, encodeInput)...)
	out = append(out, encodeRepeated(b.Outputs, fnDrtOutputs, encodeVTO)...)
	out = appendMessageField(out, fnDrtDrOutput, encodeDataRequestOutput(b.DrOutput))
	return out
}

func decodeDataRequestTxBody(data []byte) (*DataRequestTxBody, error) {
	b := &DataRequestTxBody{}
	err := decodeFields(data, func(f decodedField) error {
		switch f.Num {
		case fnDrtInputs:
			in, err := decodeInput(f.Bytes)
			if err != nil {
				return err
			}
			b.Inputs = append(b.Inputs, in)
		case fnDrtOutputs:
			o, err := decodeVTO(f.Bytes)
			if err != nil {
				return err
			}
			b.Outputs = append(b.Outputs, o)
		case fnDrtDrOutput:
			dr, err := decodeDataRequestOutput(f.Bytes)
			if err != nil {
				return err
			}
			b.DrOutput = dr
		}
		return nil
	})
	return b, err
}

func encodeCommitTxBody(b *CommitTxBody) []byte {
	var out []byte
	out = appendMessageField(out, fnCommitDrPointer, encodeOutputPointer(b.DrPointer))
	out = appendBytesField(out, fnCommitCommitment, b.Commitment.Slice())
	out = appendMessageField(out, fnCommitProof, encodeVRFProof(b.Proof))
	out = append(out, encodeRepeated(b.CollateralInputs, fnCommitColIn, encodeInput)...)
	out = append(out, encodeRepeated(b.CollateralOutputs, fnCommitColOut, encodeVTO)...)
	return out
}

func decodeCommitTxBody(data []byte) (*CommitTxBody, error) {
	b := &CommitTxBody{}
	err := decodeFields(data, func(f decodedField) error {
		switch f.Num {
		case fnCommitDrPointer:
			op, err := decodeOutputPointer(f.Bytes)
			if err != nil {
				return err
			}
			b.DrPointer = op
		case fnCommitCommitment:
			h, err := decodeHash32(f.Bytes, "commit.commitment")
			if err != nil {
				return err
			}
			b.Commitment = h
		case fnCommitProof:
			p, err := decodeVRFProof(f.Bytes)
			if err != nil {
				return err
			}
			b.Proof = p
		case fnCommitColIn:
			in, err := decodeInput(f.Bytes)
			if err != nil {
				return err
			}
			b.CollateralInputs = append(b.CollateralInputs, in)
		case fnCommitColOut:
			o, err := decodeVTO(f.Bytes)
			if err != nil {
				return err
			}
			b.CollateralOutputs = append(b.CollateralOutputs, o)
		}
		return nil
	})
	return b, err
}

func encodeRevealTxBody(b *RevealTxBody) []byte {
	var out []byte
	out = appendMessageField(out, fnRevealDrPointer, encodeOutputPointer(b.DrPointer))
	out = appendBytesField(out, fnRevealPkh, b.Pkh[:])
	out = appendBytesField(out, fnRevealData, b.Reveal)
	return out
}

func decodeRevealTxBody(data []byte) (*RevealTxBody, error) {
	b := &RevealTxBody{}
	err := decodeFields(data, func(f decodedField) error {
		switch f.Num {
		case fnRevealDrPointer:
			op, err := decodeOutputPointer(f.Bytes)
			if err != nil {
				return err
			}
			b.DrPointer = op
		case fnRevealPkh:
			pkh, err := decodePkh20(f.Bytes, "reveal.pkh")
			if err != nil {
				return err
			}
			b.Pkh = pkh
		case fnRevealData:
			b.Reveal = append([]byte(nil), f.Bytes...)
		}
		return nil
	})
	return b, err
}

func encodeTallyTxBody(b *TallyTxBody) []byte {
	var out []byte
	out = appendMessageField(out, fnTallyDrPointer, encodeOutputPointer(b.DrPointer))
	out = appendBytesField(out, fnTallyResult, b.Tally)
	out = append(out, encodeRepeated(b.Outputs, fnTallyOutputs, encodeVTO)...)
	for _, pkh := range b.OutOfConsensus {
		out = appendBytesField(out, fnTallyOutOfConsensus, pkh[:])
	}
	for _, pkh := range b.Error {
		out = appendBytesField(out, fnTallyError, pkh[:])
	}
	out = appendBytesField(out, fnTallyRequesterPkh, b.RequesterPkh[:])
	return out
}

func decodeTallyTxBody(data []byte) (*TallyTxBody, error) {
	b := &TallyTxBody{}
	err := decodeFields(data, func(f decodedField) error {
		switch f.Num {
		case fnTallyDrPointer:
			op, err := decodeOutputPointer(f.Bytes)
			if err != nil {
				return err
			}
			b.DrPointer = op
		case fnTallyResult:
			b.Tally = append([]byte(nil), f.Bytes...)
		case fnTallyOutputs:
			o, err := decodeVTO(f.Bytes)
			if err != nil {
				return err
			}
			b.Outputs = append(b.Outputs, o)
		case fnTallyOutOfConsensus:
			pkh, err := decodePkh20(f.Bytes, "tally.out_of_consensus")
			if err != nil {
				return err
			}
			b.OutOfConsensus = append(b.OutOfConsensus, pkh)
		case fnTallyError:
			pkh, err := decodePkh20(f.Bytes, "tally.error")
			if err != nil {
				return err
			}
			b.Error = append(b.Error, pkh)
		case fnTallyRequesterPkh:
			pkh, err := decodePkh20(f.Bytes, "tally.requester_pkh")
			if err != nil {
				return err
			}
			b.RequesterPkh = pkh
		}
		return nil
	})
	return b, err
}

func encodeMintTxBody(b *MintTxBody) []byte {
	var out []byte
	out = appendVarintField(out, fnMintEpoch, uint64(b.Epoch))
	out = append(out, encodeRepeated(b.Outputs, fnMintOutputs, encodeVTO)...)
	return out
}

func decodeMintTxBody(data []byte) (*MintTxBody, error) {
	b := &MintTxBody{}
	err := decodeFields(data, func(f decodedField) error {
		switch f.Num {
		case fnMintEpoch:
			b.Epoch = Epoch(f.Varint)
		case fnMintOutputs:
			o, err := decodeVTO(f.Bytes)
			if err != nil {
				return err
			}
			b.Outputs = append(b.Outputs, o)
		}
		return nil
	})
	return b, err
}

// EncodeTxBody returns the canonical, signature-excluded encoding of t's
// body, used as the hash preimage (Transaction.Hash) and, by
// txpool.DefaultWeigher, as the measure of a transaction's weight.
func EncodeTxBody(t *Transaction) []byte {
	switch t.Kind {
	case KindValueTransfer:
		return appendMessageField(nil, fnTxValueTransfer, encodeValueTransferBody(t.ValueTransfer))
	case KindDataRequest:
		return appendMessageField(nil, fnTxDataRequest, encodeDataRequestTxBody(t.DataRequest))
	case KindCommit:
		return appendMessageField(nil, fnTxCommit, encodeCommitTxBody(t.Commit))
	case KindReveal:
		return appendMessageField(nil, fnTxReveal, encodeRevealTxBody(t.Reveal))
	case KindTally:
		return appendMessageField(nil, fnTxTally, encodeTallyTxBody(t.Tally))
	case KindMint:
		return appendMessageField(nil, fnTxMint, encodeMintTxBody(t.Mint))
	default:
		return nil
	}
}

// DecodeTxBody reconstructs a Transaction (without signatures, which are
// carried out of band) from its canonical body encoding.
func DecodeTxBody(data []byte) (*Transaction, error) {
	var t *Transaction
	err := decodeFields(data, func(f decodedField) error {
		switch f.Num {
		case fnTxValueTransfer:
			b, err := decodeValueTransferBody(f.Bytes)
			if err != nil {
				return err
			}
			t = newTransaction(KindValueTransfer, Transaction{ValueTransfer: b})
		case fnTxDataRequest:
			b, err := decodeDataRequestTxBody(f.Bytes)
			if err != nil {
				return err
			}
			t = newTransaction(KindDataRequest, Transaction{DataRequest: b})
		case fnTxCommit:
			b, err := decodeCommitTxBody(f.Bytes)
			if err != nil {
				return err
			}
			t = newTransaction(KindCommit, Transaction{Commit: b})
		case fnTxReveal:
			b, err := decodeRevealTxBody(f.Bytes)
			if err != nil {
				return err
			}
			t = newTransaction(KindReveal, Transaction{Reveal: b})
		case fnTxTally:
			b, err := decodeTallyTxBody(f.Bytes)
			if err != nil {
				return err
			}
			t = newTransaction(KindTally, Transaction{Tally: b})
		case fnTxMint:
			b, err := decodeMintTxBody(f.Bytes)
			if err != nil {
				return err
			}
			t = newTransaction(KindMint, Transaction{Mint: b})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, cerr(ErrRadParseFailure, "codec: empty or unrecognized transaction body")
	}
	return t, nil
}
