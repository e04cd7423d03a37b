package consensus

// Input references a previously created output by pointer.
type Input struct {
	OutputPointer OutputPointer
}

// PublicKey is a compressed secp256k1 public key.
type PublicKey struct {
	Bytes []byte // 33 bytes, compressed form
}

// Signature is a raw ECDSA-secp256k1 signature (64-byte r||s, non-malleable
// low-S form enforced by cryptoutil at verification time).
type Signature struct {
	Bytes []byte
}

// KeyedSignature pairs a signature with the public key that produced it,
// one per spent input (spec.md §4.5: "One signature per input").
type KeyedSignature struct {
	Signature Signature
	PublicKey PublicKey
}

// VRFProof is a verifiable-random-function proof over secp256k1.
type VRFProof struct {
	Proof     []byte
	PublicKey PublicKey
}

// DataRequestOutput describes the oracle query and its witness economics.
type DataRequestOutput struct {
	DataRequest            []byte // opaque RADON script bytes; evaluated by the external radon collaborator
	Witnesses              uint16
	WitnessReward          uint64
	CommitAndRevealFee     uint64
	MinConsensusPercentage uint32 // strictly in (50, 100)
	Collateral             uint64 // 0 means "use collateral_minimum"
}

// EffectiveCollateral returns the collateral actually required of a
// committer: the declared value, or collateral_minimum when the DR leaves
// it at the sentinel zero (spec.md §3).
func (d DataRequestOutput) EffectiveCollateral(collateralMinimum uint64) uint64 {
	if d.Collateral == 0 {
		return collateralMinimum
	}
	return d.Collateral
}

// TotalDrValue is witness_reward*witnesses + commit_and_reveal_fee*2*witnesses
// (spec.md §4.5), the amount a requester must fund besides collateral.
func (d DataRequestOutput) TotalDrValue() (uint64, error) {
	wr, err := mulU64(d.WitnessReward, uint64(d.Witnesses))
	if err != nil {
		return 0, cerr(ErrInvalidDataRequestValue, "witness_reward*witnesses overflow")
	}
	crf, err := mulU64(d.CommitAndRevealFee, 2*uint64(d.Witnesses))
	if err != nil {
		return 0, cerr(ErrInvalidDataRequestValue, "commit_and_reveal_fee*2*witnesses overflow")
	}
	total, err := addU64(wr, crf)
	if err != nil {
		return 0, cerr(ErrInvalidDataRequestValue, "total_dr_value overflow")
	}
	return total, nil
}

// ValueTransferBody moves value between outputs.
type ValueTransferBody struct {
	Inputs  []Input
	Outputs []ValueTransferOutput
}

// DataRequestTxBody funds and announces a new data request.
type DataRequestTxBody struct {
	Inputs    []Input
	Outputs   []ValueTransferOutput // change outputs, optional
	DrOutput  DataRequestOutput
}

// CommitTxBody is a witness's hash-commitment to a future reveal, backed
// by collateral and an eligibility proof.
type CommitTxBody struct {
	DrPointer         OutputPointer
	Commitment        Hash // SHA-256(canonical_encode(reveal_signature))
	Proof             VRFProof
	CollateralInputs  []Input
	CollateralOutputs []ValueTransferOutput // collateral change, optional
}

// RevealTxBody discloses a committer's value.
type RevealTxBody struct {
	DrPointer OutputPointer
	Pkh       PublicKeyHash
	Reveal    []byte
}

// TallyTxBody is the deterministic fold over all reveals of a data
// request, including reward distribution.
type TallyTxBody struct {
	DrPointer      OutputPointer
	Tally          []byte
	Outputs        []ValueTransferOutput
	OutOfConsensus []PublicKeyHash // liars
	Error          []PublicKeyHash // well-formed error reporters
	RequesterPkh   PublicKeyHash   // who receives the requester's change output
}

// MintTxBody is the per-block reward transaction.
type MintTxBody struct {
	Epoch   Epoch
	Outputs []ValueTransferOutput
}

// TransactionKind tags the variant carried by a Transaction.
type TransactionKind uint8

const (
	KindValueTransfer TransactionKind = iota
	KindDataRequest
	KindCommit
	KindReveal
	KindTally
	KindMint
)

func (k TransactionKind) String() string {
	switch k {
	case KindValueTransfer:
		return "ValueTransfer"
	case KindDataRequest:
		return "DataRequest"
	case KindCommit:
		return "Commit"
	case KindReveal:
		return "Reveal"
	case KindTally:
		return "Tally"
	case KindMint:
		return "Mint"
	default:
		return "Unknown"
	}
}

// Transaction is the tagged union of every consensus transaction variant.
// Exactly one of the variant fields is non-nil, selected by Kind. Bodies
// are treated as immutable after NewXxxTransaction returns (spec.md §9):
// the hash is computed eagerly at construction and never recomputed.
type Transaction struct {
	Kind TransactionKind

	ValueTransfer *ValueTransferBody
	DataRequest   *DataRequestTxBody
	Commit        *CommitTxBody
	Reveal        *RevealTxBody
	Tally         *TallyTxBody
	Mint          *MintTxBody

	// Signatures carries one KeyedSignature per spent input, in input
	// order, for the variants that have inputs (ValueTransfer,
	// DataRequest, Commit — against CollateralInputs). Reveal, Tally and
	// Mint are unsigned or signed out of band by the block producer.
	Signatures []KeyedSignature

	hash Hash
}

func newTransaction(kind TransactionKind, t Transaction) *Transaction {
	t.Kind = kind
	t.hash = HashBytes(EncodeTxBody(&t))
	return &t
}

// NewValueTransferTransaction constructs and hashes a ValueTransfer tx.
func NewValueTransferTransaction(body ValueTransferBody, sigs []KeyedSignature) *Transaction {
	return newTransaction(KindValueTransfer, Transaction{ValueTransfer: &body, Signatures: sigs})
}

// NewDataRequestTransaction constructs and hashes a DataRequest tx.
func NewDataRequestTransaction(body DataRequestTxBody, sigs []KeyedSignature) *Transaction {
	return newTransaction(KindDataRequest, Transaction{DataRequest: &body, Signatures: sigs})
}

// NewCommitTransaction constructs and hashes a Commit tx.
func NewCommitTransaction(body CommitTxBody, sigs []KeyedSignature) *Transaction {
	return newTransaction(KindCommit, Transaction{Commit: &body, Signatures: sigs})
}

// NewRevealTransaction constructs and hashes a Reveal tx.
func NewRevealTransaction(body RevealTxBody, sigs []KeyedSignature) *Transaction {
	return newTransaction(KindReveal, Transaction{Reveal: &body, Signatures: sigs})
}

// NewTallyTransaction constructs and hashes a Tally tx (never signed).
func NewTallyTransaction(body TallyTxBody) *Transaction {
	return newTransaction(KindTally, Transaction{Tally: &body})
}

// NewMintTransaction constructs and hashes a Mint tx (never signed).
func NewMintTransaction(body MintTxBody) *Transaction {
	return newTransaction(KindMint, Transaction{Mint: &body})
}

// Hash returns the cached transaction hash (SHA-256 of the canonical
// encoding of the body; signatures excluded, per spec.md §4.1).
func (t *Transaction) Hash() Hash { return t.hash }

// Inputs returns the spent-output pointers for variants that have them
// (ValueTransfer/DataRequest use Inputs, Commit uses CollateralInputs).
func (t *Transaction) Inputs() []Input {
	switch t.Kind {
	case KindValueTransfer:
		return t.ValueTransfer.Inputs
	case KindDataRequest:
		return t.DataRequest.Inputs
	case KindCommit:
		return t.Commit.CollateralInputs
	default:
		return nil
	}
}

// Outputs returns the newly created outputs for variants that produce
// ValueTransferOutputs directly (not Commit/Reveal, whose outputs are
// collateral change and handled via Inputs()/CollateralOutputs).
func (t *Transaction) Outputs() []ValueTransferOutput {
	switch t.Kind {
	case KindValueTransfer:
		return t.ValueTransfer.Outputs
	case KindDataRequest:
		return t.DataRequest.Outputs
	case KindCommit:
		return t.Commit.CollateralOutputs
	case KindTally:
		return t.Tally.Outputs
	case KindMint:
		return t.Mint.Outputs
	default:
		return nil
	}
}
