package consensus

import "fmt"

// ErrorCode is a flat, non-nested consensus error identifier. Namespacing
// (BlockError / TransactionError / DataRequestError / RadError) is a
// naming convention on the code string, not a distinct Go type: every
// consensus failure is carried by the single ConsensusError wrapper below.
type ErrorCode string

const (
	// BlockError codes.
	ErrEmpty                        ErrorCode = "BLOCK_EMPTY"
	ErrNoMint                       ErrorCode = "BLOCK_NO_MINT"
	ErrMismatchedMintValue          ErrorCode = "BLOCK_MISMATCHED_MINT_VALUE"
	ErrNotValidPoe                  ErrorCode = "BLOCK_NOT_VALID_POE"
	ErrNotValidMerkleTree           ErrorCode = "BLOCK_NOT_VALID_MERKLE_TREE"
	ErrBlockFromFuture              ErrorCode = "BLOCK_FROM_FUTURE"
	ErrBlockOlderThanTip            ErrorCode = "BLOCK_OLDER_THAN_TIP"
	ErrPreviousHashNotKnown         ErrorCode = "BLOCK_PREVIOUS_HASH_NOT_KNOWN"
	ErrCandidateFromDifferentEpoch  ErrorCode = "BLOCK_CANDIDATE_FROM_DIFFERENT_EPOCH"
	ErrBlockEligibilityDoesNotMeetTarget ErrorCode = "BLOCK_ELIGIBILITY_DOES_NOT_MEET_TARGET"
	ErrPublicKeyHashMismatch        ErrorCode = "BLOCK_PUBLIC_KEY_HASH_MISMATCH"
	ErrVerifySignatureFail          ErrorCode = "BLOCK_VERIFY_SIGNATURE_FAIL"

	// TransactionError codes.
	ErrNoInputs                   ErrorCode = "TX_NO_INPUTS"
	ErrMismatchingSignaturesCount ErrorCode = "TX_MISMATCHING_SIGNATURES_COUNT"
	ErrOutputNotFound             ErrorCode = "TX_OUTPUT_NOT_FOUND"
	ErrNegativeFee                ErrorCode = "TX_NEGATIVE_FEE"
	ErrZeroValueOutput            ErrorCode = "TX_ZERO_VALUE_OUTPUT"
	ErrOutputValueOverflow        ErrorCode = "TX_OUTPUT_VALUE_OVERFLOW"
	ErrInputValueOverflow         ErrorCode = "TX_INPUT_VALUE_OVERFLOW"
	ErrTimeLock                   ErrorCode = "TX_TIME_LOCKED"
	ErrDuplicatedOutputPointer    ErrorCode = "TX_DUPLICATED_OUTPUT_POINTER"
	ErrTxPublicKeyHashMismatch    ErrorCode = "TX_PUBLIC_KEY_HASH_MISMATCH"
	ErrTxVerifySignatureFail      ErrorCode = "TX_VERIFY_SIGNATURE_FAIL"
	ErrInvalidDataRequestReward   ErrorCode = "TX_INVALID_DATA_REQUEST_REWARD"
	ErrInvalidDataRequestValue    ErrorCode = "TX_INVALID_DATA_REQUEST_VALUE"
	ErrInsufficientWitnesses      ErrorCode = "TX_INSUFFICIENT_WITNESSES"
	ErrCommitNotFound             ErrorCode = "TX_COMMIT_NOT_FOUND"
	ErrMismatchedCommitment       ErrorCode = "TX_MISMATCHED_COMMITMENT"
	ErrNoTallyStage               ErrorCode = "TX_NO_TALLY_STAGE"
	ErrNotCommitStage             ErrorCode = "TX_NOT_COMMIT_STAGE"
	ErrNotRevealStage             ErrorCode = "TX_NOT_REVEAL_STAGE"
	ErrMismatchedConsensus        ErrorCode = "TX_MISMATCHED_CONSENSUS"
	ErrWrongNumberOutputs         ErrorCode = "TX_WRONG_NUMBER_OUTPUTS"
	ErrMultipleRewards            ErrorCode = "TX_MULTIPLE_REWARDS"
	ErrRevealNotFound             ErrorCode = "TX_REVEAL_NOT_FOUND"
	ErrInvalidTallyChange         ErrorCode = "TX_INVALID_TALLY_CHANGE"
	ErrMaximumWeightReached       ErrorCode = "TX_MAXIMUM_WEIGHT_REACHED"
	ErrFeeOverflow                ErrorCode = "TX_FEE_OVERFLOW"
	ErrAlreadyCommitted           ErrorCode = "TX_ALREADY_COMMITTED"
	ErrCollateralNotMature        ErrorCode = "TX_COLLATERAL_NOT_MATURE"
	ErrInvalidEligibilityProof    ErrorCode = "TX_INVALID_ELIGIBILITY_PROOF"
	ErrArithmeticOverflow         ErrorCode = "TX_ARITHMETIC_OVERFLOW"

	// DataRequestError codes.
	ErrDrNotFound       ErrorCode = "DR_NOT_FOUND"
	ErrAddCommitFailed  ErrorCode = "DR_ADD_COMMIT_FAILED"
	ErrAddRevealFailed  ErrorCode = "DR_ADD_REVEAL_FAILED"
	ErrAddTallyFailed   ErrorCode = "DR_ADD_TALLY_FAILED"
	ErrStageMismatch    ErrorCode = "DR_STAGE_MISMATCH"

	// RadError codes.
	ErrRadParseFailure        ErrorCode = "RAD_PARSE_FAILURE"
	ErrRadScriptRuntimeFailure ErrorCode = "RAD_SCRIPT_RUNTIME_FAILURE"
	ErrRadTimeout             ErrorCode = "RAD_TIMEOUT"
	ErrRadEncodeFailure       ErrorCode = "RAD_ENCODE_FAILURE"
)

// ConsensusError is the single wrapper type carrying every consensus
// failure in this package, tagged by ErrorCode. Adapted from the
// teacher's txerr/TxError pattern (one error struct, many codes).
type ConsensusError struct {
	Code ErrorCode
	Msg  string
}

func (e *ConsensusError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Is allows errors.Is(err, ConsensusError{Code: X}) style matching against
// a code, without exposing the message text as part of identity.
func (e *ConsensusError) Is(target error) bool {
	t, ok := target.(*ConsensusError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func cerr(code ErrorCode, msg string) error {
	return &ConsensusError{Code: code, Msg: msg}
}

func cerrf(code ErrorCode, format string, args ...interface{}) error {
	return &ConsensusError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Code extracts the ErrorCode from any error produced by this package, or
// "" if err is not a *ConsensusError.
func Code(err error) ErrorCode {
	ce, ok := err.(*ConsensusError)
	if !ok || ce == nil {
		return ""
	}
	return ce.Code
}
