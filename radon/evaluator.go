// Package radon is the external RADON-execution collaborator (spec.md §1:
// "RADON script execution (treated as a pure oracle function evaluate(script,
// inputs) -> result | error)"). The full RADON language is out of scope
// (spec.md Non-goals: "RADON language semantics"); this package supplies a
// minimal, self-contained evaluator implementing the same contract
// (consensus.RadEvaluator) so the tally pipeline and its tests do not need
// a real script engine: reveals are raw byte values behind a one-byte
// value/error tag, and
// aggregation is mode consensus (the most common well-formed value),
// mirroring the RadonTypes::mode fold the original tally builder performs
// when a data request's aggregate/tally stage is configured for it.
package radon

import (
	"errors"

	"github.com/witnet-go/core/consensus"
)

// errMalformed indicates the raw reveal bytes are not a valid RadValue
// encoding. Per spec.md §4.6, callers treat this as an out-of-consensus
// error report, not as a fatal failure.
var errMalformed = errors.New("radon: malformed reveal")

const (
	tagValue byte = 0x00
	tagError byte = 0x01
)

// EncodeValue produces the raw reveal-body bytes for a well-formed,
// non-error oracle value; DecodeReveal is its inverse.
func EncodeValue(payload []byte) []byte {
	return append([]byte{tagValue}, payload...)
}

// EncodeError produces the raw reveal-body bytes for a well-formed error
// report (a witness that successfully ran the script but observed an
// oracle-level failure, as distinct from a malformed/undecodable reveal).
func EncodeError(payload []byte) []byte {
	return append([]byte{tagError}, payload...)
}

// Evaluator implements consensus.RadEvaluator. It holds no state: every
// method is a pure function of its arguments.
type Evaluator struct{}

// DecodeReveal parses raw reveal bytes into a RadValue (spec.md §4.6).
// The wire tag alone determines whether a reveal is a value or an error.
func (Evaluator) DecodeReveal(raw []byte) (consensus.RadValue, error) {
	if len(raw) == 0 {
		return consensus.RadValue{}, errMalformed
	}
	switch raw[0] {
	case tagValue:
		return consensus.RadValue{IsError: false, Bytes: append([]byte(nil), raw[1:]...)}, nil
	case tagError:
		return consensus.RadValue{IsError: true, Bytes: append([]byte(nil), raw[1:]...)}, nil
	default:
		return consensus.RadValue{}, errMalformed
	}
}

// Aggregate folds the well-formed decoded values by mode consensus (the
// most common value; ties go to the first one encountered), producing the
// consensus result. tallyScript is not read: every script gets this same
// fold, and the RADON language's richer aggregation functions (mean,
// median, weighted filters) are not implemented.
func (Evaluator) Aggregate(tallyScript []byte, values []consensus.RadValue) (consensus.RadValue, error) {
	if len(values) == 0 {
		return consensus.RadValue{IsError: true, Bytes: []byte("no_reveals")}, nil
	}

	counts := make(map[string]int, len(values))
	order := make([]string, 0, len(values))
	repr := make(map[string]consensus.RadValue, len(values))
	for _, v := range values {
		key := string(v.Bytes)
		if v.IsError {
			key = "\x01" + key
		} else {
			key = "\x00" + key
		}
		if counts[key] == 0 {
			order = append(order, key)
			repr[key] = v
		}
		counts[key]++
	}

	bestKey := order[0]
	for _, k := range order[1:] {
		if counts[k] > counts[bestKey] {
			bestKey = k
		}
	}
	return repr[bestKey], nil
}
