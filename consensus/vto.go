package consensus

// ValueTransferOutput is a spendable output: value paid to a PKH, with an
// optional time-lock (epoch timestamp before which it cannot be spent).
type ValueTransferOutput struct {
	Pkh      PublicKeyHash
	Value    uint64
	TimeLock uint64
}

// IsTimeLocked reports whether the output cannot yet be spent at the
// given epoch timestamp (spec.md §3: time_lock > current_epoch_timestamp).
func (o ValueTransferOutput) IsTimeLocked(currentEpochTimestamp uint64) bool {
	return o.TimeLock > currentEpochTimestamp
}
