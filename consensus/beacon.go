package consensus

// Epoch is the u32 checkpoint index used throughout the protocol.
type Epoch = uint32

// CheckpointBeacon identifies a chain tip by checkpoint and the hash of
// the block at that checkpoint's predecessor. Checkpoint 0 is genesis.
type CheckpointBeacon struct {
	Checkpoint    Epoch
	HashPrevBlock Hash
}

// EpochConstants carries the epoch clock parameters. The epoch clock
// itself (a monotonic checkpoint counter) is an external collaborator
// per spec.md §1; this struct only holds the pure arithmetic needed to
// map an epoch to its nominal timestamp.
type EpochConstants struct {
	CheckpointZeroTimestamp uint64
	CheckpointsPeriod       uint64 // seconds
}

// EpochTimestamp returns genesis_timestamp + epoch*checkpoint_period.
func (c EpochConstants) EpochTimestamp(epoch Epoch) uint64 {
	return c.CheckpointZeroTimestamp + uint64(epoch)*c.CheckpointsPeriod
}

// EpochAt returns the epoch whose nominal timestamp window contains t, or
// 0 with ok=false if t precedes genesis.
func (c EpochConstants) EpochAt(t uint64) (epoch Epoch, ok bool) {
	if t < c.CheckpointZeroTimestamp || c.CheckpointsPeriod == 0 {
		return 0, false
	}
	return Epoch((t - c.CheckpointZeroTimestamp) / c.CheckpointsPeriod), true
}
