package consensus

// Params bundles the consensus constants wired in at genesis, per spec.md
// §6. All validation and mining code threads Params explicitly rather than
// reading ambient globals (spec.md §9 "no ambient globals").
type Params struct {
	CheckpointZeroTimestamp uint64
	CheckpointsPeriod       uint64 // seconds
	GenesisHash             Hash
	MaxBlockWeight          uint64
	CollateralMinimum       uint64
	ActivityPeriod          uint64
	ReputationIssuancePeriod uint64
	ReputationDemurrage     float64 // per-epoch decay factor, 0 < d < 1
	ReputationPunishment    float64
	MiningBackupFactor      uint32
	MiningReplicationFactor uint32
	HalvingPeriod           uint32
	InitialBlockReward      uint64
	ExtraRounds             uint16
	MinConsensusPercentageLowerBound  uint32 // exclusive lower bound, 50
	MinConsensusPercentageUpperBound  uint32 // exclusive upper bound, 100
}

// EpochConstants extracts the epoch-clock portion of Params.
func (p Params) EpochConstants() EpochConstants {
	return EpochConstants{
		CheckpointZeroTimestamp: p.CheckpointZeroTimestamp,
		CheckpointsPeriod:       p.CheckpointsPeriod,
	}
}

// DefaultMainnetParams returns a representative constant set. Real
// deployments override every field from genesis configuration; this is a
// convenience used by tests and devnet tooling (mirrors the teacher's
// DefaultMinerConfig/DefaultConfig constructors).
func DefaultMainnetParams() Params {
	return Params{
		CheckpointZeroTimestamp:          1602666000,
		CheckpointsPeriod:                45,
		GenesisHash:                      ZeroHash,
		MaxBlockWeight:                   10_000_000,
		CollateralMinimum:                1_000_000_000,
		ActivityPeriod:                   2000,
		ReputationIssuancePeriod:         150,
		ReputationDemurrage:              0.002,
		ReputationPunishment:             0.5,
		MiningBackupFactor:               4,
		MiningReplicationFactor:          3,
		HalvingPeriod:                    3_500_000,
		InitialBlockReward:               500_000_000,
		ExtraRounds:                      3,
		MinConsensusPercentageLowerBound: 50,
		MinConsensusPercentageUpperBound: 100,
	}
}
