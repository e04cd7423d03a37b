package consensus

import (
	"math/big"
	"sync"
)

// reputationGrant is one TRS entry: points issued at generation alpha,
// decayed lazily at read time (spec.md §4.4).
type reputationGrant struct {
	alpha  uint64
	points uint64
}

// ReputationGain is one (identity, points) pair passed to TRS.Gain.
type ReputationGain struct {
	Pkh    PublicKeyHash
	Points uint64
}

// TRS is the Total Reputation Set: identity -> demurrage-decayed
// reputation points (spec.md §4.4). Grants are recorded per generation
// and decayed lazily on read; once a grant's decayed value floors to
// zero it is tombstoned (dropped) rather than kept as dead weight.
type TRS struct {
	mu        sync.Mutex
	demurrage *big.Rat // 1 - reputation_demurrage, exact rational
	grants    map[PublicKeyHash][]reputationGrant
}

// NewTRS builds a TRS with the given per-epoch demurrage rate (spec.md
// §6 reputation_demurrage, 0 < d < 1).
func NewTRS(demurrage float64) *TRS {
	decayFactor := new(big.Rat)
	decayFactor.SetFloat64(1 - demurrage)
	return &TRS{
		demurrage: decayFactor,
		grants:    make(map[PublicKeyHash][]reputationGrant),
	}
}

// Gain records new reputation grants at generation alpha (spec.md §4.4
// "gain(alpha, [(pkh, points)])").
func (t *TRS) Gain(alpha uint64, gains []ReputationGain) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, g := range gains {
		if g.Points == 0 {
			continue
		}
		t.grants[g.Pkh] = append(t.grants[g.Pkh], reputationGrant{alpha: alpha, points: g.Points})
	}
}

// ratPow computes base^n via exponentiation by squaring, exactly (no
// floating-point drift), since eligibility computations must agree
// bit-exactly across implementations (spec.md §4.4).
func ratPow(base *big.Rat, n uint64) *big.Rat {
	result := big.NewRat(1, 1)
	b := new(big.Rat).Set(base)
	for n > 0 {
		if n&1 == 1 {
			result.Mul(result, b)
		}
		b.Mul(b, b)
		n >>= 1
	}
	return result
}

// decayedValue floors points*demurrage^(atAlpha-grantAlpha) to a uint64.
// If atAlpha is at or before grantAlpha it returns points undecayed
// rather than underflowing the exponent.
func (t *TRS) decayedValue(g reputationGrant, atAlpha uint64) uint64 {
	if atAlpha <= g.alpha {
		return g.points
	}
	factor := ratPow(t.demurrage, atAlpha-g.alpha)
	val := new(big.Rat).Mul(new(big.Rat).SetUint64(g.points), factor)
	q := new(big.Int).Quo(val.Num(), val.Denom())
	if !q.IsUint64() {
		return 0
	}
	return q.Uint64()
}

// Get returns pkh's total reputation as observed at generation atAlpha,
// summing every live grant's decayed value and tombstoning grants that
// have decayed to zero.
func (t *TRS) Get(pkh PublicKeyHash, atAlpha uint64) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	grants := t.grants[pkh]
	if len(grants) == 0 {
		return 0
	}
	var total uint64
	live := grants[:0]
	for _, g := range grants {
		v := t.decayedValue(g, atAlpha)
		if v == 0 {
			continue // tombstoned
		}
		total += v
		live = append(live, g)
	}
	if len(live) == 0 {
		delete(t.grants, pkh)
	} else {
		t.grants[pkh] = live
	}
	return total
}

// TotalActiveReputation sums Get(pkh, atAlpha) over every identity
// currently in the ARS, the denominator of the RepPoE target.
func (t *TRS) TotalActiveReputation(ars *ARS, atAlpha uint64) uint64 {
	var total uint64
	ars.ForEachActive(func(pkh PublicKeyHash) {
		total += t.Get(pkh, atAlpha)
	})
	return total
}

// GrantSnapshot is one (generation, points) grant as captured by
// TRS.Snapshot, preserving the original alpha so a Restore decays
// identically to the live TRS it was copied from.
type GrantSnapshot struct {
	Alpha  uint64
	Points uint64
}

// Snapshot returns a deep copy of every recorded grant (with its
// original generation), used by ChainManager.Checkpoint for rewind
// support.
func (t *TRS) Snapshot() map[PublicKeyHash][]GrantSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[PublicKeyHash][]GrantSnapshot, len(t.grants))
	for pkh, grants := range t.grants {
		for _, g := range grants {
			out[pkh] = append(out[pkh], GrantSnapshot{Alpha: g.alpha, Points: g.points})
		}
	}
	return out
}

// Restore replaces the TRS's grants with a previously captured Snapshot,
// preserving each grant's original generation so future reads decay
// exactly as they would have in the live set the snapshot was taken
// from.
func (t *TRS) Restore(snapshot map[PublicKeyHash][]GrantSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.grants = make(map[PublicKeyHash][]reputationGrant, len(snapshot))
	for pkh, gains := range snapshot {
		for _, g := range gains {
			t.grants[pkh] = append(t.grants[pkh], reputationGrant{alpha: g.Alpha, points: g.Points})
		}
	}
}

// ARS is the Active Reputation Set: a ring buffer of length
// activity_period, one set of PKHs per past position, that produced
// accepted blocks or commits there (spec.md §4.4).
type ARS struct {
	mu     sync.Mutex
	ring   []map[PublicKeyHash]struct{}
	period uint64
	head   int
}

// NewARS allocates an ARS ring of the given activity period.
func NewARS(activityPeriod uint64) *ARS {
	if activityPeriod == 0 {
		activityPeriod = 1
	}
	ring := make([]map[PublicKeyHash]struct{}, activityPeriod)
	for i := range ring {
		ring[i] = make(map[PublicKeyHash]struct{})
	}
	return &ARS{ring: ring, period: activityPeriod}
}

// PushActivity advances the ring by one position, recording pkhs as
// active at the new head and evicting whatever activity fell off the
// tail (spec.md §4.4 "push_activity(pkhs)").
func (a *ARS) PushActivity(pkhs []PublicKeyHash) {
	a.mu.Lock()
	defer a.mu.Unlock()
	set := make(map[PublicKeyHash]struct{}, len(pkhs))
	for _, pkh := range pkhs {
		set[pkh] = struct{}{}
	}
	a.ring[a.head] = set
	a.head = int((uint64(a.head) + 1) % a.period)
}

// ActiveIdentitiesNumber returns the union cardinality across the whole
// ring (spec.md §4.4 "active_identities_number()").
func (a *ARS) ActiveIdentitiesNumber() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	union := make(map[PublicKeyHash]struct{})
	for _, set := range a.ring {
		for pkh := range set {
			union[pkh] = struct{}{}
		}
	}
	return uint64(len(union))
}

// Contains reports whether pkh appears anywhere in the ring.
func (a *ARS) Contains(pkh PublicKeyHash) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, set := range a.ring {
		if _, ok := set[pkh]; ok {
			return true
		}
	}
	return false
}

// ForEachActive invokes fn once per distinct identity currently in the
// ring.
func (a *ARS) ForEachActive(fn func(PublicKeyHash)) {
	a.mu.Lock()
	seen := make(map[PublicKeyHash]struct{})
	for _, set := range a.ring {
		for pkh := range set {
			seen[pkh] = struct{}{}
		}
	}
	a.mu.Unlock()
	for pkh := range seen {
		fn(pkh)
	}
}

// Snapshot returns a deep copy of every ring position's member set.
func (a *ARS) Snapshot() []map[PublicKeyHash]struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]map[PublicKeyHash]struct{}, len(a.ring))
	for i, set := range a.ring {
		cp := make(map[PublicKeyHash]struct{}, len(set))
		for pkh := range set {
			cp[pkh] = struct{}{}
		}
		out[i] = cp
	}
	return out
}

// Restore replaces the ring with a previously captured Snapshot and sets
// the write head to head, the value Head() returned at capture time
// (ChainManager stores it alongside the ring in its checkpoint).
func (a *ARS) Restore(ring []map[PublicKeyHash]struct{}, head int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ring = make([]map[PublicKeyHash]struct{}, len(ring))
	for i, set := range ring {
		cp := make(map[PublicKeyHash]struct{}, len(set))
		for pkh := range set {
			cp[pkh] = struct{}{}
		}
		a.ring[i] = cp
	}
	a.period = uint64(len(ring))
	a.head = head
}

// Head returns the ring's current write position, captured alongside
// Snapshot so Restore can reproduce it exactly.
func (a *ARS) Head() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.head
}

// twoPow256 is the modulus every eligibility target is computed against.
var twoPow256 = new(big.Int).Lsh(big.NewInt(1), 256)

// maxTarget is the largest representable target, 2^256 - 1, the clamp
// ceiling for RepPoE (spec.md §4.4 "clamped to [0, 2^256)").
var maxTarget = new(big.Int).Sub(twoPow256, big.NewInt(1))

// RandPoETarget computes the block-leadership eligibility target:
// floor(2^256 * mining_backup_factor / active_identities_number). With
// zero active identities (bootstrap, before any ARS activity has been
// recorded) every claimant is eligible, matching genesis where no prior
// block producer exists to compare against.
func RandPoETarget(activeIdentities uint64, backupFactor uint32) *big.Int {
	if activeIdentities == 0 {
		return new(big.Int).Set(maxTarget)
	}
	num := new(big.Int).Mul(twoPow256, big.NewInt(int64(backupFactor)))
	target := new(big.Int).Quo(num, big.NewInt(int64(activeIdentities)))
	if target.Cmp(maxTarget) > 0 {
		target.Set(maxTarget)
	}
	return target
}

// RandPoEEligible reports whether vrfHash, read as a big-endian 256-bit
// integer, is below target.
func RandPoEEligible(vrfHash Hash, target *big.Int) bool {
	h := new(big.Int).SetBytes(vrfHash.Slice())
	return h.Cmp(target) < 0
}

// RepPoETarget computes the data-request-witnessing eligibility target:
// proportional to (my_rep+1)*(witnesses+backup_witnesses)/total_active_rep,
// clamped to [0, 2^256) (spec.md §4.4). With zero total active
// reputation every claimant is eligible (bootstrap).
func RepPoETarget(myRep uint64, witnesses, backupWitnesses uint32, totalActiveRep uint64) *big.Int {
	if totalActiveRep == 0 {
		return new(big.Int).Set(maxTarget)
	}
	num := new(big.Int).Mul(twoPow256, big.NewInt(int64(myRep)+1))
	num.Mul(num, big.NewInt(int64(witnesses)+int64(backupWitnesses)))
	target := new(big.Int).Quo(num, big.NewInt(int64(totalActiveRep)))
	if target.Cmp(maxTarget) > 0 {
		target.Set(maxTarget)
	}
	return target
}

// RepPoEEligible reports whether vrfHash is below target.
func RepPoEEligible(vrfHash Hash, target *big.Int) bool {
	h := new(big.Int).SetBytes(vrfHash.Slice())
	return h.Cmp(target) < 0
}
