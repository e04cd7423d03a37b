package consensus

import (
	"math/big"
	"testing"
)

func pkhOf(b byte) PublicKeyHash {
	var p PublicKeyHash
	p[0] = b
	return p
}

func TestTRSGainAndGetNoDecayAtSameAlpha(t *testing.T) {
	trs := NewTRS(0.002)
	alice := pkhOf(1)
	trs.Gain(100, []ReputationGain{{Pkh: alice, Points: 1000}})
	if got := trs.Get(alice, 100); got != 1000 {
		t.Fatalf("Get at grant alpha = %d, want 1000 (no decay yet)", got)
	}
}

func TestTRSDecaysOverGenerations(t *testing.T) {
	trs := NewTRS(0.5) // aggressive decay to make the test sharp
	alice := pkhOf(1)
	trs.Gain(0, []ReputationGain{{Pkh: alice, Points: 1000}})
	got := trs.Get(alice, 1)
	if got == 0 || got >= 1000 {
		t.Fatalf("Get one generation later = %d, want strictly between 0 and 1000", got)
	}
	if got != 500 {
		t.Fatalf("Get with demurrage 0.5 after one generation = %d, want 500", got)
	}
}

func TestTRSUnknownIdentityIsZero(t *testing.T) {
	trs := NewTRS(0.002)
	if got := trs.Get(pkhOf(99), 10); got != 0 {
		t.Fatalf("Get for unknown identity = %d, want 0", got)
	}
}

func TestTRSZeroPointGainIsNoop(t *testing.T) {
	trs := NewTRS(0.002)
	alice := pkhOf(1)
	trs.Gain(0, []ReputationGain{{Pkh: alice, Points: 0}})
	if got := trs.Get(alice, 0); got != 0 {
		t.Fatalf("Get after zero-point gain = %d, want 0", got)
	}
}

func TestTRSSnapshotRestorePreservesDecay(t *testing.T) {
	trs := NewTRS(0.5)
	alice := pkhOf(1)
	trs.Gain(0, []ReputationGain{{Pkh: alice, Points: 1000}})

	snap := trs.Snapshot()
	restored := NewTRS(0.5)
	restored.Restore(snap)

	if got := restored.Get(alice, 1); got != 1000/2 {
		t.Fatalf("restored Get = %d, want 500 (decay keyed to original alpha)", got)
	}
}

func TestARSPushActivityAndActiveIdentitiesNumber(t *testing.T) {
	ars := NewARS(3)
	ars.PushActivity([]PublicKeyHash{pkhOf(1)})
	ars.PushActivity([]PublicKeyHash{pkhOf(2)})
	if n := ars.ActiveIdentitiesNumber(); n != 2 {
		t.Fatalf("ActiveIdentitiesNumber = %d, want 2", n)
	}
	if !ars.Contains(pkhOf(1)) || !ars.Contains(pkhOf(2)) {
		t.Fatal("expected both pushed identities to be present")
	}
}

func TestARSRingEvictsOldActivity(t *testing.T) {
	ars := NewARS(2)
	ars.PushActivity([]PublicKeyHash{pkhOf(1)})
	ars.PushActivity([]PublicKeyHash{pkhOf(2)})
	ars.PushActivity([]PublicKeyHash{pkhOf(3)}) // evicts position holding pkh(1)

	if ars.Contains(pkhOf(1)) {
		t.Fatal("identity from the evicted ring slot should no longer be present")
	}
	if !ars.Contains(pkhOf(2)) || !ars.Contains(pkhOf(3)) {
		t.Fatal("expected the two most recent pushes to remain present")
	}
}

func TestARSSnapshotRestoreRoundtrip(t *testing.T) {
	ars := NewARS(2)
	ars.PushActivity([]PublicKeyHash{pkhOf(5)})
	snap := ars.Snapshot()
	head := ars.Head()

	restored := NewARS(2)
	restored.Restore(snap, head)
	if !restored.Contains(pkhOf(5)) {
		t.Fatal("restored ARS missing snapshotted identity")
	}
	if restored.Head() != head {
		t.Fatalf("restored head = %d, want %d", restored.Head(), head)
	}
}

func TestRandPoETargetBootstrapIsMaxTarget(t *testing.T) {
	target := RandPoETarget(0, 4)
	if target.Cmp(maxTarget) != 0 {
		t.Fatal("RandPoETarget with zero active identities should be the max target (always eligible)")
	}
}

func TestRandPoETargetShrinksWithMoreIdentities(t *testing.T) {
	small := RandPoETarget(10, 1)
	large := RandPoETarget(1000, 1)
	if small.Cmp(large) <= 0 {
		t.Fatal("target should shrink as the active identity set grows")
	}
}

func TestRandPoETargetNeverExceedsMax(t *testing.T) {
	target := RandPoETarget(1, 1<<30)
	if target.Cmp(maxTarget) > 0 {
		t.Fatal("target must be clamped to [0, 2^256)")
	}
}

func TestRepPoETargetBootstrapIsMaxTarget(t *testing.T) {
	target := RepPoETarget(0, 1, 0, 0)
	if target.Cmp(maxTarget) != 0 {
		t.Fatal("RepPoETarget with zero total active reputation should be the max target")
	}
}

func TestRepPoETargetGrowsWithReputation(t *testing.T) {
	low := RepPoETarget(1, 1, 0, 1000)
	high := RepPoETarget(500, 1, 0, 1000)
	if low.Cmp(high) >= 0 {
		t.Fatal("higher reputation should yield a larger (more eligible) target")
	}
}

func TestEligibilityComparesAgainstTarget(t *testing.T) {
	target := big.NewInt(100)
	below := Hash{}
	if !RandPoEEligible(below, target) {
		t.Fatal("all-zero hash should be eligible against any positive target")
	}
}
