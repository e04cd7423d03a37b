package consensus

import "math"

import "testing"

func TestAddU64Overflow(t *testing.T) {
	if _, err := addU64(math.MaxUint64, 1); err == nil {
		t.Fatal("expected overflow error")
	}
	sum, err := addU64(3, 4)
	if err != nil || sum != 7 {
		t.Fatalf("addU64(3,4) = %d, %v", sum, err)
	}
}

func TestSubU64Underflow(t *testing.T) {
	if _, err := subU64(1, 2); err == nil {
		t.Fatal("expected underflow error")
	}
	diff, err := subU64(10, 4)
	if err != nil || diff != 6 {
		t.Fatalf("subU64(10,4) = %d, %v", diff, err)
	}
}

func TestMulU64Overflow(t *testing.T) {
	if _, err := mulU64(math.MaxUint64, 2); err == nil {
		t.Fatal("expected overflow error")
	}
	prod, err := mulU64(6, 7)
	if err != nil || prod != 42 {
		t.Fatalf("mulU64(6,7) = %d, %v", prod, err)
	}
	if z, err := mulU64(0, math.MaxUint64); err != nil || z != 0 {
		t.Fatalf("mulU64(0, max) = %d, %v", z, err)
	}
}
