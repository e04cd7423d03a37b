package cryptoutil

import "fmt"

func errInvalidHRP(got string) error {
	return fmt.Errorf("cryptoutil: address has unexpected human-readable part %q, want %q", got, bech32HRP)
}

func errInvalidPkhLength(n int) error {
	return fmt.Errorf("cryptoutil: decoded address payload is %d bytes, want 20", n)
}

func errHashToCurveExhausted() error {
	return fmt.Errorf("cryptoutil: hash-to-curve did not converge")
}
