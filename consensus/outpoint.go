package consensus

import "fmt"

// OutputPointer identifies a transaction output: (transaction_id, output_index).
type OutputPointer struct {
	TransactionID Hash
	OutputIndex   uint32
}

// String renders the canonical "<hex-64>:<u32>" text form.
func (p OutputPointer) String() string {
	return fmt.Sprintf("%s:%d", p.TransactionID.String(), p.OutputIndex)
}

// PublicKeyHash is the 20-byte address form used on-chain.
type PublicKeyHash [20]byte

func (pkh PublicKeyHash) IsZero() bool { return pkh == PublicKeyHash{} }
