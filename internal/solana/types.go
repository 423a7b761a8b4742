package solana

// Commitment levels reported by getSignatureStatuses.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// SignatureStatus is a single entry from getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int64 // nil once the signature is rooted
	ConfirmationStatus string
	Err                interface{}
}

// Confirmed reports whether the status has reached at least
// confirmed commitment.
func (s *SignatureStatus) Confirmed() bool {
	return s.ConfirmationStatus == CommitmentConfirmed ||
		s.ConfirmationStatus == CommitmentFinalized
}
