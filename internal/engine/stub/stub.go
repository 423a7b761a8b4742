// Package stub provides trivial always-accept collaborators for tests
// and development setups where no chain access is available.
package stub

import (
	"context"

	"github.com/shopspring/decimal"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/engine"
)

// DepositVerifier accepts every deposit reference.
type DepositVerifier struct{}

// VerifyDeposit always succeeds.
func (DepositVerifier) VerifyDeposit(_ context.Context, _, _ string) error {
	return nil
}

// ProofValidator accepts every proof, including the empty one.
type ProofValidator struct{}

// ValidateProof always succeeds.
func (ProofValidator) ValidateProof(_ context.Context, _ string) error {
	return nil
}

// WithdrawSubmitter records submitted withdraws without doing anything.
type WithdrawSubmitter struct {
	// Submitted collects every call for test assertions.
	Submitted []Withdraw

	// Err, when set, is returned by every call.
	Err error
}

// Withdraw is one recorded payout request.
type Withdraw struct {
	Pool      *domain.TokenPool
	Recipient string
	Amount    decimal.Decimal
}

// SubmitWithdraw records the payout and returns the configured error.
func (w *WithdrawSubmitter) SubmitWithdraw(_ context.Context, p *domain.TokenPool, recipient string, amount decimal.Decimal) error {
	if w.Err != nil {
		return w.Err
	}
	w.Submitted = append(w.Submitted, Withdraw{Pool: p, Recipient: recipient, Amount: amount})
	return nil
}

var (
	_ engine.DepositVerifier   = DepositVerifier{}
	_ engine.ProofValidator    = ProofValidator{}
	_ engine.WithdrawSubmitter = (*WithdrawSubmitter)(nil)
)
