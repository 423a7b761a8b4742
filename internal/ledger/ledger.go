// Package ledger tracks per-(owner, mint) private balances.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/storage"
)

// Ledger errors.
var (
	// ErrInvalidAmount is returned when a delta is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrUnknownBalance is returned when a debit targets an (owner, mint)
	// pair with no balance record. Debits never create records.
	ErrUnknownBalance = errors.New("unknown balance")

	// ErrInsufficientBalance is returned when a debit would take the
	// balance below zero. The record is left unmodified.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Ledger is the balance ledger component. All mutations go through
// ApplyDelta; atomicity per (owner, mint) key is delegated to the store's
// conditional updates.
type Ledger struct {
	store storage.BalanceStore
}

// New creates a ledger over the given store.
func New(store storage.BalanceStore) *Ledger {
	return &Ledger{store: store}
}

// Get fetches a balance without side effects. Returns ErrUnknownBalance if
// the pair has never been credited.
func (l *Ledger) Get(ctx context.Context, owner, mint string) (*domain.PrivateBalance, error) {
	b, err := l.store.Get(ctx, owner, mint)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnknownBalance
		}
		return nil, err
	}
	return b, nil
}

// GetAll fetches all balances of an owner, ordered by mint.
func (l *Ledger) GetAll(ctx context.Context, owner string) ([]*domain.PrivateBalance, error) {
	return l.store.GetAllByOwner(ctx, owner)
}

// ApplyDelta is the single mutating entry point. A credit creates the
// record when absent; a debit against a missing record fails with
// ErrUnknownBalance and an overdraft fails with ErrInsufficientBalance,
// leaving the ledger untouched in both cases. Returns the post-mutation
// record.
func (l *Ledger) ApplyDelta(ctx context.Context, owner, mint string, amount decimal.Decimal, isCredit bool) (*domain.PrivateBalance, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	if isCredit {
		return l.store.Credit(ctx, owner, mint, amount)
	}

	b, err := l.store.Debit(ctx, owner, mint, amount)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, ErrUnknownBalance
		case errors.Is(err, storage.ErrInsufficientBalance):
			return nil, ErrInsufficientBalance
		}
		return nil, err
	}
	return b, nil
}
