// Package txlog maintains the append-only shielded transaction log.
package txlog

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/storage"
)

// List limits. A non-positive requested limit falls back to DefaultLimit;
// anything above MaxLimit is capped.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Log errors.
var (
	// ErrDuplicateSignature is returned when a signature has already been
	// recorded. The log is append-only; the existing row is never touched.
	ErrDuplicateSignature = errors.New("duplicate transaction signature")

	// ErrInvalidType is returned for a transaction type outside the closed
	// shield/send/unshield set.
	ErrInvalidType = errors.New("invalid transaction type")
)

// Log is the transaction log component. Entries are immutable once written
// and keyed by a globally unique signature.
type Log struct {
	store storage.TransactionStore
}

// New creates a transaction log over the given store.
func New(store storage.TransactionStore) *Log {
	return &Log{store: store}
}

// Record appends one accepted operation to the log. The timestamp is
// assigned here, not by the caller. Returns ErrDuplicateSignature when the
// signature is already present.
func (l *Log) Record(ctx context.Context, owner string, typ domain.TxType, mint, symbol string, amount decimal.Decimal, signature string, recipient *string) (*domain.Transaction, error) {
	if !typ.Valid() {
		return nil, ErrInvalidType
	}
	if owner == "" || mint == "" || signature == "" || amount.Sign() <= 0 {
		return nil, storage.ErrInvalidInput
	}
	if symbol == "" {
		symbol = domain.SymbolPlaceholder
	}

	now := time.Now().UnixMilli()
	tx := &domain.Transaction{
		Signature: signature,
		Owner:     owner,
		Type:      typ,
		Mint:      mint,
		Symbol:    symbol,
		Amount:    amount,
		Recipient: recipient,
		Timestamp: now,
		CreatedAt: now,
	}

	if err := l.store.Insert(ctx, tx); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrDuplicateSignature
		}
		return nil, err
	}
	return tx, nil
}

// List returns up to limit transactions of an owner, newest first,
// optionally filtered by mint (empty = all mints).
func (l *Log) List(ctx context.Context, owner, mint string, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return l.store.ListByOwner(ctx, owner, mint, limit)
}

// FindBySignature fetches one transaction. Returns storage.ErrNotFound when
// the signature has never been recorded.
func (l *Log) FindBySignature(ctx context.Context, signature string) (*domain.Transaction, error) {
	return l.store.GetBySignature(ctx, signature)
}
