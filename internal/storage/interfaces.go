package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"shielded-pool/internal/domain"
)

// PoolStore provides access to pools storage.
type PoolStore interface {
	// Get retrieves a pool by mint. Returns ErrNotFound if not exists.
	Get(ctx context.Context, mint string) (*domain.TokenPool, error)

	// Insert adds a new pool. Returns ErrDuplicateKey if the mint exists.
	Insert(ctx context.Context, p *domain.TokenPool) error

	// CreateIfAbsent inserts the pool if the mint is unseen and returns the
	// stored record either way. Concurrent callers for the same mint all
	// receive the same winning record; none of them errors.
	CreateIfAbsent(ctx context.Context, p *domain.TokenPool) (*domain.TokenPool, error)

	// AddShielded atomically adds amount to total_shielded.
	// Returns ErrNotFound if the mint is unknown.
	AddShielded(ctx context.Context, mint string, amount decimal.Decimal) (*domain.TokenPool, error)

	// AddUnshielded atomically adds amount to total_unshielded.
	// Returns ErrNotFound if the mint is unknown.
	AddUnshielded(ctx context.Context, mint string, amount decimal.Decimal) (*domain.TokenPool, error)
}

// BalanceStore provides access to balances storage.
//
// Credit and Debit are the only mutation paths and both must be applied as a
// single atomic conditional update per (owner, mint) key. Two concurrent
// debits of the same balance must never both observe the pre-mutation value.
type BalanceStore interface {
	// Get retrieves a balance by (owner, mint). Returns ErrNotFound if not exists.
	Get(ctx context.Context, owner, mint string) (*domain.PrivateBalance, error)

	// GetAllByOwner retrieves all balances of an owner, ordered by mint.
	GetAllByOwner(ctx context.Context, owner string) ([]*domain.PrivateBalance, error)

	// Credit adds amount to the balance, creating the record (with
	// commitment index 0) when the key is unseen. Returns the post-mutation
	// record.
	Credit(ctx context.Context, owner, mint string, amount decimal.Decimal) (*domain.PrivateBalance, error)

	// Debit subtracts amount from the balance. Returns ErrNotFound when no
	// record exists and ErrInsufficientBalance when the stored balance is
	// smaller than amount; in both cases nothing is written. Returns the
	// post-mutation record on success.
	Debit(ctx context.Context, owner, mint string, amount decimal.Decimal) (*domain.PrivateBalance, error)
}

// TransactionStore provides access to transactions storage. Append-only.
type TransactionStore interface {
	// Insert adds a new transaction. Returns ErrDuplicateKey if the
	// signature exists.
	Insert(ctx context.Context, tx *domain.Transaction) error

	// GetBySignature retrieves a transaction. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.Transaction, error)

	// ListByOwner retrieves up to limit transactions of an owner ordered by
	// timestamp descending, optionally filtered by mint (empty = all mints).
	ListByOwner(ctx context.Context, owner, mint string, limit int) ([]*domain.Transaction, error)

	// SumByMint returns the per-type amount sums of all transactions
	// recorded for a mint. Types with no transactions are absent from the
	// result.
	SumByMint(ctx context.Context, mint string) (map[domain.TxType]decimal.Decimal, error)
}

// ActivityStore provides access to activity rollup storage (analytics).
type ActivityStore interface {
	// Record appends rollup points. Analytics data is best-effort and has
	// no uniqueness constraint.
	Record(ctx context.Context, points []*domain.ActivityPoint) error

	// GetByMintRange retrieves points for a mint within [start, end]
	// (inclusive, ms), ordered by bucket ASC.
	GetByMintRange(ctx context.Context, mint string, start, end int64) ([]*domain.ActivityPoint, error)
}
