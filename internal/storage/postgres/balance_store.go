package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/storage"
)

// BalanceStore implements storage.BalanceStore using PostgreSQL.
//
// Both mutation paths are single conditional statements, never a read
// followed by an unconditional write, so concurrent callers on the same
// (owner, mint) key are serialized by row-level locking.
type BalanceStore struct {
	pool *Pool
}

// NewBalanceStore creates a new BalanceStore.
func NewBalanceStore(pool *Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BalanceStore = (*BalanceStore)(nil)

const balanceColumns = `owner, mint, balance, commitment_index, updated_at, created_at`

// Get retrieves a balance by (owner, mint). Returns ErrNotFound if not exists.
func (s *BalanceStore) Get(ctx context.Context, owner, mint string) (*domain.PrivateBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE owner = $1 AND mint = $2`

	b, err := scanBalance(s.pool.QueryRow(ctx, query, owner, mint))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// GetAllByOwner retrieves all balances of an owner, ordered by mint.
func (s *BalanceStore) GetAllByOwner(ctx context.Context, owner string) ([]*domain.PrivateBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE owner = $1 ORDER BY mint ASC`

	rows, err := s.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("get balances by owner: %w", err)
	}
	defer rows.Close()

	var result []*domain.PrivateBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance row: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance rows: %w", err)
	}

	return result, nil
}

// Credit adds amount to the balance, creating the record when the key is
// unseen. The upsert is a single atomic statement.
func (s *BalanceStore) Credit(ctx context.Context, owner, mint string, amount decimal.Decimal) (*domain.PrivateBalance, error) {
	if owner == "" || mint == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO balances (owner, mint, balance, commitment_index, updated_at, created_at)
		VALUES ($1, $2, $3, 0, $4, $4)
		ON CONFLICT (owner, mint) DO UPDATE
		SET balance = balances.balance + EXCLUDED.balance,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + balanceColumns

	now := time.Now().UnixMilli()
	b, err := scanBalance(s.pool.QueryRow(ctx, query, owner, mint, amount, now))
	if err != nil {
		return nil, fmt.Errorf("credit balance: %w", err)
	}
	return b, nil
}

// Debit subtracts amount from the balance. The WHERE clause carries the
// overdraft guard, so a stale read can never debit past zero.
func (s *BalanceStore) Debit(ctx context.Context, owner, mint string, amount decimal.Decimal) (*domain.PrivateBalance, error) {
	if owner == "" || mint == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		UPDATE balances
		SET balance = balance - $3, updated_at = $4
		WHERE owner = $1 AND mint = $2 AND balance >= $3
		RETURNING ` + balanceColumns

	now := time.Now().UnixMilli()
	b, err := scanBalance(s.pool.QueryRow(ctx, query, owner, mint, amount, now))
	if err == nil {
		return b, nil
	}
	if !isNotFoundError(err) {
		return nil, fmt.Errorf("debit balance: %w", err)
	}

	// No row matched: distinguish a missing record from an overdraft.
	var exists bool
	checkQuery := `SELECT EXISTS (SELECT 1 FROM balances WHERE owner = $1 AND mint = $2)`
	if err := s.pool.QueryRow(ctx, checkQuery, owner, mint).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check balance exists: %w", err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}
	return nil, storage.ErrInsufficientBalance
}

// scanBalance scans one row into a PrivateBalance.
func scanBalance(row pgx.Row) (*domain.PrivateBalance, error) {
	var b domain.PrivateBalance
	err := row.Scan(
		&b.Owner,
		&b.Mint,
		&b.Balance,
		&b.CommitmentIndex,
		&b.UpdatedAt,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
