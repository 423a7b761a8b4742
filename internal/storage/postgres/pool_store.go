package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

const poolColumns = `mint, symbol, decimals, pool_address, total_shielded, total_unshielded, created_at`

// Get retrieves a pool by mint. Returns ErrNotFound if not exists.
func (s *PoolStore) Get(ctx context.Context, mint string) (*domain.TokenPool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE mint = $1`

	var p domain.TokenPool
	err := s.pool.QueryRow(ctx, query, mint).Scan(
		&p.Mint,
		&p.Symbol,
		&p.Decimals,
		&p.PoolAddress,
		&p.TotalShielded,
		&p.TotalUnshielded,
		&p.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool: %w", err)
	}
	return &p, nil
}

// Insert adds a new pool. Returns ErrDuplicateKey if the mint exists.
func (s *PoolStore) Insert(ctx context.Context, p *domain.TokenPool) error {
	if p == nil || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pools (mint, symbol, decimals, pool_address, total_shielded, total_unshielded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	createdAt := p.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	_, err := s.pool.Exec(ctx, query,
		p.Mint,
		p.Symbol,
		p.Decimals,
		p.PoolAddress,
		p.TotalShielded,
		p.TotalUnshielded,
		createdAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pool: %w", err)
	}
	return nil
}

// CreateIfAbsent inserts the pool if the mint is unseen and returns the stored
// record either way. ON CONFLICT DO NOTHING makes the insert race-free; the
// losing caller falls through to the select and receives the winner's record.
func (s *PoolStore) CreateIfAbsent(ctx context.Context, p *domain.TokenPool) (*domain.TokenPool, error) {
	if p == nil || p.Mint == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pools (mint, symbol, decimals, pool_address, total_shielded, total_unshielded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (mint) DO NOTHING
		RETURNING ` + poolColumns

	createdAt := p.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	var stored domain.TokenPool
	err := s.pool.QueryRow(ctx, query,
		p.Mint,
		p.Symbol,
		p.Decimals,
		p.PoolAddress,
		p.TotalShielded,
		p.TotalUnshielded,
		createdAt,
	).Scan(
		&stored.Mint,
		&stored.Symbol,
		&stored.Decimals,
		&stored.PoolAddress,
		&stored.TotalShielded,
		&stored.TotalUnshielded,
		&stored.CreatedAt,
	)
	if err == nil {
		return &stored, nil
	}
	if !isNotFoundError(err) {
		return nil, fmt.Errorf("create pool if absent: %w", err)
	}

	// Conflict: another caller won the insert.
	return s.Get(ctx, p.Mint)
}

// AddShielded atomically adds amount to total_shielded.
func (s *PoolStore) AddShielded(ctx context.Context, mint string, amount decimal.Decimal) (*domain.TokenPool, error) {
	return s.add(ctx, mint, amount, "total_shielded")
}

// AddUnshielded atomically adds amount to total_unshielded.
func (s *PoolStore) AddUnshielded(ctx context.Context, mint string, amount decimal.Decimal) (*domain.TokenPool, error) {
	return s.add(ctx, mint, amount, "total_unshielded")
}

func (s *PoolStore) add(ctx context.Context, mint string, amount decimal.Decimal, column string) (*domain.TokenPool, error) {
	// column is one of two compile-time constants, never caller input.
	query := `
		UPDATE pools SET ` + column + ` = ` + column + ` + $2
		WHERE mint = $1
		RETURNING ` + poolColumns

	var p domain.TokenPool
	err := s.pool.QueryRow(ctx, query, mint, amount).Scan(
		&p.Mint,
		&p.Symbol,
		&p.Decimals,
		&p.PoolAddress,
		&p.TotalShielded,
		&p.TotalUnshielded,
		&p.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("add to %s: %w", column, err)
	}
	return &p, nil
}
