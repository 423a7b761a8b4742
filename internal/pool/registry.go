// Package pool tracks per-mint shielded pool aggregates.
package pool

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/observability"
	"shielded-pool/internal/storage"
)

// Registry errors.
var (
	// ErrDuplicateMint is returned by Create when the mint already has a pool.
	ErrDuplicateMint = errors.New("pool already exists for mint")

	// ErrUnknownMint is returned when a total increase targets a mint with
	// no pool record. Callers must ensure the pool exists first.
	ErrUnknownMint = errors.New("unknown mint")

	// ErrInvalidAmount is returned when a total increase is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// AddressDeriver maps a mint to its deterministic on-chain pool address.
type AddressDeriver func(mint string) (string, error)

// knownSymbols resolves display symbols for well-known mints at pool
// creation. Unknown mints get no symbol; the transaction log falls back to
// a placeholder.
var knownSymbols = map[string]string{
	"So11111111111111111111111111111111111111112":  "SOL",
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": "USDC",
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": "USDT",
}

// Registry is the pool registry component. One record per token mint,
// created lazily on first reference, never deleted.
type Registry struct {
	store  storage.PoolStore
	derive AddressDeriver
}

// NewRegistry creates a pool registry over the given store.
func NewRegistry(store storage.PoolStore, derive AddressDeriver) *Registry {
	return &Registry{store: store, derive: derive}
}

// Exists reports whether a pool record exists for mint.
func (r *Registry) Exists(ctx context.Context, mint string) (bool, error) {
	_, err := r.store.Get(ctx, mint)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Get fetches a pool without side effects. Returns ErrUnknownMint if absent.
func (r *Registry) Get(ctx context.Context, mint string) (*domain.TokenPool, error) {
	p, err := r.store.Get(ctx, mint)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnknownMint
		}
		return nil, err
	}
	return p, nil
}

// Create registers a pool for a previously unseen mint. Returns
// ErrDuplicateMint when the mint already has a record.
func (r *Registry) Create(ctx context.Context, mint string, decimals int, poolAddress string) (*domain.TokenPool, error) {
	if mint == "" || decimals < 0 {
		return nil, storage.ErrInvalidInput
	}

	p := newPool(mint, decimals, poolAddress)
	if err := r.store.Insert(ctx, p); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrDuplicateMint
		}
		return nil, fmt.Errorf("create pool: %w", err)
	}
	observability.RecordPoolCreated()

	return r.store.Get(ctx, mint)
}

// GetOrCreate returns the pool for mint, deriving the pool address and
// creating the record when the mint is unseen. Concurrent callers racing on
// the same mint all receive the winner's record; the loser never errors.
func (r *Registry) GetOrCreate(ctx context.Context, mint string, decimals int) (*domain.TokenPool, error) {
	if mint == "" {
		return nil, storage.ErrInvalidInput
	}
	if decimals < 0 {
		decimals = domain.DefaultDecimals
	}

	// Fast path: most calls hit an existing pool.
	if p, err := r.store.Get(ctx, mint); err == nil {
		return p, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	addr, err := r.derive(mint)
	if err != nil {
		return nil, fmt.Errorf("derive pool address for %s: %w", mint, err)
	}

	p, err := r.store.CreateIfAbsent(ctx, newPool(mint, decimals, addr))
	if err != nil {
		return nil, fmt.Errorf("create pool for %s: %w", mint, err)
	}
	observability.RecordPoolCreated()
	return p, nil
}

// IncreaseShielded atomically adds amount to the pool's shielded total.
func (r *Registry) IncreaseShielded(ctx context.Context, mint string, amount decimal.Decimal) (*domain.TokenPool, error) {
	return r.increase(ctx, mint, amount, true)
}

// IncreaseUnshielded atomically adds amount to the pool's unshielded total.
func (r *Registry) IncreaseUnshielded(ctx context.Context, mint string, amount decimal.Decimal) (*domain.TokenPool, error) {
	return r.increase(ctx, mint, amount, false)
}

func (r *Registry) increase(ctx context.Context, mint string, amount decimal.Decimal, shielded bool) (*domain.TokenPool, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	var (
		p   *domain.TokenPool
		err error
	)
	if shielded {
		p, err = r.store.AddShielded(ctx, mint, amount)
	} else {
		p, err = r.store.AddUnshielded(ctx, mint, amount)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnknownMint
		}
		return nil, err
	}
	return p, nil
}

// Symbol resolves the display symbol of a pool, falling back to the
// placeholder when the pool is missing or has no symbol.
func (r *Registry) Symbol(ctx context.Context, mint string) string {
	p, err := r.store.Get(ctx, mint)
	if err != nil || p.Symbol == nil || *p.Symbol == "" {
		return domain.SymbolPlaceholder
	}
	return *p.Symbol
}

func newPool(mint string, decimals int, poolAddress string) *domain.TokenPool {
	p := &domain.TokenPool{
		Mint:        mint,
		Decimals:    decimals,
		PoolAddress: poolAddress,
	}
	if sym, ok := knownSymbols[mint]; ok {
		p.Symbol = &sym
	}
	return p
}
