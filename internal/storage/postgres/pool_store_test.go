package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/storage"
)

func createTestPool(mint string) *domain.TokenPool {
	symbol := "SOL"
	return &domain.TokenPool{
		Mint:        mint,
		Symbol:      &symbol,
		Decimals:    9,
		PoolAddress: "pool-addr-" + mint,
	}
}

func TestPoolStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPoolStore(pool)

	err := store.Insert(ctx, createTestPool("mint-1"))
	require.NoError(t, err)

	retrieved, err := store.Get(ctx, "mint-1")
	require.NoError(t, err)

	assert.Equal(t, "mint-1", retrieved.Mint)
	require.NotNil(t, retrieved.Symbol)
	assert.Equal(t, "SOL", *retrieved.Symbol)
	assert.Equal(t, 9, retrieved.Decimals)
	assert.Equal(t, "pool-addr-mint-1", retrieved.PoolAddress)
	assert.True(t, retrieved.TotalShielded.IsZero())
	assert.True(t, retrieved.TotalUnshielded.IsZero())
	assert.NotZero(t, retrieved.CreatedAt)
}

func TestPoolStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPoolStore(pool)

	require.NoError(t, store.Insert(ctx, createTestPool("mint-1")))

	err := store.Insert(ctx, createTestPool("mint-1"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPoolStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPoolStore(pool)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPoolStore_CreateIfAbsent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPoolStore(pool)

	// First call creates.
	first, err := store.CreateIfAbsent(ctx, createTestPool("mint-1"))
	require.NoError(t, err)
	assert.Equal(t, "pool-addr-mint-1", first.PoolAddress)

	// Second call returns the existing record, not the new candidate.
	candidate := createTestPool("mint-1")
	candidate.PoolAddress = "pool-addr-other"
	second, err := store.CreateIfAbsent(ctx, candidate)
	require.NoError(t, err)
	assert.Equal(t, first.PoolAddress, second.PoolAddress)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestPoolStore_AddShieldedAndUnshielded(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPoolStore(pool)

	require.NoError(t, store.Insert(ctx, createTestPool("mint-1")))

	p, err := store.AddShielded(ctx, "mint-1", decimal.RequireFromString("100.5"))
	require.NoError(t, err)
	assert.True(t, p.TotalShielded.Equal(decimal.RequireFromString("100.5")),
		"total_shielded = %s", p.TotalShielded)

	p, err = store.AddShielded(ctx, "mint-1", decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, p.TotalShielded.Equal(decimal.RequireFromString("150.5")),
		"total_shielded = %s", p.TotalShielded)

	p, err = store.AddUnshielded(ctx, "mint-1", decimal.NewFromInt(30))
	require.NoError(t, err)
	assert.True(t, p.TotalUnshielded.Equal(decimal.NewFromInt(30)),
		"total_unshielded = %s", p.TotalUnshielded)
	assert.True(t, p.TotalShielded.Equal(decimal.RequireFromString("150.5")))
}

func TestPoolStore_AddShieldedUnknownMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPoolStore(pool)

	_, err := store.AddShielded(context.Background(), "missing", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
