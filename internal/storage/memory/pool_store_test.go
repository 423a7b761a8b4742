package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/storage"
)

func testPool(mint string) *domain.TokenPool {
	return &domain.TokenPool{
		Mint:        mint,
		Decimals:    9,
		PoolAddress: "pool-" + mint,
	}
}

func TestPoolStore_InsertAndGet(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testPool("mint1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	p, err := store.Get(ctx, "mint1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.PoolAddress != "pool-mint1" {
		t.Errorf("PoolAddress mismatch: got %s", p.PoolAddress)
	}
	if p.CreatedAt == 0 {
		t.Error("CreatedAt not assigned")
	}
}

func TestPoolStore_InsertDuplicate(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testPool("mint1")); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, testPool("mint1"))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestPoolStore_GetNotFound(t *testing.T) {
	store := NewPoolStore()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPoolStore_CreateIfAbsentReturnsExisting(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	first, err := store.CreateIfAbsent(ctx, testPool("mint1"))
	if err != nil {
		t.Fatalf("CreateIfAbsent failed: %v", err)
	}

	other := testPool("mint1")
	other.PoolAddress = "pool-other"
	second, err := store.CreateIfAbsent(ctx, other)
	if err != nil {
		t.Fatalf("CreateIfAbsent failed: %v", err)
	}

	if second.PoolAddress != first.PoolAddress {
		t.Errorf("Loser did not receive the winner's record: got %s, want %s",
			second.PoolAddress, first.PoolAddress)
	}
}

func TestPoolStore_CreateIfAbsentRace(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*domain.TokenPool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := store.CreateIfAbsent(ctx, testPool("racy-mint"))
			if err != nil {
				t.Errorf("CreateIfAbsent failed: %v", err)
				return
			}
			results[i] = p
		}(i)
	}
	wg.Wait()

	// All callers must see the same record.
	for i := 1; i < callers; i++ {
		if results[i] == nil || results[0] == nil {
			t.Fatal("Missing result")
		}
		if results[i].CreatedAt != results[0].CreatedAt {
			t.Errorf("Caller %d saw a different record", i)
		}
	}
}

func TestPoolStore_AddShielded(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testPool("mint1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	p, err := store.AddShielded(ctx, "mint1", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("AddShielded failed: %v", err)
	}
	if !p.TotalShielded.Equal(decimal.NewFromInt(100)) {
		t.Errorf("TotalShielded mismatch: got %s, want 100", p.TotalShielded)
	}

	p, err = store.AddUnshielded(ctx, "mint1", decimal.NewFromInt(30))
	if err != nil {
		t.Fatalf("AddUnshielded failed: %v", err)
	}
	if !p.TotalUnshielded.Equal(decimal.NewFromInt(30)) {
		t.Errorf("TotalUnshielded mismatch: got %s, want 30", p.TotalUnshielded)
	}
	if !p.TotalShielded.Equal(decimal.NewFromInt(100)) {
		t.Errorf("TotalShielded changed by AddUnshielded: got %s", p.TotalShielded)
	}
}

func TestPoolStore_AddShieldedUnknownMint(t *testing.T) {
	store := NewPoolStore()

	_, err := store.AddShielded(context.Background(), "missing", decimal.NewFromInt(1))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
