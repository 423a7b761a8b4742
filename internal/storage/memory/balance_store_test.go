package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"shielded-pool/internal/storage"
)

func TestBalanceStore_CreditCreatesRecord(t *testing.T) {
	store := NewBalanceStore()
	ctx := context.Background()

	b, err := store.Credit(ctx, "ownerA", "mint1", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	if !b.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Balance mismatch: got %s, want 100", b.Balance)
	}
	if b.CommitmentIndex != 0 {
		t.Errorf("CommitmentIndex should start at 0, got %d", b.CommitmentIndex)
	}
}

func TestBalanceStore_CreditAccumulates(t *testing.T) {
	store := NewBalanceStore()
	ctx := context.Background()

	if _, err := store.Credit(ctx, "ownerA", "mint1", decimal.NewFromInt(100)); err != nil {
		t.Fatalf("First credit failed: %v", err)
	}
	b, err := store.Credit(ctx, "ownerA", "mint1", decimal.NewFromFloat(0.5))
	if err != nil {
		t.Fatalf("Second credit failed: %v", err)
	}

	if !b.Balance.Equal(decimal.NewFromFloat(100.5)) {
		t.Errorf("Balance mismatch: got %s, want 100.5", b.Balance)
	}
}

func TestBalanceStore_DebitUnknownBalance(t *testing.T) {
	store := NewBalanceStore()
	ctx := context.Background()

	_, err := store.Debit(ctx, "nobody", "mint1", decimal.NewFromInt(1))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	// A failed debit must not create a record.
	if _, err := store.Get(ctx, "nobody", "mint1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Failed debit created a record: %v", err)
	}
}

func TestBalanceStore_DebitInsufficient(t *testing.T) {
	store := NewBalanceStore()
	ctx := context.Background()

	if _, err := store.Credit(ctx, "ownerA", "mint1", decimal.NewFromInt(50)); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	_, err := store.Debit(ctx, "ownerA", "mint1", decimal.NewFromInt(51))
	if !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Errorf("Expected ErrInsufficientBalance, got %v", err)
	}

	// Balance must be unchanged after the rejected debit.
	b, err := store.Get(ctx, "ownerA", "mint1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !b.Balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Balance changed by rejected debit: got %s, want 50", b.Balance)
	}
}

func TestBalanceStore_DebitExactBalance(t *testing.T) {
	store := NewBalanceStore()
	ctx := context.Background()

	if _, err := store.Credit(ctx, "ownerA", "mint1", decimal.NewFromInt(50)); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	b, err := store.Debit(ctx, "ownerA", "mint1", decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("Debit failed: %v", err)
	}
	if !b.Balance.IsZero() {
		t.Errorf("Balance should be zero, got %s", b.Balance)
	}
}

func TestBalanceStore_ConcurrentDebits(t *testing.T) {
	store := NewBalanceStore()
	ctx := context.Background()

	if _, err := store.Credit(ctx, "ownerA", "mint1", decimal.NewFromInt(100)); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	// Two concurrent full-balance debits: exactly one must succeed.
	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Debit(ctx, "ownerA", "mint1", decimal.NewFromInt(100))
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	var successes, insufficient int
	for err := range errCh {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, storage.ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	if successes != 1 || insufficient != 1 {
		t.Errorf("Expected exactly one success and one ErrInsufficientBalance, got %d/%d", successes, insufficient)
	}

	b, err := store.Get(ctx, "ownerA", "mint1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !b.Balance.IsZero() {
		t.Errorf("Balance should be zero after the winning debit, got %s", b.Balance)
	}
}

func TestBalanceStore_GetAllByOwnerOrdered(t *testing.T) {
	store := NewBalanceStore()
	ctx := context.Background()

	mints := []string{"mintC", "mintA", "mintB"}
	for _, m := range mints {
		if _, err := store.Credit(ctx, "ownerA", m, decimal.NewFromInt(1)); err != nil {
			t.Fatalf("Credit failed: %v", err)
		}
	}
	if _, err := store.Credit(ctx, "ownerB", "mintA", decimal.NewFromInt(1)); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	result, err := store.GetAllByOwner(ctx, "ownerA")
	if err != nil {
		t.Fatalf("GetAllByOwner failed: %v", err)
	}

	if len(result) != 3 {
		t.Fatalf("Expected 3 balances, got %d", len(result))
	}
	for i, want := range []string{"mintA", "mintB", "mintC"} {
		if result[i].Mint != want {
			t.Errorf("Order mismatch at %d: got %s, want %s", i, result[i].Mint, want)
		}
	}
}
