package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/storage"
)

// BalanceStore is an in-memory implementation of storage.BalanceStore.
// The mutex serializes all read-modify-write cycles, so concurrent debits
// of the same key observe each other's mutations.
type BalanceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PrivateBalance // keyed by owner|mint
}

// NewBalanceStore creates a new in-memory balance store.
func NewBalanceStore() *BalanceStore {
	return &BalanceStore{
		data: make(map[string]*domain.PrivateBalance),
	}
}

var _ storage.BalanceStore = (*BalanceStore)(nil)

// balanceKey generates a unique key for an (owner, mint) pair.
func balanceKey(owner, mint string) string {
	return fmt.Sprintf("%s|%s", owner, mint)
}

// Get retrieves a balance by (owner, mint). Returns ErrNotFound if not exists.
func (s *BalanceStore) Get(_ context.Context, owner, mint string) (*domain.PrivateBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.data[balanceKey(owner, mint)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *b
	return &copy, nil
}

// GetAllByOwner retrieves all balances of an owner, ordered by mint.
func (s *BalanceStore) GetAllByOwner(_ context.Context, owner string) ([]*domain.PrivateBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PrivateBalance
	for _, b := range s.data {
		if b.Owner == owner {
			copy := *b
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Mint < result[j].Mint
	})

	return result, nil
}

// Credit adds amount to the balance, creating the record when the key is
// unseen. Returns the post-mutation record.
func (s *BalanceStore) Credit(_ context.Context, owner, mint string, amount decimal.Decimal) (*domain.PrivateBalance, error) {
	if owner == "" || mint == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	key := balanceKey(owner, mint)

	b, ok := s.data[key]
	if !ok {
		b = &domain.PrivateBalance{
			Owner:     owner,
			Mint:      mint,
			Balance:   amount,
			UpdatedAt: now,
			CreatedAt: now,
		}
		s.data[key] = b
	} else {
		b.Balance = b.Balance.Add(amount)
		b.UpdatedAt = now
	}

	copy := *b
	return &copy, nil
}

// Debit subtracts amount from the balance under the same lock that guards
// Credit, leaving the record untouched on rejection.
func (s *BalanceStore) Debit(_ context.Context, owner, mint string, amount decimal.Decimal) (*domain.PrivateBalance, error) {
	if owner == "" || mint == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.data[balanceKey(owner, mint)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if b.Balance.LessThan(amount) {
		return nil, storage.ErrInsufficientBalance
	}

	b.Balance = b.Balance.Sub(amount)
	b.UpdatedAt = time.Now().UnixMilli()

	copy := *b
	return &copy, nil
}
