package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
type PoolStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenPool // keyed by mint
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{
		data: make(map[string]*domain.TokenPool),
	}
}

var _ storage.PoolStore = (*PoolStore)(nil)

// Get retrieves a pool by mint. Returns ErrNotFound if not exists.
func (s *PoolStore) Get(_ context.Context, mint string) (*domain.TokenPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[mint]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

// Insert adds a new pool. Returns ErrDuplicateKey if the mint exists.
func (s *PoolStore) Insert(_ context.Context, p *domain.TokenPool) error {
	if p == nil || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.Mint]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	if copy.CreatedAt == 0 {
		copy.CreatedAt = time.Now().UnixMilli()
	}
	s.data[p.Mint] = &copy
	return nil
}

// CreateIfAbsent inserts the pool if the mint is unseen and returns the
// stored record either way.
func (s *PoolStore) CreateIfAbsent(_ context.Context, p *domain.TokenPool) (*domain.TokenPool, error) {
	if p == nil || p.Mint == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data[p.Mint]; ok {
		copy := *existing
		return &copy, nil
	}

	stored := *p
	if stored.CreatedAt == 0 {
		stored.CreatedAt = time.Now().UnixMilli()
	}
	s.data[p.Mint] = &stored

	copy := stored
	return &copy, nil
}

// AddShielded atomically adds amount to total_shielded.
func (s *PoolStore) AddShielded(_ context.Context, mint string, amount decimal.Decimal) (*domain.TokenPool, error) {
	return s.add(mint, amount, true)
}

// AddUnshielded atomically adds amount to total_unshielded.
func (s *PoolStore) AddUnshielded(_ context.Context, mint string, amount decimal.Decimal) (*domain.TokenPool, error) {
	return s.add(mint, amount, false)
}

func (s *PoolStore) add(mint string, amount decimal.Decimal, shielded bool) (*domain.TokenPool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.data[mint]
	if !ok {
		return nil, storage.ErrNotFound
	}

	if shielded {
		p.TotalShielded = p.TotalShielded.Add(amount)
	} else {
		p.TotalUnshielded = p.TotalUnshielded.Add(amount)
	}

	copy := *p
	return &copy, nil
}
