package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Transaction // keyed by signature
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data: make(map[string]*domain.Transaction),
	}
}

var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a new transaction. Returns ErrDuplicateKey if the signature exists.
func (s *TransactionStore) Insert(_ context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.Signature == "" || !tx.Type.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tx.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *tx
	if copy.CreatedAt == 0 {
		copy.CreatedAt = time.Now().UnixMilli()
	}
	s.data[tx.Signature] = &copy
	return nil
}

// GetBySignature retrieves a transaction. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetBySignature(_ context.Context, signature string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.data[signature]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *tx
	return &copy, nil
}

// ListByOwner retrieves up to limit transactions of an owner ordered by
// timestamp descending, optionally filtered by mint.
func (s *TransactionStore) ListByOwner(_ context.Context, owner, mint string, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range s.data {
		if tx.Owner != owner {
			continue
		}
		if mint != "" && tx.Mint != mint {
			continue
		}
		copy := *tx
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp > result[j].Timestamp
		}
		return result[i].Signature > result[j].Signature
	})

	if len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// SumByMint returns the per-type amount sums of all transactions for a mint.
func (s *TransactionStore) SumByMint(_ context.Context, mint string) (map[domain.TxType]decimal.Decimal, error) {
	if mint == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[domain.TxType]decimal.Decimal)
	for _, tx := range s.data {
		if tx.Mint != mint {
			continue
		}
		sums[tx.Type] = sums[tx.Type].Add(tx.Amount)
	}
	return sums, nil
}
