package memory

import (
	"context"
	"sort"
	"sync"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/storage"
)

// ActivityStore is an in-memory implementation of storage.ActivityStore.
type ActivityStore struct {
	mu   sync.RWMutex
	data []*domain.ActivityPoint
}

// NewActivityStore creates a new in-memory activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{}
}

var _ storage.ActivityStore = (*ActivityStore)(nil)

// Record appends rollup points. No uniqueness constraint.
func (s *ActivityStore) Record(_ context.Context, points []*domain.ActivityPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p == nil || p.Mint == "" {
			return storage.ErrInvalidInput
		}
		copy := *p
		s.data = append(s.data, &copy)
	}
	return nil
}

// GetByMintRange retrieves points for a mint within [start, end] (inclusive),
// ordered by bucket ASC.
func (s *ActivityStore) GetByMintRange(_ context.Context, mint string, start, end int64) ([]*domain.ActivityPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ActivityPoint
	for _, p := range s.data {
		if p.Mint == mint && p.BucketMs >= start && p.BucketMs <= end {
			copy := *p
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].BucketMs < result[j].BucketMs
	})

	return result, nil
}
