package clickhouse

import (
	"context"
	"fmt"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/storage"
)

// ActivityStore implements storage.ActivityStore using ClickHouse.
// Rollup points are analytics data: append-only, no uniqueness constraint,
// never part of the accounting state.
type ActivityStore struct {
	conn *Conn
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(conn *Conn) *ActivityStore {
	return &ActivityStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ActivityStore = (*ActivityStore)(nil)

// Record appends rollup points.
func (s *ActivityStore) Record(ctx context.Context, points []*domain.ActivityPoint) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO shield_activity (mint, op, bucket_ms, amount, count)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if p == nil || p.Mint == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(p.Mint, string(p.Op), uint64(p.BucketMs), p.Amount, p.Count)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMintRange retrieves points for a mint within [start, end] (inclusive),
// ordered by bucket ASC.
func (s *ActivityStore) GetByMintRange(ctx context.Context, mint string, start, end int64) ([]*domain.ActivityPoint, error) {
	query := `
		SELECT mint, op, bucket_ms, sum(amount), toUInt32(sum(count))
		FROM shield_activity
		WHERE mint = ? AND bucket_ms >= ? AND bucket_ms <= ?
		GROUP BY mint, op, bucket_ms
		ORDER BY bucket_ms ASC, op ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("get activity by mint range: %w", err)
	}
	defer rows.Close()

	var result []*domain.ActivityPoint
	for rows.Next() {
		var (
			p        domain.ActivityPoint
			op       string
			bucketMs uint64
		)
		if err := rows.Scan(&p.Mint, &op, &bucketMs, &p.Amount, &p.Count); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		p.Op = domain.TxType(op)
		p.BucketMs = int64(bucketMs)
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}

	return result, nil
}
