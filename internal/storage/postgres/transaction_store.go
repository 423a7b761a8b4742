package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
// Append-only: the unique constraint on signature is the only coordination.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const txColumns = `signature, owner, tx_type, mint, symbol, amount, recipient, timestamp, created_at`

// Insert adds a new transaction. Returns ErrDuplicateKey if the signature exists.
func (s *TransactionStore) Insert(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.Signature == "" || !tx.Type.Valid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO transactions (signature, owner, tx_type, mint, symbol, amount, recipient, timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	createdAt := tx.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	_, err := s.pool.Exec(ctx, query,
		tx.Signature,
		tx.Owner,
		string(tx.Type),
		tx.Mint,
		tx.Symbol,
		tx.Amount,
		tx.Recipient,
		tx.Timestamp,
		createdAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetBySignature retrieves a transaction. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetBySignature(ctx context.Context, signature string) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE signature = $1`

	tx, err := scanTransaction(s.pool.QueryRow(ctx, query, signature))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction by signature: %w", err)
	}
	return tx, nil
}

// ListByOwner retrieves up to limit transactions of an owner ordered by
// timestamp descending, optionally filtered by mint.
func (s *TransactionStore) ListByOwner(ctx context.Context, owner, mint string, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE owner = $1 AND ($2 = '' OR mint = $2)
		ORDER BY timestamp DESC, signature DESC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, owner, mint, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions by owner: %w", err)
	}
	defer rows.Close()

	var result []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}

	return result, nil
}

// SumByMint returns the per-type amount sums of all transactions for a mint.
func (s *TransactionStore) SumByMint(ctx context.Context, mint string) (map[domain.TxType]decimal.Decimal, error) {
	if mint == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT tx_type, COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE mint = $1
		GROUP BY tx_type
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("sum transactions by mint: %w", err)
	}
	defer rows.Close()

	sums := make(map[domain.TxType]decimal.Decimal)
	for rows.Next() {
		var txType string
		var total decimal.Decimal
		if err := rows.Scan(&txType, &total); err != nil {
			return nil, fmt.Errorf("scan transaction sum row: %w", err)
		}
		sums[domain.TxType(txType)] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction sum rows: %w", err)
	}

	return sums, nil
}

// scanTransaction scans one row into a Transaction.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	var txType string
	err := row.Scan(
		&tx.Signature,
		&tx.Owner,
		&txType,
		&tx.Mint,
		&tx.Symbol,
		&tx.Amount,
		&tx.Recipient,
		&tx.Timestamp,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.Type = domain.TxType(txType)
	return &tx, nil
}
