package domain

import "github.com/shopspring/decimal"

// PrivateBalance represents the shielded balance of one owner in one token.
// Corresponds to the balances table in PostgreSQL.
type PrivateBalance struct {
	Owner           string          // owner address, part of composite PK
	Mint            string          // token mint address, part of composite PK
	Balance         decimal.Decimal // current private balance, never negative
	CommitmentIndex int64           // reserved for commitment tracking, inert
	UpdatedAt       int64           // last mutation timestamp (ms)
	CreatedAt       int64           // record creation timestamp (ms)
}
