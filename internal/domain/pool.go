package domain

import "github.com/shopspring/decimal"

// DefaultDecimals is used when a pool is created without an explicit
// decimal precision (SPL token convention).
const DefaultDecimals = 9

// TokenPool represents the per-mint shielded pool aggregate.
// Corresponds to the pools table in PostgreSQL.
type TokenPool struct {
	Mint            string          // PRIMARY KEY, token mint address
	Symbol          *string         // display symbol (nullable)
	Decimals        int             // token decimal precision
	PoolAddress     string          // derived on-chain custody address
	TotalShielded   decimal.Decimal // cumulative shielded volume, never decreased
	TotalUnshielded decimal.Decimal // cumulative unshielded volume, never decreased
	CreatedAt       int64           // record creation timestamp (ms)
}
