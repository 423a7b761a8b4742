package domain

import "github.com/shopspring/decimal"

// TxType is the kind of shielded-pool operation a transaction records.
type TxType string

// Transaction types. The set is closed; no other values are permitted.
const (
	TxTypeShield   TxType = "shield"
	TxTypeSend     TxType = "send"
	TxTypeUnshield TxType = "unshield"
)

// Valid reports whether t is one of the closed set of transaction types.
func (t TxType) Valid() bool {
	switch t {
	case TxTypeShield, TxTypeSend, TxTypeUnshield:
		return true
	}
	return false
}

// SymbolPlaceholder is recorded when no display symbol can be resolved.
const SymbolPlaceholder = "UNKNOWN"

// Transaction is one immutable entry of the shielded-pool transaction log.
// Corresponds to the transactions table in PostgreSQL. Entries are
// append-only: there is no update or delete path anywhere in the model.
type Transaction struct {
	Signature string          // PRIMARY KEY, external or synthetic signature
	Owner     string          // initiating owner address
	Type      TxType          // shield | send | unshield
	Mint      string          // token mint address
	Symbol    string          // best-effort display symbol
	Amount    decimal.Decimal // amount applied to the ledger
	Recipient *string         // present only for send
	Timestamp int64           // assigned by the log at record time (ms)
	CreatedAt int64           // record creation timestamp (ms)
}
