package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface used for deposit checks.
type RPCClient interface {
	// GetTransaction retrieves a confirmed transaction by signature.
	// Returns (nil, nil) when the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSignatureStatuses retrieves confirmation statuses for signatures.
	// The result slice matches the input order; a nil entry means unknown.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// References reports whether the transaction touches the given account.
func (t *Transaction) References(account string) bool {
	if t.Message == nil {
		return false
	}
	for _, key := range t.Message.AccountKeys {
		if key == account {
			return true
		}
	}
	return false
}
