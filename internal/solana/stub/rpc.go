package stub

import (
	"context"

	"shielded-pool/internal/solana"
)

// RPCClient implements solana.RPCClient for testing. Unknown
// signatures behave like the live client: not-found, not an error.
type RPCClient struct {
	Transactions map[string]*solana.Transaction
	Statuses     map[string]*solana.SignatureStatus

	// Err, when set, is returned by every call.
	Err error
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Statuses:     make(map[string]*solana.SignatureStatus),
	}
}

var _ solana.RPCClient = (*RPCClient)(nil)

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Transactions[signature], nil
}

// GetSignatureStatuses retrieves statuses from the stub store.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	statuses := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		statuses[i] = c.Statuses[sig]
	}
	return statuses, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.Transactions[tx.Signature] = tx
}

// AddStatus adds a signature status to the stub store.
func (c *RPCClient) AddStatus(signature string, status *solana.SignatureStatus) {
	c.Statuses[signature] = status
}
