package solana

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Deposit verification errors.
var (
	// ErrDepositNotFound is returned when the deposit transaction is not
	// visible on chain within the wait window.
	ErrDepositNotFound = errors.New("deposit transaction not found")

	// ErrDepositFailed is returned when the deposit transaction executed
	// with an error.
	ErrDepositFailed = errors.New("deposit transaction failed")

	// ErrDepositMismatch is returned when the deposit transaction does
	// not reference the expected pool address.
	ErrDepositMismatch = errors.New("deposit does not reference pool address")
)

// Default verifier timings.
const (
	DefaultWaitTimeout  = 60 * time.Second
	DefaultPollInterval = 2 * time.Second
)

// Verifier checks that a claimed deposit landed on chain before the
// corresponding balance is credited. It waits for confirmation via
// WebSocket when a WSClient is available and falls back to RPC polling
// otherwise.
type Verifier struct {
	rpc          RPCClient
	ws           WSClient
	waitTimeout  time.Duration
	pollInterval time.Duration
}

// VerifierOption configures Verifier.
type VerifierOption func(*Verifier)

// WithWSClient enables WebSocket confirmation wait.
func WithWSClient(ws WSClient) VerifierOption {
	return func(v *Verifier) {
		v.ws = ws
	}
}

// WithWaitTimeout bounds the total confirmation wait.
func WithWaitTimeout(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.waitTimeout = d
	}
}

// WithPollInterval sets the RPC polling interval.
func WithPollInterval(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.pollInterval = d
	}
}

// NewVerifier creates a deposit verifier backed by the given RPC client.
func NewVerifier(rpc RPCClient, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		rpc:          rpc,
		waitTimeout:  DefaultWaitTimeout,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyDeposit confirms that the transaction identified by signature
// executed successfully and touched poolAddress. An empty poolAddress
// skips the account check.
func (v *Verifier) VerifyDeposit(ctx context.Context, signature, poolAddress string) error {
	ctx, cancel := context.WithTimeout(ctx, v.waitTimeout)
	defer cancel()

	if v.ws != nil {
		if done, err := v.waitWS(ctx, signature); done {
			if err != nil {
				return err
			}
			// Confirmed - fall through to fetch and inspect the
			// transaction itself.
		}
	}

	tx, err := v.waitRPC(ctx, signature)
	if err != nil {
		return err
	}

	if tx.Meta != nil && tx.Meta.Err != nil {
		return fmt.Errorf("%w: %v", ErrDepositFailed, tx.Meta.Err)
	}

	if poolAddress != "" && !tx.References(poolAddress) {
		return ErrDepositMismatch
	}

	return nil
}

// waitWS waits for the one-shot signature notification. It returns
// done=false when the subscription could not be established or the
// socket dropped, in which case the caller polls RPC instead.
func (v *Verifier) waitWS(ctx context.Context, signature string) (done bool, err error) {
	ch, subErr := v.ws.SubscribeSignature(ctx, signature)
	if subErr != nil {
		return false, nil
	}

	select {
	case notif, ok := <-ch:
		if !ok {
			return false, nil
		}
		if notif.Err != nil {
			return true, fmt.Errorf("%w: %v", ErrDepositFailed, notif.Err)
		}
		return true, nil
	case <-ctx.Done():
		return true, fmt.Errorf("%w: confirmation wait: %v", ErrDepositNotFound, ctx.Err())
	}
}

// waitRPC polls getTransaction until the transaction appears or the
// context expires.
func (v *Verifier) waitRPC(ctx context.Context, signature string) (*Transaction, error) {
	ticker := time.NewTicker(v.pollInterval)
	defer ticker.Stop()

	for {
		tx, err := v.rpc.GetTransaction(ctx, signature)
		if err != nil {
			return nil, fmt.Errorf("get transaction: %w", err)
		}
		if tx != nil {
			return tx, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrDepositNotFound
		case <-ticker.C:
		}
	}
}
