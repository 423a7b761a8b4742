// Package engine orchestrates shield, send and unshield operations.
// Each operation runs the same shape: validate, mutate the balance
// ledger, update pool totals where applicable, then append to the
// transaction log. The ledger mutation always precedes the log write,
// so a logged transaction implies an applied balance change.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/idhash"
	"shielded-pool/internal/ledger"
	"shielded-pool/internal/observability"
	"shielded-pool/internal/pool"
	"shielded-pool/internal/storage"
	"shielded-pool/internal/txlog"
)

// Engine errors.
var (
	// ErrValidationFailed is returned when an external collaborator
	// rejects the operation: an unresolvable deposit reference or a
	// rejected proof.
	ErrValidationFailed = errors.New("external validation failed")

	// ErrInconsistentState is returned when a step fails after the
	// ledger was already mutated. The balance change is applied but the
	// pool totals or the log may be missing the operation; this is never
	// masked as success.
	ErrInconsistentState = errors.New("inconsistent state after ledger mutation")
)

// DepositVerifier confirms that a claimed on-chain deposit exists and
// succeeded before the shielded balance is credited.
type DepositVerifier interface {
	VerifyDeposit(ctx context.Context, signature, poolAddress string) error
}

// ProofValidator accepts or rejects a send/unshield authorization.
type ProofValidator interface {
	ValidateProof(ctx context.Context, proof string) error
}

// WithdrawSubmitter executes the external payout step of an unshield.
type WithdrawSubmitter interface {
	SubmitWithdraw(ctx context.Context, p *domain.TokenPool, recipient string, amount decimal.Decimal) error
}

// Engine coordinates the three core components and the external
// collaborators for each operation.
type Engine struct {
	pools    *pool.Registry
	balances *ledger.Ledger
	txs      *txlog.Log

	deposits  DepositVerifier
	proofs    ProofValidator
	withdraws WithdrawSubmitter

	// activity is optional; rollups are written best-effort.
	activity storage.ActivityStore

	logger *slog.Logger
}

// Options for creating Engine.
type Options struct {
	// Required components
	Pools    *pool.Registry
	Balances *ledger.Ledger
	Txs      *txlog.Log

	// Required collaborators
	Deposits  DepositVerifier
	Proofs    ProofValidator
	Withdraws WithdrawSubmitter

	// Optional
	Activity storage.ActivityStore
	Logger   *slog.Logger
}

// New creates a new Engine.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		pools:     opts.Pools,
		balances:  opts.Balances,
		txs:       opts.Txs,
		deposits:  opts.Deposits,
		proofs:    opts.Proofs,
		withdraws: opts.Withdraws,
		activity:  opts.Activity,
		logger:    logger,
	}
}

// Shield credits a private balance after a verified on-chain deposit.
// The pool is created lazily on the first shield of a mint. Returns the
// logged transaction.
func (e *Engine) Shield(ctx context.Context, owner, mint string, amount decimal.Decimal, txSignature string) (*domain.Transaction, error) {
	start := time.Now()
	tx, err := e.shield(ctx, owner, mint, amount, txSignature)
	observability.RecordOperation(string(domain.TxTypeShield), status(err), time.Since(start).Seconds())
	if err == nil {
		observability.RecordAmount(string(domain.TxTypeShield), mint, amount.InexactFloat64())
	}
	return tx, err
}

func (e *Engine) shield(ctx context.Context, owner, mint string, amount decimal.Decimal, txSignature string) (*domain.Transaction, error) {
	if owner == "" || mint == "" || txSignature == "" {
		return nil, storage.ErrInvalidInput
	}
	if amount.Sign() <= 0 {
		return nil, ledger.ErrInvalidAmount
	}

	// Replay guard: a deposit signature is credited at most once.
	if _, err := e.txs.FindBySignature(ctx, txSignature); err == nil {
		return nil, txlog.ErrDuplicateSignature
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	p, err := e.pools.GetOrCreate(ctx, mint, domain.DefaultDecimals)
	if err != nil {
		return nil, fmt.Errorf("resolve pool: %w", err)
	}

	checkStart := time.Now()
	err = e.deposits.VerifyDeposit(ctx, txSignature, p.PoolAddress)
	observability.RecordDepositCheck(status(err), time.Since(checkStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	if _, err := e.balances.ApplyDelta(ctx, owner, mint, amount, true); err != nil {
		return nil, err
	}

	// From here on the ledger is mutated; failures are surfaced as
	// inconsistencies, never as success.
	if _, err := e.pools.IncreaseShielded(ctx, mint, amount); err != nil {
		return nil, e.inconsistent(domain.TxTypeShield, owner, mint, txSignature, err)
	}

	symbol := e.pools.Symbol(ctx, mint)
	tx, err := e.txs.Record(ctx, owner, domain.TxTypeShield, mint, symbol, amount, txSignature, nil)
	if err != nil {
		return nil, e.inconsistent(domain.TxTypeShield, owner, mint, txSignature, err)
	}

	e.recordActivity(ctx, mint, domain.TxTypeShield, amount, tx.Timestamp)
	return tx, nil
}

// Send moves private balance from sender to recipient without touching
// the chain. A synthetic signature identifies the logged transaction.
func (e *Engine) Send(ctx context.Context, sender, recipient, mint string, amount decimal.Decimal, proof string) (*domain.Transaction, error) {
	start := time.Now()
	tx, err := e.send(ctx, sender, recipient, mint, amount, proof)
	observability.RecordOperation(string(domain.TxTypeSend), status(err), time.Since(start).Seconds())
	if err == nil {
		observability.RecordAmount(string(domain.TxTypeSend), mint, amount.InexactFloat64())
	}
	return tx, err
}

func (e *Engine) send(ctx context.Context, sender, recipient, mint string, amount decimal.Decimal, proof string) (*domain.Transaction, error) {
	if sender == "" || recipient == "" || mint == "" {
		return nil, storage.ErrInvalidInput
	}
	if sender == recipient {
		return nil, storage.ErrInvalidInput
	}
	if amount.Sign() <= 0 {
		return nil, ledger.ErrInvalidAmount
	}

	if err := e.proofs.ValidateProof(ctx, proof); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	if _, err := e.balances.ApplyDelta(ctx, sender, mint, amount, false); err != nil {
		return nil, err
	}

	signature := idhash.ComputeSignature(sender, recipient, mint, amount.String(), time.Now().UnixNano())

	if _, err := e.balances.ApplyDelta(ctx, recipient, mint, amount, true); err != nil {
		return nil, e.inconsistent(domain.TxTypeSend, sender, mint, signature, err)
	}

	symbol := e.pools.Symbol(ctx, mint)
	tx, err := e.txs.Record(ctx, sender, domain.TxTypeSend, mint, symbol, amount, signature, &recipient)
	if err != nil {
		return nil, e.inconsistent(domain.TxTypeSend, sender, mint, signature, err)
	}

	e.recordActivity(ctx, mint, domain.TxTypeSend, amount, tx.Timestamp)
	return tx, nil
}

// Unshield debits a private balance and hands the amount to the external
// payout collaborator. The pool record is resolved up front so a missing
// pool rejects the operation before any mutation.
func (e *Engine) Unshield(ctx context.Context, sender, recipient, mint string, amount decimal.Decimal, proof string) (*domain.Transaction, error) {
	start := time.Now()
	tx, err := e.unshield(ctx, sender, recipient, mint, amount, proof)
	observability.RecordOperation(string(domain.TxTypeUnshield), status(err), time.Since(start).Seconds())
	if err == nil {
		observability.RecordAmount(string(domain.TxTypeUnshield), mint, amount.InexactFloat64())
	}
	return tx, err
}

func (e *Engine) unshield(ctx context.Context, sender, recipient, mint string, amount decimal.Decimal, proof string) (*domain.Transaction, error) {
	if sender == "" || recipient == "" || mint == "" {
		return nil, storage.ErrInvalidInput
	}
	if amount.Sign() <= 0 {
		return nil, ledger.ErrInvalidAmount
	}

	if err := e.proofs.ValidateProof(ctx, proof); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	p, err := e.pools.GetOrCreate(ctx, mint, domain.DefaultDecimals)
	if err != nil {
		return nil, fmt.Errorf("resolve pool: %w", err)
	}

	if _, err := e.balances.ApplyDelta(ctx, sender, mint, amount, false); err != nil {
		return nil, err
	}

	signature := idhash.ComputeSignature(sender, recipient, mint, amount.String(), time.Now().UnixNano())

	if _, err := e.pools.IncreaseUnshielded(ctx, mint, amount); err != nil {
		return nil, e.inconsistent(domain.TxTypeUnshield, sender, mint, signature, err)
	}

	if err := e.withdraws.SubmitWithdraw(ctx, p, recipient, amount); err != nil {
		return nil, e.inconsistent(domain.TxTypeUnshield, sender, mint, signature, err)
	}

	symbol := e.pools.Symbol(ctx, mint)
	tx, err := e.txs.Record(ctx, sender, domain.TxTypeUnshield, mint, symbol, amount, signature, &recipient)
	if err != nil {
		return nil, e.inconsistent(domain.TxTypeUnshield, sender, mint, signature, err)
	}

	e.recordActivity(ctx, mint, domain.TxTypeUnshield, amount, tx.Timestamp)
	return tx, nil
}

// inconsistent wraps a post-ledger-mutation failure. The balance change
// stands; the caller learns the operation did not fully commit.
func (e *Engine) inconsistent(op domain.TxType, owner, mint, signature string, err error) error {
	e.logger.Error("operation left inconsistent state",
		"operation", op,
		"owner", owner,
		"mint", mint,
		"signature", signature,
		"error", err,
	)
	return fmt.Errorf("%w: %s %s/%s: %v", ErrInconsistentState, op, owner, mint, err)
}

// recordActivity writes a one-minute rollup point. Failures are logged
// and never affect the operation outcome.
func (e *Engine) recordActivity(ctx context.Context, mint string, op domain.TxType, amount decimal.Decimal, ts int64) {
	if e.activity == nil {
		return
	}

	point := &domain.ActivityPoint{
		Mint:     mint,
		Op:       op,
		BucketMs: ts - ts%60_000,
		Amount:   amount.InexactFloat64(),
		Count:    1,
	}
	err := e.activity.Record(ctx, []*domain.ActivityPoint{point})
	observability.RecordActivityWrite(1, err)
	if err != nil {
		e.logger.Warn("activity rollup write failed", "mint", mint, "operation", op, "error", err)
	}
}

func status(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrInconsistentState):
		return "inconsistent"
	default:
		return "rejected"
	}
}
